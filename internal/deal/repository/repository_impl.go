package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	dealdomain "github.com/creatorstack/paisa/internal/deal/domain"
	"gorm.io/gorm"
)

type store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) dealdomain.Store {
	return &store{db: db}
}

func (s *store) List(ctx context.Context, filter dealdomain.Filter) ([]dealdomain.WorkItem, error) {
	stmt := s.db.WithContext(ctx).Model(&dealdomain.WorkItem{})

	if filter.CreatorID != 0 {
		stmt = stmt.Where("creator_id = ?", filter.CreatorID)
	}
	if len(filter.Statuses) > 0 {
		stmt = stmt.Where("status IN ?", filter.Statuses)
	}
	if filter.BrandID != 0 {
		stmt = stmt.Where("brand_id = ?", filter.BrandID)
	}
	if filter.AgencyID != nil {
		stmt = stmt.Where("agency_id = ?", *filter.AgencyID)
	}
	if filter.CompletedFrom != nil {
		stmt = stmt.Where("completed_at >= ?", *filter.CompletedFrom)
	}
	if filter.CompletedUntil != nil {
		stmt = stmt.Where("completed_at < ?", *filter.CompletedUntil)
	}
	if filter.ExcludeBilled {
		stmt = stmt.Where("has_invoice = ?", false)
	}

	var items []dealdomain.WorkItem
	if err := stmt.Order("completed_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *store) FindByIDs(ctx context.Context, ids []snowflake.ID) ([]dealdomain.WorkItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var items []dealdomain.WorkItem
	err := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("completed_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *store) MarkInvoiced(ctx context.Context, tx *gorm.DB, ids []snowflake.ID, invoiceID snowflake.ID) error {
	if len(ids) == 0 {
		return nil
	}

	result := tx.WithContext(ctx).Model(&dealdomain.WorkItem{}).
		Where("id IN ? AND has_invoice = ?", ids, false).
		Updates(map[string]any{
			"has_invoice": true,
			"invoice_id":  invoiceID,
			"updated_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	// A shortfall means another invoice claimed one of the deals first.
	if result.RowsAffected != int64(len(ids)) {
		return dealdomain.ErrDealAlreadyBilled
	}
	return nil
}

func (s *store) ClearInvoiced(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) error {
	return tx.WithContext(ctx).Model(&dealdomain.WorkItem{}).
		Where("invoice_id = ?", invoiceID).
		Updates(map[string]any{
			"has_invoice": false,
			"invoice_id":  nil,
			"updated_at":  time.Now().UTC(),
		}).Error
}
