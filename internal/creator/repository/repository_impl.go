package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/creatorstack/paisa/internal/creator/domain"
	"gorm.io/gorm"
)

type store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) domain.Store {
	return &store{db: db}
}

func (s *store) FindByID(ctx context.Context, id snowflake.ID) (*domain.Creator, error) {
	var creator domain.Creator
	err := s.db.WithContext(ctx).First(&creator, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &creator, nil
}

func (s *store) Create(ctx context.Context, creator *domain.Creator) error {
	return s.db.WithContext(ctx).Create(creator).Error
}

func (s *store) Update(ctx context.Context, creator *domain.Creator) error {
	return s.db.WithContext(ctx).Save(creator).Error
}
