package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Filter narrows work item queries. Zero fields are ignored.
type Filter struct {
	CreatorID      snowflake.ID
	Statuses       []WorkItemStatus
	BrandID        snowflake.ID
	AgencyID       *snowflake.ID
	CompletedFrom  *time.Time
	CompletedUntil *time.Time
	ExcludeBilled  bool
}

// Store is the deal store boundary. The invoice transaction passes its tx so
// the hasInvoice flip commits atomically with the invoice row.
type Store interface {
	List(ctx context.Context, filter Filter) ([]WorkItem, error)
	FindByIDs(ctx context.Context, ids []snowflake.ID) ([]WorkItem, error)
	MarkInvoiced(ctx context.Context, tx *gorm.DB, ids []snowflake.ID, invoiceID snowflake.ID) error
	ClearInvoiced(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) error
}

// Selector resolves a consolidation request into eligible work items.
type Selector interface {
	Select(ctx context.Context, creatorID snowflake.ID, selection Selection) ([]WorkItem, error)
}
