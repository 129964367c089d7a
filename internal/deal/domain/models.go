// Package domain contains the work item (deal) model and selection contracts.
// Work items are created and mutated by the deal-management subsystem; the
// billing core reads them and only ever touches the invoice linkage fields.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// WorkItemStatus mirrors the deal pipeline. Billing only cares about the
// tail end of it.
type WorkItemStatus string

const (
	WorkItemStatusPitched    WorkItemStatus = "pitched"
	WorkItemStatusInProgress WorkItemStatus = "in_progress"
	WorkItemStatusDelivered  WorkItemStatus = "delivered"
	WorkItemStatusCompleted  WorkItemStatus = "completed"
	WorkItemStatusLive       WorkItemStatus = "live"
	WorkItemStatusPaid       WorkItemStatus = "paid"
	WorkItemStatusCancelled  WorkItemStatus = "cancelled"
)

// Deliverable is one promised asset inside a work item. Rate/Quantity may be
// zero when the deal was priced as a lump sum.
type Deliverable struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
}

// WorkItem is a brand deal owned by a creator.
type WorkItem struct {
	ID        snowflake.ID   `gorm:"primaryKey"`
	CreatorID snowflake.ID   `gorm:"not null;index"`
	Status    WorkItemStatus `gorm:"type:text;not null;index"`
	Title     string         `gorm:"type:text;not null"`

	// Value is the agreed deal amount in rupees. Zero means the value was
	// never captured; invoicing falls back to the configured rate and flags
	// the line.
	Value        float64                             `gorm:"not null;default:0"`
	Deliverables datatypes.JSONSlice[Deliverable]    `gorm:"type:jsonb"`
	Platform     string                              `gorm:"type:text"`
	BrandID      *snowflake.ID                       `gorm:"index"`
	BrandName    string                              `gorm:"type:text"`
	AgencyID     *snowflake.ID                       `gorm:"index"`
	AgencyName   string                              `gorm:"type:text"`

	HasInvoice bool          `gorm:"not null;default:false;index"`
	InvoiceID  *snowflake.ID `gorm:"index"`

	CompletedAt *time.Time        `gorm:"index"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (WorkItem) TableName() string { return "work_items" }

// Criterion selects which work items join one invoice.
type Criterion string

const (
	CriterionMonthly      Criterion = "monthly"
	CriterionBrand        Criterion = "brand"
	CriterionAgencyPayout Criterion = "agency_payout"
	CriterionDateRange    Criterion = "date_range"
	CriterionCustom       Criterion = "custom"
)

// Selection is the full consolidation request for one invoice.
type Selection struct {
	Criterion Criterion

	// Monthly
	Month int
	Year  int

	// Brand
	BrandID snowflake.ID

	// Agency payout (AgencyID optional) and date range
	AgencyID  *snowflake.ID
	StartDate *time.Time
	EndDate   *time.Time

	// Custom
	WorkItemIDs []snowflake.ID
}
