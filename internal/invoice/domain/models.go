// Package domain contains the invoice model, its lifecycle state machine and
// the service contracts for creating, editing and cancelling invoices.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	dealdomain "github.com/creatorstack/paisa/internal/deal/domain"
	"github.com/creatorstack/paisa/internal/secret"
	"github.com/creatorstack/paisa/internal/tax"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusSent          InvoiceStatus = "sent"
	InvoiceStatusViewed        InvoiceStatus = "viewed"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusOverdue       InvoiceStatus = "overdue"
	InvoiceStatusCancelled     InvoiceStatus = "cancelled"
)

// InvoiceType classifies how the invoice was consolidated.
type InvoiceType string

const (
	InvoiceTypeIndividual     InvoiceType = "individual"
	InvoiceTypeConsolidated   InvoiceType = "consolidated"
	InvoiceTypeAgencyPayout   InvoiceType = "agency_payout"
	InvoiceTypeMonthlySummary InvoiceType = "monthly_summary"
)

// LineItem is one priced line on an invoice. Amount is the derived figure the
// tax snapshot was computed from; it is stored so rendered documents never
// re-derive it.
type LineItem struct {
	Description     string  `json:"description"`
	Platform        string  `json:"platform,omitempty"`
	Category        string  `json:"category,omitempty"`
	HSNCode         string  `json:"hsn_code,omitempty"`
	Quantity        float64 `json:"quantity"`
	Rate            float64 `json:"rate"`
	Amount          float64 `json:"amount"`
	DiscountPercent float64 `json:"discount_percent,omitempty"`
	DiscountAmount  float64 `json:"discount_amount,omitempty"`

	// ValueFallback marks lines priced from the configured fallback rate
	// because the source deal carried no value. Never silent.
	ValueFallback bool `json:"value_fallback,omitempty"`

	WorkItemIDs []snowflake.ID `json:"work_item_ids,omitempty"`
}

// Consolidation records which selection produced the invoice.
type Consolidation struct {
	Criterion   dealdomain.Criterion `json:"criterion"`
	PeriodStart *time.Time           `json:"period_start,omitempty"`
	PeriodEnd   *time.Time           `json:"period_end,omitempty"`
	ItemCount   int                  `json:"item_count"`
	Platforms   []string             `json:"platforms,omitempty"`
}

// Client is the billed party block printed on the invoice.
type Client struct {
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
	GSTIN        string `json:"gstin,omitempty"`
	PAN          string `json:"pan,omitempty"`
	IsInterstate bool   `json:"is_interstate"`
}

// Settings are the commercial terms of the invoice.
type Settings struct {
	Currency        string       `json:"currency"`
	InvoiceDate     time.Time    `json:"invoice_date"`
	DueDate         time.Time    `json:"due_date"`
	PaymentTermDays int          `json:"payment_term_days"`
	Discount        tax.Discount `json:"discount"`
	Notes           string       `json:"notes,omitempty"`
}

// BankDetails is the payout destination copied (sealed) from the creator
// profile at creation time, so later profile edits never rewrite history.
type BankDetails struct {
	AccountName   secret.SecretString `json:"account_name,omitempty"`
	AccountNumber secret.SecretString `json:"account_number,omitempty"`
	IFSC          secret.SecretString `json:"ifsc,omitempty"`
	UPI           secret.SecretString `json:"upi,omitempty"`
}

// Revision is one entry in the invoice edit log.
type Revision struct {
	Version     int       `json:"version"`
	Actor       string    `json:"actor"`
	At          time.Time `json:"at"`
	Description string    `json:"description"`
}

// Invoice is a generated invoice with its full tax snapshot.
type Invoice struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	InvoiceNumber string        `gorm:"type:text;not null;uniqueIndex" json:"invoice_number"`
	Type          InvoiceType   `gorm:"type:text;not null" json:"type"`
	CreatorID     snowflake.ID  `gorm:"not null;index" json:"creator_id"`
	Status        InvoiceStatus `gorm:"type:text;not null;default:'draft';index" json:"status"`

	WorkItemIDs   datatypes.JSONSlice[snowflake.ID]   `gorm:"type:jsonb" json:"work_item_ids"`
	Consolidation datatypes.JSONType[Consolidation]   `gorm:"type:jsonb" json:"consolidation"`
	Client        datatypes.JSONType[Client]          `gorm:"type:jsonb" json:"client"`
	LineItems     datatypes.JSONSlice[LineItem]       `gorm:"type:jsonb" json:"line_items"`
	TaxSettings   datatypes.JSONType[tax.Settings]    `gorm:"type:jsonb" json:"tax_settings"`
	Calculation   datatypes.JSONType[tax.Calculation] `gorm:"type:jsonb" json:"calculation"`
	Settings      datatypes.JSONType[Settings]        `gorm:"type:jsonb" json:"settings"`
	BankDetails   datatypes.JSONType[BankDetails]     `gorm:"type:jsonb" json:"bank_details"`

	FinalAmount float64 `gorm:"not null;default:0" json:"final_amount"`
	AmountPaid  float64 `gorm:"not null;default:0" json:"amount_paid"`

	// DueDate mirrors Settings.DueDate as a real column so overdue scans and
	// reminder schedules can query it.
	DueDate time.Time `gorm:"not null;index" json:"due_date"`

	// Version guards concurrent edits; every accepted change bumps it and
	// appends a Revision.
	Version   int                           `gorm:"not null;default:1" json:"version"`
	Revisions datatypes.JSONSlice[Revision] `gorm:"type:jsonb" json:"revisions"`

	SentAt      *time.Time `json:"sent_at,omitempty"`
	ViewedAt    *time.Time `json:"viewed_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Balance is the amount still owed.
func (i Invoice) Balance() float64 {
	return i.FinalAmount - i.AmountPaid
}

// InvoiceSequence reserves per-month invoice number suffixes. One row per
// (year, month); the next suffix is claimed with an atomic increment.
type InvoiceSequence struct {
	Year    int   `gorm:"primaryKey;autoIncrement:false"`
	Month   int   `gorm:"primaryKey;autoIncrement:false"`
	LastSeq int64 `gorm:"not null;default:0"`
}

// TableName sets the database table name.
func (InvoiceSequence) TableName() string { return "invoice_sequences" }
