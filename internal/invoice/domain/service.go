package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	dealdomain "github.com/creatorstack/paisa/internal/deal/domain"
	"github.com/creatorstack/paisa/internal/tax"
)

// TaxOverride is a per-invoice, per-field override of the creator's tax
// preferences. Nil fields fall through to the profile defaults.
type TaxOverride struct {
	ApplyGST  *bool          `json:"apply_gst,omitempty"`
	GSTRate   *float64       `json:"gst_rate,omitempty"`
	GSTType   *tax.GSTType   `json:"gst_type,omitempty"`
	ApplyTDS  *bool          `json:"apply_tds,omitempty"`
	TDSRate   *float64       `json:"tds_rate,omitempty"`
	Exemption *tax.Exemption `json:"exemption,omitempty"`
}

type CreateInvoiceRequest struct {
	Selection dealdomain.Selection

	// ClientOverride wins over brand/agency details from the selected deals.
	ClientOverride *Client
	TaxOverride    *TaxOverride

	Discount        tax.Discount
	PaymentTermDays int
	DueDate         *time.Time
	Notes           string
	Currency        string
}

type ListInvoiceRequest struct {
	Status      *InvoiceStatus
	Type        *InvoiceType
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// UpdateInvoiceRequest edits a mutable invoice. ExpectedVersion must match
// the stored version or the edit is rejected.
type UpdateInvoiceRequest struct {
	ExpectedVersion int
	Actor           string
	Description     string

	Client      *Client
	TaxOverride *TaxOverride
	Discount    *tax.Discount
	DueDate     *time.Time
	Notes       *string

	// LineItems, when non-nil, replaces the lines wholesale and re-runs the
	// tax calculation. An empty or badly priced replacement is rejected.
	LineItems *[]LineItem
}

// ReminderScheduler lays out payment reminders when an invoice goes out.
// Satisfied by the reminder service; optional so sending never depends on it.
type ReminderScheduler interface {
	ScheduleForInvoice(ctx context.Context, invoiceID, creatorID snowflake.ID, dueDate time.Time) error
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error)
	GetByID(ctx context.Context, id snowflake.ID) (Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) ([]Invoice, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateInvoiceRequest) (Invoice, error)
	Cancel(ctx context.Context, id snowflake.ID, actor string) (Invoice, error)
	Send(ctx context.Context, id snowflake.ID) (Invoice, error)
	MarkViewed(ctx context.Context, id snowflake.ID) (Invoice, error)

	// MarkOverdue flips every aged invoice past its due date. Scheduler hook;
	// returns how many invoices changed.
	MarkOverdue(ctx context.Context, now time.Time) (int, error)
}
