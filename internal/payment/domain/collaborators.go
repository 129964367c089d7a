package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/creatorstack/paisa/internal/invoice/domain"
)

// ReceiptRenderer produces the receipt document for a verified payment and
// returns where it was stored. Failures are logged, never fatal.
type ReceiptRenderer interface {
	RenderReceipt(ctx context.Context, invoice invoicedomain.Invoice, payment Payment) (string, error)
}

// ReminderCanceller drops pending payment reminders once money lands.
type ReminderCanceller interface {
	CancelForInvoice(ctx context.Context, invoiceID snowflake.ID) error
}
