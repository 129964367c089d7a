package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type RecordPaymentRequest struct {
	InvoiceID snowflake.ID
	Amount    float64
	Method    string
	Reference string
	Notes     string
}

type VerifyPaymentRequest struct {
	PaymentID  snowflake.ID
	VerifiedBy string
}

type Service interface {
	Record(ctx context.Context, req RecordPaymentRequest) (Payment, error)
	Verify(ctx context.Context, req VerifyPaymentRequest) (Payment, error)
	ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]Payment, error)
}
