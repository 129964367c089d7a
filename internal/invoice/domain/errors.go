package domain

import "errors"

var (
	ErrInvoiceNotFound     = errors.New("invoice_not_found")
	ErrInvoiceNotOwned     = errors.New("invoice_not_owned")
	ErrInvalidInvoiceID    = errors.New("invalid_invoice_id")
	ErrInvalidTransition   = errors.New("invalid_status_transition")
	ErrInvoiceImmutable    = errors.New("invoice_immutable")
	ErrVersionConflict     = errors.New("invoice_version_conflict")
	ErrCancelWithPayments  = errors.New("cancel_with_recorded_payments")
	ErrInvalidTaxOverride  = errors.New("invalid_tax_override")
	ErrInvalidLineItems    = errors.New("invalid_line_items")
	ErrNumberExhausted     = errors.New("invoice_number_exhausted")
)
