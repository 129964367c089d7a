package domain

import "errors"

var (
	ErrPaymentNotFound   = errors.New("payment_not_found")
	ErrInvalidAmount     = errors.New("invalid_payment_amount")
	ErrOverpayment       = errors.New("payment_exceeds_balance")
	ErrInvoiceNotPayable = errors.New("invoice_not_payable")
	ErrAlreadyVerified   = errors.New("payment_already_verified")
	ErrPaymentCancelled  = errors.New("payment_cancelled")
)
