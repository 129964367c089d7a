// Package domain contains the payment ledger model. Payments only ever append;
// corrections happen through verification or cancellation, never edits.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PaymentType classifies a payment against the invoice balance at the moment
// it landed.
type PaymentType string

const (
	// PaymentTypeAdvance is a first payment covering at least half the bill.
	PaymentTypeAdvance PaymentType = "advance"
	// PaymentTypeFinal zeroes the remaining balance.
	PaymentTypeFinal PaymentType = "final"
	PaymentTypePartial PaymentType = "partial"
)

type PaymentStatus string

const (
	PaymentStatusRecorded  PaymentStatus = "recorded"
	PaymentStatusVerified  PaymentStatus = "verified"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// Payment is one recorded receipt of money against an invoice.
type Payment struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	PaymentID string       `gorm:"type:text;not null;uniqueIndex" json:"payment_id"`
	InvoiceID snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	CreatorID snowflake.ID `gorm:"not null;index" json:"creator_id"`

	Amount float64 `gorm:"not null" json:"amount"`
	// RemainingBalance is the invoice balance after this payment, frozen for
	// the audit trail.
	RemainingBalance float64     `gorm:"not null" json:"remaining_balance"`
	Type             PaymentType `gorm:"type:text;not null" json:"type"`

	Method    string `gorm:"type:text" json:"method,omitempty"`
	Reference string `gorm:"type:text" json:"reference,omitempty"`
	Notes     string `gorm:"type:text" json:"notes,omitempty"`

	Verified      bool       `gorm:"not null;default:false" json:"verified"`
	VerifiedBy    string     `gorm:"type:text" json:"verified_by,omitempty"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
	ReceiptNumber string     `gorm:"type:text" json:"receipt_number,omitempty"`
	ReceiptURL    string     `gorm:"type:text" json:"receipt_url,omitempty"`

	Status    PaymentStatus     `gorm:"type:text;not null;default:'recorded'" json:"status"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }
