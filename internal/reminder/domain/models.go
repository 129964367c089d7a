// Package domain contains the payment reminder schedule. One row per invoice
// per offset; the scheduler sends whatever is due and every mutation is
// idempotent so reruns are harmless.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type ReminderStatus string

const (
	ReminderStatusPending   ReminderStatus = "pending"
	ReminderStatusSent      ReminderStatus = "sent"
	ReminderStatusCancelled ReminderStatus = "cancelled"
)

// Reminder is one scheduled nudge about an invoice payment.
type Reminder struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	InvoiceID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_reminder_invoice_offset,priority:1"`
	CreatorID snowflake.ID `gorm:"not null;index"`

	// OffsetDays is relative to the invoice due date: negative before, zero
	// on the day, positive after.
	OffsetDays   int            `gorm:"not null;uniqueIndex:ux_reminder_invoice_offset,priority:2"`
	ScheduledFor time.Time      `gorm:"not null;index"`
	Status       ReminderStatus `gorm:"type:text;not null;default:'pending';index"`

	SentAt    *time.Time
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Reminder) TableName() string { return "payment_reminders" }

type Service interface {
	// ScheduleForInvoice lays out the reminder schedule for a freshly sent
	// invoice. Re-scheduling an invoice is a no-op per offset.
	ScheduleForInvoice(ctx context.Context, invoiceID, creatorID snowflake.ID, dueDate time.Time) error

	// ProcessDue sends every pending reminder whose time has come. Returns
	// how many went out.
	ProcessDue(ctx context.Context, now time.Time) (int, error)

	// CancelForInvoice drops pending reminders once the invoice is settled
	// or cancelled.
	CancelForInvoice(ctx context.Context, invoiceID snowflake.ID) error
}
