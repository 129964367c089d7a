// Package domain models subscription billing cycles. A cycle is one charging
// window for a subscription; amounts are whole rupees computed once at cycle
// creation and frozen.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type CycleStatus string

const (
	CycleStatusUpcoming       CycleStatus = "upcoming"
	CycleStatusActive         CycleStatus = "active"
	CycleStatusPaymentPending CycleStatus = "payment_pending"
	CycleStatusPaymentOverdue CycleStatus = "payment_overdue"
	CycleStatusCompleted      CycleStatus = "completed"
	CycleStatusCancelled      CycleStatus = "cancelled"
	CycleStatusRefunded       CycleStatus = "refunded"
)

type CycleType string

const (
	CycleTypeTrial     CycleType = "trial"
	CycleTypeQuarterly CycleType = "quarterly"
	CycleTypeAnnual    CycleType = "annual"
	CycleTypeCustom    CycleType = "custom"
)

type CyclePaymentStatus string

const (
	CyclePaymentPending   CyclePaymentStatus = "pending"
	CyclePaymentCompleted CyclePaymentStatus = "completed"
	CyclePaymentFailed    CyclePaymentStatus = "failed"
)

// BillingCycle is one charging window. The subscription and cycle number pair
// is unique so rollover reruns cannot mint duplicates.
type BillingCycle struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	SubscriptionID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_cycle_subscription_number,priority:1" json:"subscription_id"`
	SubscriberID   snowflake.ID `gorm:"not null;index" json:"subscriber_id"`
	CycleNumber    int          `gorm:"not null;uniqueIndex:ux_cycle_subscription_number,priority:2" json:"cycle_number"`

	CycleType CycleType `gorm:"type:text;not null" json:"cycle_type"`
	Tier      string    `gorm:"type:text;not null" json:"tier"`

	StartDate      time.Time `gorm:"not null" json:"start_date"`
	EndDate        time.Time `gorm:"not null;index" json:"end_date"`
	PaymentDueDate time.Time `gorm:"not null" json:"payment_due_date"`
	GraceEndDate   time.Time `gorm:"not null" json:"grace_end_date"`

	// Whole-rupee amounts, frozen at creation.
	BaseAmount     int64 `gorm:"not null" json:"base_amount"`
	DiscountAmount int64 `gorm:"not null" json:"discount_amount"`
	FinalAmount    int64 `gorm:"not null" json:"final_amount"`
	GSTAmount      int64 `gorm:"not null" json:"gst_amount"`
	TotalWithGST   int64 `gorm:"not null" json:"total_with_gst"`

	Status        CycleStatus        `gorm:"type:text;not null;default:'upcoming';index" json:"status"`
	PaymentStatus CyclePaymentStatus `gorm:"type:text;not null;default:'pending'" json:"payment_status"`
	AutoRenew     bool               `gorm:"not null;default:true" json:"auto_renew"`

	FeatureLimits datatypes.JSONMap        `gorm:"type:jsonb" json:"feature_limits"`
	UsageCounters datatypes.JSONMap        `gorm:"type:jsonb" json:"usage_counters"`
	RemindersSent datatypes.JSONSlice[int] `gorm:"type:jsonb" json:"reminders_sent"`

	PaidAt    *time.Time `json:"paid_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (BillingCycle) TableName() string { return "billing_cycles" }

// ReminderSentFor reports whether a reminder at the given due-date offset has
// already gone out for this cycle.
func (c BillingCycle) ReminderSentFor(offset int) bool {
	for _, sent := range c.RemindersSent {
		if sent == offset {
			return true
		}
	}
	return false
}
