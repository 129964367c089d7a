// Package domain models mid-cycle tier changes. The proration breakdown is
// computed once at request time and frozen so the charge shown to the
// subscriber is the charge collected.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type UpgradeStatus string

const (
	UpgradeStatusRequested      UpgradeStatus = "requested"
	UpgradeStatusPaymentPending UpgradeStatus = "payment_pending"
	UpgradeStatusProcessing     UpgradeStatus = "processing"
	UpgradeStatusCompleted      UpgradeStatus = "completed"
	UpgradeStatusFailed         UpgradeStatus = "failed"
	UpgradeStatusCancelled      UpgradeStatus = "cancelled"
)

// Proration is the rupee math behind a tier change. Daily rates keep full
// float precision; the money amounts round half away from zero.
type Proration struct {
	RemainingDays int     `json:"remaining_days"`
	FromDailyRate float64 `json:"from_daily_rate"`
	ToDailyRate   float64 `json:"to_daily_rate"`
	RefundAmount  int64   `json:"refund_amount"`
	ChargeAmount  int64   `json:"charge_amount"`
	NetAmount     int64   `json:"net_amount"`
}

// SubscriptionUpgrade is one tier-change request.
type SubscriptionUpgrade struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	SubscriptionID snowflake.ID `gorm:"not null;index" json:"subscription_id"`
	SubscriberID   snowflake.ID `gorm:"not null;index" json:"subscriber_id"`

	FromTier string `gorm:"type:text;not null" json:"from_tier"`
	ToTier   string `gorm:"type:text;not null" json:"to_tier"`

	RequestedAt time.Time  `gorm:"not null" json:"requested_at"`
	EffectiveAt *time.Time `json:"effective_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Proration       datatypes.JSONType[Proration] `gorm:"type:jsonb" json:"proration"`
	PaymentRequired bool                          `gorm:"not null" json:"payment_required"`

	Status           UpgradeStatus `gorm:"type:text;not null;default:'requested';index" json:"status"`
	RollbackDeadline *time.Time    `json:"rollback_deadline,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (SubscriptionUpgrade) TableName() string { return "subscription_upgrades" }
