// Package domain holds the subscription account model. A subscriber owns one
// subscription; the billing cycle engine charges it quarter by quarter.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

// Subscription ties a subscriber to a tier. FeatureLimits is a snapshot of
// the tier's limits at activation time so later policy edits do not silently
// change what an existing subscriber already paid for.
type Subscription struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	SubscriberID snowflake.ID `gorm:"not null;uniqueIndex" json:"subscriber_id"`

	Tier          string             `gorm:"type:text;not null" json:"tier"`
	Status        SubscriptionStatus `gorm:"type:text;not null;default:'active';index" json:"status"`
	FeatureLimits datatypes.JSONMap  `gorm:"type:jsonb" json:"feature_limits"`
	AutoRenew     bool               `gorm:"not null;default:true" json:"auto_renew"`

	ActivatedAt time.Time  `gorm:"not null" json:"activated_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }
