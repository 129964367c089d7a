package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/creatorstack/paisa/internal/subscription/domain"
)

type Service interface {
	// StartCycle opens the first cycle for a fresh subscription.
	StartCycle(ctx context.Context, sub subscriptiondomain.Subscription, cycleType string) error

	// Current returns the subscriber's cycle in a non-terminal state.
	Current(ctx context.Context, subscriberID snowflake.ID) (BillingCycle, error)

	ListBySubscriber(ctx context.Context, subscriberID snowflake.ID) ([]BillingCycle, error)

	// Pay marks the cycle's payment complete. Scoped to the acting subscriber.
	Pay(ctx context.Context, cycleID snowflake.ID) (BillingCycle, error)

	// Rollover ages every cycle past its end date and opens the successor for
	// auto-renewing subscriptions. Idempotent; returns how many cycles were
	// created.
	Rollover(ctx context.Context, now time.Time) (int, error)

	// ProcessRenewalReminders sends due renewal nudges, at most once per
	// offset per cycle. Returns how many went out.
	ProcessRenewalReminders(ctx context.Context, now time.Time) (int, error)

	// RefreshFeatureLimits re-snapshots the active cycle's limits after a
	// tier change.
	RefreshFeatureLimits(ctx context.Context, subscriptionID snowflake.ID, limits map[string]any) error
}
