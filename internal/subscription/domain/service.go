package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type ActivateRequest struct {
	SubscriberID snowflake.ID
	Tier         string

	// CycleType of the opening billing cycle; defaults to quarterly.
	CycleType string
	AutoRenew bool
}

// CycleStarter opens the first billing cycle for a fresh subscription.
// Satisfied by the billing cycle engine.
type CycleStarter interface {
	StartCycle(ctx context.Context, sub Subscription, cycleType string) error
}

type Service interface {
	Activate(ctx context.Context, req ActivateRequest) (Subscription, error)
	GetBySubscriber(ctx context.Context, subscriberID snowflake.ID) (Subscription, error)
	Cancel(ctx context.Context, subscriberID snowflake.ID) (Subscription, error)
}
