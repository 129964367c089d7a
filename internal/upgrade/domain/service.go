package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Request prices a tier change for the acting subscriber. A non-positive
	// net amount is applied immediately; otherwise the upgrade waits in
	// payment_pending until Apply.
	Request(ctx context.Context, toTier string) (SubscriptionUpgrade, error)

	// Apply completes a priced upgrade: sets the tier, refreshes the active
	// cycle's feature limits and marks the request completed. Rejects an
	// already-completed request.
	Apply(ctx context.Context, id snowflake.ID) (SubscriptionUpgrade, error)

	Get(ctx context.Context, id snowflake.ID) (SubscriptionUpgrade, error)
	Cancel(ctx context.Context, id snowflake.ID) (SubscriptionUpgrade, error)
}
