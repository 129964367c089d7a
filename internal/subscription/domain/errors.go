package domain

import "errors"

var (
	ErrSubscriptionNotFound  = errors.New("subscription_not_found")
	ErrAlreadySubscribed     = errors.New("subscriber_already_has_subscription")
	ErrUnknownTier           = errors.New("unknown_subscription_tier")
	ErrSubscriptionNotActive = errors.New("subscription_not_active")
)
