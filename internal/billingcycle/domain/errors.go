package domain

import "errors"

var (
	ErrCycleNotFound          = errors.New("billing_cycle_not_found")
	ErrCycleNotOwned          = errors.New("billing_cycle_not_owned")
	ErrNoActiveCycle          = errors.New("no_active_billing_cycle")
	ErrInvalidCycleTransition = errors.New("invalid_cycle_transition")
	ErrCycleNotPayable        = errors.New("billing_cycle_not_payable")
	ErrCycleAlreadyPaid       = errors.New("billing_cycle_already_paid")
	ErrUnknownTier            = errors.New("unknown_subscription_tier")
)
