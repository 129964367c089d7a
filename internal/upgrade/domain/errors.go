package domain

import "errors"

var (
	ErrUpgradeNotFound          = errors.New("upgrade_not_found")
	ErrUpgradeNotOwned          = errors.New("upgrade_not_owned")
	ErrUpgradeAlreadyApplied    = errors.New("upgrade_already_applied")
	ErrInvalidUpgradeTransition = errors.New("invalid_upgrade_transition")
	ErrSameTier                 = errors.New("upgrade_targets_current_tier")
	ErrUnknownTier              = errors.New("unknown_subscription_tier")
)
