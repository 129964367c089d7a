package domain

import "time"

// upgradeTransitions is the explicit edge set of the upgrade lifecycle.
var upgradeTransitions = map[UpgradeStatus]map[UpgradeStatus]bool{
	UpgradeStatusRequested: {
		UpgradeStatusPaymentPending: true,
		UpgradeStatusProcessing:     true,
		UpgradeStatusCancelled:      true,
	},
	UpgradeStatusPaymentPending: {
		UpgradeStatusProcessing: true,
		UpgradeStatusFailed:     true,
		UpgradeStatusCancelled:  true,
	},
	UpgradeStatusProcessing: {
		UpgradeStatusCompleted: true,
		UpgradeStatusFailed:    true,
	},
	UpgradeStatusCompleted: {},
	UpgradeStatusFailed:    {},
	UpgradeStatusCancelled: {},
}

// CanTransition reports whether the edge exists.
func CanTransition(from, to UpgradeStatus) bool {
	return upgradeTransitions[from][to]
}

// Transition validates and applies a status change. Re-applying a completed
// upgrade gets the dedicated error so callers can treat it as idempotent
// conflict rather than a generic illegal move.
func (u *SubscriptionUpgrade) Transition(to UpgradeStatus, now time.Time) error {
	if u.Status == UpgradeStatusCompleted && to == UpgradeStatusCompleted {
		return ErrUpgradeAlreadyApplied
	}
	if !CanTransition(u.Status, to) {
		return ErrInvalidUpgradeTransition
	}
	if to == UpgradeStatusCompleted {
		u.CompletedAt = &now
	}
	u.Status = to
	u.UpdatedAt = now
	return nil
}

// Terminal reports whether the upgrade can no longer change state.
func (u SubscriptionUpgrade) Terminal() bool {
	return len(upgradeTransitions[u.Status]) == 0
}
