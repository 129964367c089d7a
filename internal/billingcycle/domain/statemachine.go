package domain

import "time"

// cycleTransitions is the explicit edge set of the cycle lifecycle.
var cycleTransitions = map[CycleStatus]map[CycleStatus]bool{
	CycleStatusUpcoming: {
		CycleStatusActive:    true,
		CycleStatusCancelled: true,
	},
	CycleStatusActive: {
		CycleStatusPaymentPending: true,
		CycleStatusCompleted:      true,
		CycleStatusCancelled:      true,
		CycleStatusRefunded:       true,
	},
	CycleStatusPaymentPending: {
		CycleStatusPaymentOverdue: true,
		CycleStatusCompleted:      true,
		CycleStatusCancelled:      true,
	},
	CycleStatusPaymentOverdue: {
		CycleStatusCompleted: true,
		CycleStatusCancelled: true,
	},
	CycleStatusCompleted: {},
	CycleStatusCancelled: {},
	CycleStatusRefunded:  {},
}

// CanTransition reports whether the edge exists.
func CanTransition(from, to CycleStatus) bool {
	return cycleTransitions[from][to]
}

// Transition validates and applies a status change.
func (c *BillingCycle) Transition(to CycleStatus, now time.Time) error {
	if !CanTransition(c.Status, to) {
		return ErrInvalidCycleTransition
	}
	c.Status = to
	c.UpdatedAt = now
	return nil
}

// InGracePeriod reports whether now falls in the post-end payment window:
// strictly after cycle end, at or before grace end.
func (c BillingCycle) InGracePeriod(now time.Time) bool {
	return now.After(c.EndDate) && !now.After(c.GraceEndDate)
}

// OverdueAt reports whether the cycle should be flagged overdue: past the
// grace window with payment still incomplete.
func (c BillingCycle) OverdueAt(now time.Time) bool {
	return now.After(c.GraceEndDate) && c.PaymentStatus != CyclePaymentCompleted
}

// Payable reports whether a payment may still be recorded against the cycle.
func (c BillingCycle) Payable() bool {
	switch c.Status {
	case CycleStatusActive, CycleStatusPaymentPending, CycleStatusPaymentOverdue:
		return c.PaymentStatus != CyclePaymentCompleted
	default:
		return false
	}
}
