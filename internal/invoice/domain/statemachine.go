package domain

import "time"

// transitions is the explicit edge set of the invoice lifecycle. Anything not
// listed here is rejected; guards below add the payment-dependent rules.
var transitions = map[InvoiceStatus]map[InvoiceStatus]bool{
	InvoiceStatusDraft: {
		InvoiceStatusSent:      true,
		InvoiceStatusCancelled: true,
	},
	InvoiceStatusSent: {
		InvoiceStatusViewed:        true,
		InvoiceStatusPartiallyPaid: true,
		InvoiceStatusPaid:          true,
		InvoiceStatusOverdue:       true,
		InvoiceStatusCancelled:     true,
	},
	InvoiceStatusViewed: {
		InvoiceStatusPartiallyPaid: true,
		InvoiceStatusPaid:          true,
		InvoiceStatusOverdue:       true,
		InvoiceStatusCancelled:     true,
	},
	InvoiceStatusPartiallyPaid: {
		InvoiceStatusPaid:      true,
		InvoiceStatusOverdue:   true,
		InvoiceStatusCancelled: true,
	},
	InvoiceStatusOverdue: {
		InvoiceStatusPartiallyPaid: true,
		InvoiceStatusPaid:          true,
		InvoiceStatusCancelled:     true,
	},
	InvoiceStatusPaid:      {},
	InvoiceStatusCancelled: {},
}

// CanTransition reports whether the edge exists, ignoring guards.
func CanTransition(from, to InvoiceStatus) bool {
	return transitions[from][to]
}

// Transition validates and applies a status change, stamping the lifecycle
// timestamps. Cancellation is refused once any payment has been recorded.
func (i *Invoice) Transition(to InvoiceStatus, now time.Time) error {
	if !CanTransition(i.Status, to) {
		return ErrInvalidTransition
	}

	if to == InvoiceStatusCancelled && i.AmountPaid > 0 {
		return ErrCancelWithPayments
	}

	switch to {
	case InvoiceStatusSent:
		i.SentAt = &now
	case InvoiceStatusViewed:
		i.ViewedAt = &now
	case InvoiceStatusPaid:
		i.PaidAt = &now
	case InvoiceStatusCancelled:
		i.CancelledAt = &now
	}

	i.Status = to
	i.UpdatedAt = now
	return nil
}

// Editable reports whether invoice content may still change. Paid and
// cancelled invoices are frozen.
func (i Invoice) Editable() bool {
	return i.Status != InvoiceStatusPaid && i.Status != InvoiceStatusCancelled
}

// PaymentStatus derives the status implied by the amounts after a payment
// lands at the given instant. A past-due invoice with money still owed stays
// overdue instead of flipping back to partially_paid. The caller transitions
// to it.
func (i Invoice) PaymentStatus(now time.Time) InvoiceStatus {
	if i.Balance() <= 0 {
		return InvoiceStatusPaid
	}
	if now.After(i.DueDate) {
		return InvoiceStatusOverdue
	}
	return InvoiceStatusPartiallyPaid
}

// OverdueAt reports whether the invoice should flip to overdue at the given
// instant: past due date with money still owed, in a state that can age.
func (i Invoice) OverdueAt(now time.Time) bool {
	if !CanTransition(i.Status, InvoiceStatusOverdue) {
		return false
	}
	if i.Balance() <= 0 {
		return false
	}
	return now.After(i.DueDate)
}
