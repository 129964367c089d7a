package domain

import (
	"math"
	"time"
)

// Prorate computes the refund/charge split for switching tiers with part of
// the cycle remaining. Daily rates divide the quarterly price first; the
// multiplication happens second so the rupee rounding matches the statement
// figures.
func Prorate(fromPrice, toPrice int64, prorationDays int, cycleEnd, now time.Time) Proration {
	fromDaily := float64(fromPrice) / float64(prorationDays)
	toDaily := float64(toPrice) / float64(prorationDays)

	remaining := int(math.Ceil(cycleEnd.Sub(now).Hours() / 24))
	if remaining < 0 {
		remaining = 0
	}

	refund := int64(math.Round(fromDaily * float64(remaining)))
	charge := int64(math.Round(toDaily * float64(remaining)))

	return Proration{
		RemainingDays: remaining,
		FromDailyRate: fromDaily,
		ToDailyRate:   toDaily,
		RefundAmount:  refund,
		ChargeAmount:  charge,
		NetAmount:     charge - refund,
	}
}
