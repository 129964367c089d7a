package domain

import "math"

// Amounts is the frozen rupee breakdown for one cycle.
type Amounts struct {
	Base     int64
	Discount int64
	Final    int64
	GST      int64
	Total    int64
}

// ComputeAmounts derives a cycle's charge from the tier's base price. Only
// quarterly cycles earn the commitment discount. Rounding is half away from
// zero at each step, matching how the figures appear on the cycle statement.
func ComputeAmounts(base int64, cycleType CycleType, discountPercent, gstRate float64) Amounts {
	var discount int64
	if cycleType == CycleTypeQuarterly {
		discount = int64(math.Round(float64(base) * discountPercent / 100))
	}

	final := base - discount
	gst := int64(math.Round(float64(final) * gstRate / 100))

	return Amounts{
		Base:     base,
		Discount: discount,
		Final:    final,
		GST:      gst,
		Total:    final + gst,
	}
}
