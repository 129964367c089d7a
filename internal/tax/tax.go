// Package tax computes GST/TDS breakdowns for invoices. Calculation is a pure
// function of line items, discount and settings; callers persist the returned
// snapshot alongside the invoice and re-run it whenever any input changes.
package tax

import "time"

// GSTType selects how GST is split across the statutory fields.
type GSTType string

const (
	// GSTTypeSplit is intra-state supply: CGST + SGST halves.
	GSTTypeSplit GSTType = "CGST_SGST"
	// GSTTypeInterstate is inter-state supply: a single IGST amount.
	GSTTypeInterstate GSTType = "IGST"
)

// LineItem is the priced input for one invoice line. Amount is derived, not
// read; quantity and rate are authoritative.
type LineItem struct {
	Quantity        float64 `json:"quantity"`
	Rate            float64 `json:"rate"`
	DiscountPercent float64 `json:"discount_percent,omitempty"`
	DiscountAmount  float64 `json:"discount_amount,omitempty"`
}

// Discount is an overall invoice discount. Percent takes precedence over
// Amount when both are set.
type Discount struct {
	Percent float64 `json:"percent,omitempty"`
	Amount  float64 `json:"amount,omitempty"`
}

// GSTSettings controls GST application for one invoice.
type GSTSettings struct {
	Apply bool    `json:"apply"`
	Rate  float64 `json:"rate"`
	Type  GSTType `json:"type"`
}

// TDSSettings controls TDS withholding for one invoice.
type TDSSettings struct {
	Apply     bool      `json:"apply"`
	Rate      float64   `json:"rate"`
	Exemption Exemption `json:"exemption"`
}

// Exemption is a TDS exemption certificate. It suppresses withholding only
// while unexpired.
type Exemption struct {
	Has         bool       `json:"has"`
	Certificate string     `json:"certificate,omitempty"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`
}

// Valid reports whether the exemption suppresses TDS at the given instant.
func (e Exemption) Valid(asOf time.Time) bool {
	if !e.Has || e.Certificate == "" {
		return false
	}
	if e.ValidUntil == nil {
		return false
	}
	return !asOf.After(*e.ValidUntil)
}

// Settings is the full tax configuration for one calculation.
type Settings struct {
	GST GSTSettings `json:"gst"`
	TDS TDSSettings `json:"tds"`
}

// Calculation is the audit snapshot: every intermediate figure is retained so
// the final amount can be re-derived later.
type Calculation struct {
	ItemAmounts   []float64 `json:"item_amounts"`
	Subtotal      float64   `json:"subtotal"`
	TotalDiscount float64   `json:"total_discount"`
	TaxableAmount float64   `json:"taxable_amount"`
	GSTAmount     float64   `json:"gst_amount"`
	CGSTAmount    float64   `json:"cgst_amount"`
	SGSTAmount    float64   `json:"sgst_amount"`
	IGSTAmount    float64   `json:"igst_amount"`
	TotalWithGST  float64   `json:"total_with_gst"`
	TDSAmount     float64   `json:"tds_amount"`
	FinalAmount   float64   `json:"final_amount"`
}

// ItemAmount prices a single line: quantity times rate, reduced by the line
// discount. Percentage discount wins over fixed; a fixed discount never takes
// the line negative.
func ItemAmount(item LineItem) float64 {
	amount := item.Quantity * item.Rate
	switch {
	case item.DiscountPercent > 0:
		amount -= amount * item.DiscountPercent / 100
	case item.DiscountAmount > 0:
		amount -= item.DiscountAmount
	}
	if amount < 0 {
		return 0
	}
	return amount
}

func applyDiscount(base float64, discount Discount) float64 {
	switch {
	case discount.Percent > 0:
		base -= base * discount.Percent / 100
	case discount.Amount > 0:
		base -= discount.Amount
	}
	if base < 0 {
		return 0
	}
	return base
}

// Calculate produces the deterministic tax breakdown for the given inputs.
// asOf only matters for TDS exemption expiry. Rates are taken as-is;
// validating their range is the caller's concern.
func Calculate(items []LineItem, discount Discount, settings Settings, asOf time.Time) Calculation {
	calc := Calculation{ItemAmounts: make([]float64, 0, len(items))}

	for _, item := range items {
		amount := ItemAmount(item)
		calc.ItemAmounts = append(calc.ItemAmounts, amount)
		calc.Subtotal += amount
	}

	calc.TaxableAmount = applyDiscount(calc.Subtotal, discount)
	calc.TotalDiscount = calc.Subtotal - calc.TaxableAmount

	calc.TotalWithGST = calc.TaxableAmount
	if settings.GST.Apply {
		calc.GSTAmount = calc.TaxableAmount * settings.GST.Rate / 100
		if settings.GST.Type == GSTTypeInterstate {
			calc.IGSTAmount = calc.GSTAmount
		} else {
			calc.CGSTAmount = calc.GSTAmount / 2
			calc.SGSTAmount = calc.GSTAmount / 2
		}
		calc.TotalWithGST = calc.TaxableAmount + calc.GSTAmount
	}

	if settings.TDS.Apply && !settings.TDS.Exemption.Valid(asOf) {
		calc.TDSAmount = calc.TotalWithGST * settings.TDS.Rate / 100
	}

	calc.FinalAmount = calc.TotalWithGST - calc.TDSAmount
	return calc
}
