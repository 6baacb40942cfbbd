package domain

import "math"

// Totals are the derived monetary values of an invoice. No rounding is
// applied here; display formatting rounds to two decimals but stored and
// compared values keep full precision.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// ComputeTotals derives subtotal, tax and total from the line items and a
// tax rate in percent. Non-finite inputs contribute zero instead of
// failing: an invoice must always be displayable.
func ComputeTotals(items []LineItem, taxRatePercent float64) Totals {
	var subtotal float64
	for _, item := range items {
		subtotal += finiteOrZero(item.Amount())
	}

	rate := finiteOrZero(taxRatePercent)
	tax := subtotal * rate / 100

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal + tax,
	}
}

// InferTaxRatePercent recovers the tax rate from a stored subtotal/tax
// pair. The rate itself is not persisted, so every load of an editable
// invoice goes through this inverse before the rate can be shown or
// edited again. Zero subtotal or a non-finite ratio yields 0 rather than
// propagating a divide-by-zero into the edit form.
func InferTaxRatePercent(subtotal, tax float64) float64 {
	if subtotal <= 0 {
		return 0
	}
	rate := tax / subtotal * 100
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0
	}
	return math.Round(rate*100) / 100
}

func finiteOrZero(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}
