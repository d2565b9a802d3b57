package model

import "math"

// ToCents converts a major-unit amount to integer cents, rounding half away
// from zero. The backend prices in major units ("cost": 19.99).
// Examples: 19.99 → 1999, 0.1 → 10, -0.5 → -50
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromCents converts integer cents back to a major-unit amount.
func FromCents(cents int64) float64 {
	return float64(cents) / 100
}

// LineCents returns a line's subtotal in cents. The product is rounded, not
// the unit cost, so sub-cent prices still count: 0.004 × 1000 → 400.
// Summing these instead of float subtotals keeps cart totals exact to the cent.
func LineCents(unitCost float64, quantity int) int64 {
	return ToCents(unitCost * float64(quantity))
}
