// Package money holds the fixed-point arithmetic used for prices and totals.
package money

import "github.com/shopspring/decimal"

// Scale is the number of fractional digits persisted for amounts.
const Scale = 2

// Subtotal returns unitPrice × qty rounded half away from zero to two places.
// This is the only rounding step; totals sum already rounded subtotals.
func Subtotal(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty))).Round(Scale)
}

// Sum adds amounts without further rounding.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return total
}

// Format renders an amount with exactly two fractional digits.
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(Scale)
}
