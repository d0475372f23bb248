// Package types provides numeric types shared by stock and money code.
package types

import (
	"github.com/shopspring/decimal"
)

func init() {
	// Quantities and prices travel as JSON numbers, matching NUMERIC columns.
	decimal.MarshalJSONWithoutQuotes = true
}

// Money is a monetary value with full precision.
type Money = decimal.Decimal

// Quantity is a stock amount: grams for raw ingredients, units for
// semi-finished and final products.
type Quantity = decimal.Decimal

// MustDecimal parses s, panics on error. Use only for constants and tests.
func MustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// QuantityScale is the number of decimals stored for stock quantities.
const QuantityScale int32 = 3

// RoundQty rounds q to the stored quantity scale.
func RoundQty(q Quantity) Quantity {
	return q.Round(QuantityScale)
}

// FormatQty renders a quantity with two decimals, as shown to operators.
func FormatQty(q Quantity) string {
	return q.StringFixed(2)
}

// FloorUnits returns how many whole units of per fit into available.
// A non-positive per yields zero.
func FloorUnits(available, per Quantity) int64 {
	if !per.IsPositive() || available.IsNegative() {
		return 0
	}
	return available.Div(per).Floor().IntPart()
}

// Percent returns part as a percentage of total rounded to two decimals.
// Zero total yields zero.
func Percent(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(decimal.NewFromInt(100)).Round(2)
}

// IsWhole reports whether q has no fractional part.
func IsWhole(q Quantity) bool {
	return q.Equal(q.Truncate(0))
}
