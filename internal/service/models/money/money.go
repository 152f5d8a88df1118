// Package money holds the fixed-point helpers used for every monetary value.
package money

import "github.com/shopspring/decimal"

// Scale is the number of decimal places stored for monetary amounts.
const Scale = 2

var hundred = decimal.NewFromInt(100)

// Round2 rounds d to two decimal places, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// HasCents reports whether d needs no more than Scale decimal places.
func HasCents(d decimal.Decimal) bool {
	return d.Equal(Round2(d))
}

// Percent converts a percentage like 18 into the factor 0.18.
func Percent(p decimal.Decimal) decimal.Decimal {
	return p.Div(hundred)
}

// Sum adds values without rounding.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}

	return total
}
