// Package money concentra o arredondamento monetário.
package money

import "github.com/shopspring/decimal"

// Places is the scale of every stored amount.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Round arredonda para centavos, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Percent returns round(amount * pct / 100).
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return Round(amount.Mul(pct).Div(hundred))
}

// Max0 clamps negative amounts to zero.
func Max0(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// MustParse is a convenience for literals in seed data and tests.
func MustParse(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
