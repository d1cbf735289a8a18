// Package money implements the arbitrary-precision decimal arithmetic and
// eCH-0196 rounding rule used across the calculation engine. Nothing here
// touches binary floating point: every monetary quantity is a
// shopspring/decimal.Decimal from the moment it enters the tree.
package money

import (
	"github.com/shopspring/decimal"
)

// CHF is the statement's reporting currency.
const CHF = "CHF"

// Zero is the canonical zero decimal, exported so callers don't repeatedly
// spell decimal.NewFromInt(0).
var Zero = decimal.Zero

// RoundSum applies the eCH-0196/DIN 1333 HALF-UP rounding rule used at sum
// boundaries only (TotalCalculator, §4.5): values with |x| < 100 round to 3
// decimals, values with |x| >= 100 round to 2 decimals. Individual line
// items are never rounded; only sums are.
func RoundSum(x decimal.Decimal) decimal.Decimal {
	if x.Abs().LessThan(decimal.NewFromInt(100)) {
		return x.Round(3)
	}
	return x.Round(2)
}

// Round2 rounds to 2 decimal places HALF-UP (decimal.Decimal.Round rounds
// half away from zero), the convention used for withholding-tax-claim
// computations (35% of a CHF amount) regardless of magnitude.
func Round2(x decimal.Decimal) decimal.Decimal {
	return x.Round(2)
}

// SwissWithHoldingTaxRate is the statutory Swiss withholding tax rate
// applied to type-A revenue (35%).
var SwissWithHoldingTaxRate = decimal.New(35, -2)

// WithHoldingTaxClaim computes chfRevenue * 0.35 rounded HALF-UP to 0.01,
// the formula used by both MinimalTaxValueCalculator (bank interest) and
// KurslisteTaxValueCalculator (security payments).
func WithHoldingTaxClaim(chfRevenue decimal.Decimal) decimal.Decimal {
	return Round2(chfRevenue.Mul(SwissWithHoldingTaxRate))
}

// Equal implements the decimal-aware equality used by setFieldValue's
// Verify mode: exact comparison, no epsilon. Two decimals that represent
// the same number but were constructed with different scales (e.g. "1" and
// "1.00") compare equal, matching decimal.Decimal.Equal semantics.
func Equal(a, b decimal.Decimal) bool {
	return a.Equal(b)
}

// IsZero reports whether d is the exact zero value.
func IsZero(d decimal.Decimal) bool {
	return d.IsZero()
}
