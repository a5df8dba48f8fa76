package pricing

import "github.com/shopspring/decimal"

// DefaultTaxRate is the flat tax percentage applied when a config includes tax.
var DefaultTaxRate = decimal.NewFromInt(8)

// ApplyTax returns the tax owed on the post-discount total, rounded half-up to cents.
func ApplyTax(postDiscountTotal Money, includeTax bool, rate Percent) Money {
	if !includeTax {
		return decimal.Zero
	}
	return roundCents(percentOf(postDiscountTotal, rate))
}
