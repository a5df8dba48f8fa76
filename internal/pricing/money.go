package pricing

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
	sixty   = decimal.NewFromInt(60)
)

// roundCents rounds to two decimal places, half away from zero. Amounts here are never negative,
// so this is half-up.
func roundCents(m Money) Money {
	return m.Round(2)
}

// percentOf returns amount × pct / 100.
func percentOf(amount Money, pct Percent) Money {
	return amount.Mul(pct).Div(hundred)
}

func minMoney(a, b Money) Money {
	if a.LessThan(b) {
		return a
	}
	return b
}

func maxMoney(a, b Money) Money {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
