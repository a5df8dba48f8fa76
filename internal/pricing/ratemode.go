package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// ComputeBaseCharge returns the pre-surge, pre-discount, pre-tax charge for a session, clamped
// to the configured daily cap and rounded to cents.
func ComputeBaseCharge(cfg PricingConfig, durationMinutes int, entry time.Time) Money {
	if durationMinutes <= 0 || cfg.Rate == nil {
		return decimal.Zero
	}
	charge := cfg.Rate.charge(durationMinutes, entry)
	return roundCents(ClampDaily(charge, cfg.MaxDailyRate))
}

// ClampDaily bounds charge by maxDailyRate. A zero cap means no cap.
func ClampDaily(charge, maxDailyRate Money) Money {
	if !maxDailyRate.IsPositive() {
		return charge
	}
	return minMoney(charge, maxDailyRate)
}

// billableHours rounds a duration up to whole hours.
func billableHours(durationMinutes int) int {
	return (durationMinutes + 59) / 60
}

func (r FixedRate) charge(durationMinutes int, _ time.Time) Money {
	if durationMinutes <= r.GracePeriodMinutes {
		return decimal.Zero
	}
	return r.StandardRate.Mul(decimal.NewFromInt(int64(billableHours(durationMinutes))))
}

// charge consumes tiers in list order. Hours left over once every tier is exhausted are billed at
// the last tier's rate.
func (r ProgressiveRate) charge(durationMinutes int, _ time.Time) Money {
	remaining := billableHours(durationMinutes)
	total := decimal.Zero
	for _, t := range r.Tiers {
		if remaining == 0 {
			break
		}
		hours := min(remaining, t.HoursThreshold)
		total = total.Add(t.RatePerHour.Mul(decimal.NewFromInt(int64(hours))))
		remaining -= hours
	}
	if remaining > 0 && len(r.Tiers) > 0 {
		last := r.Tiers[len(r.Tiers)-1]
		total = total.Add(last.RatePerHour.Mul(decimal.NewFromInt(int64(remaining))))
	}
	return total
}

func (r TimeWindowRate) charge(durationMinutes int, entry time.Time) Money {
	// Accumulate rate×minutes exactly and divide by 60 once.
	rateMinutes := decimal.Zero
	walkSegments(entry, durationMinutes, breakpoints(r.Windows), func(seg segment) bool {
		rate := r.DefaultRate
		if w, ok := matchWindow(r.Windows, seg.weekday, seg.minuteOfDay); ok {
			rate = w.RatePerHour
		}
		rateMinutes = rateMinutes.Add(rate.Mul(decimal.NewFromInt(int64(seg.minutes))))
		return true
	})
	return rateMinutes.Div(sixty)
}
