package pricing

import (
	"fmt"
	"time"
)

// Validate checks the structural invariants of the configuration.
func (c PricingConfig) Validate() error {
	if c.Rate == nil {
		return configError("mode", "rate model is required")
	}
	if c.MaxDailyRate.IsNegative() {
		return configError("maxDailyRate", "must not be negative")
	}
	if c.PeakHours != nil {
		if err := validateRange("peakHours", *c.PeakHours); err != nil {
			return err
		}
	}
	return c.Rate.validate()
}

func (r FixedRate) validate() error {
	if r.StandardRate.IsNegative() {
		return configError("standardRate", "must not be negative")
	}
	if r.GracePeriodMinutes < 0 {
		return configError("gracePeriodMinutes", "must not be negative")
	}
	return nil
}

func (r ProgressiveRate) validate() error {
	if len(r.Tiers) == 0 {
		return configError("tiers", "must not be empty")
	}
	for i, t := range r.Tiers {
		if t.HoursThreshold <= 0 {
			return configError(fmt.Sprintf("tiers[%d].hoursThreshold", i), "must be greater than 0")
		}
		if t.RatePerHour.IsNegative() {
			return configError(fmt.Sprintf("tiers[%d].ratePerHour", i), "must not be negative")
		}
	}
	return nil
}

func (r TimeWindowRate) validate() error {
	if len(r.Windows) == 0 {
		return configError("windows", "must not be empty")
	}
	if r.DefaultRate.IsNegative() {
		return configError("defaultRate", "must not be negative")
	}
	for i, w := range r.Windows {
		field := fmt.Sprintf("windows[%d]", i)
		if w.RatePerHour.IsNegative() {
			return configError(field+".ratePerHour", "must not be negative")
		}
		if len(w.DaysOfWeek) == 0 {
			return configError(field+".daysOfWeek", "must not be empty")
		}
		for _, d := range w.DaysOfWeek {
			if d < Weekday(time.Sunday) || d > Weekday(time.Saturday) {
				return configError(field+".daysOfWeek", "invalid weekday %d", d)
			}
		}
		if err := validateRange(field, w.span()); err != nil {
			return err
		}
	}
	return nil
}

func validateRange(field string, r TimeRange) error {
	if r.Start < 0 || r.Start >= minutesPerDay {
		return configError(field+".start", "must be between 00:00 and 23:59")
	}
	if r.End < 0 || r.End > minutesPerDay {
		return configError(field+".end", "must be between 00:00 and 24:00")
	}
	if r.Start == r.End {
		return configError(field+".end", "must differ from start (use 00:00-24:00 for a whole day)")
	}
	return nil
}

// Validate checks a surge rule's structural invariants.
func (r SurgeRule) Validate() error {
	if r.OccupancyThreshold.IsNegative() || r.OccupancyThreshold.GreaterThan(hundred) {
		return configError("surgeRules.occupancyThreshold", "must be between 0 and 100")
	}
	switch r.Operator {
	case OpGreater, OpLess, OpEqual, OpGreaterOrEqual, OpLessOrEqual:
	default:
		return configError("surgeRules.operator", "unknown operator %q", r.Operator)
	}
	switch r.AdditionalType {
	case SurgePercentage, SurgeFixedAmount:
	default:
		return configError("surgeRules.additionalType", "unknown type %q", r.AdditionalType)
	}
	if r.AdditionalValue.IsNegative() {
		return configError("surgeRules.additionalValue", "must not be negative")
	}
	return nil
}

// Validate checks a coupon snapshot's structural invariants. Business eligibility is decided by
// ValidateCoupon, not here.
func (c Coupon) Validate() error {
	switch c.DiscountType {
	case DiscountPercentage:
		if c.DiscountValue.GreaterThan(hundred) {
			return configError("coupon.discountValue", "percentage must not exceed 100")
		}
	case DiscountFixed:
	default:
		return configError("coupon.discountType", "unknown discount type %q", c.DiscountType)
	}
	if c.DiscountValue.IsNegative() {
		return configError("coupon.discountValue", "must not be negative")
	}
	if c.MaxDiscountAmount.IsNegative() {
		return configError("coupon.maxDiscountAmount", "must not be negative")
	}
	if c.MinPurchaseAmount.IsNegative() {
		return configError("coupon.minPurchaseAmount", "must not be negative")
	}
	if c.Validity != nil && c.Validity.ValidTo.Before(c.Validity.ValidFrom) {
		return configError("coupon.validity", "validTo is before validFrom")
	}
	if c.Usage != nil {
		if c.Usage.Limit <= 0 {
			return configError("coupon.usage.limit", "must be greater than 0")
		}
		if c.Usage.Count < 0 {
			return configError("coupon.usage.count", "must not be negative")
		}
		if c.Usage.Count > c.Usage.Limit {
			return configError("coupon.usage.count", "exceeds limit")
		}
	}
	return nil
}

// Duration resolves the billable length of the session in whole minutes. Partial minutes are
// rounded up.
func (s ParkingSession) Duration() (int, error) {
	if s.EntryTime.IsZero() {
		return 0, sessionError("session.entryTime", "is required")
	}
	if s.OccupancyPercentAtExit.IsNegative() || s.OccupancyPercentAtExit.GreaterThan(hundred) {
		return 0, sessionError("session.occupancyPercentAtExit", "must be between 0 and 100")
	}
	if s.DurationMinutes != nil {
		if *s.DurationMinutes < 0 {
			return 0, sessionError("session.durationMinutes", "must not be negative")
		}
		return *s.DurationMinutes, nil
	}
	if s.ExitTime == nil {
		return 0, sessionError("session.exitTime", "exitTime or durationMinutes is required")
	}
	elapsed := s.ExitTime.Sub(s.EntryTime)
	if elapsed < 0 {
		return 0, sessionError("session.exitTime", "is before entryTime")
	}
	minutes := int(elapsed / time.Minute)
	if elapsed%time.Minute != 0 {
		minutes++
	}
	return minutes, nil
}
