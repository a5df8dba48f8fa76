package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Calculator runs the pricing pipeline. It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	taxRate     Percent
	defaultPeak TimeRange
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithTaxRate overrides DefaultTaxRate.
func WithTaxRate(rate Percent) Option {
	return func(c *Calculator) {
		c.taxRate = rate
	}
}

// WithPeakHours sets the peak range used by peak-only coupons when a config defines none.
func WithPeakHours(r TimeRange) Option {
	return func(c *Calculator) {
		c.defaultPeak = r
	}
}

// NewCalculator creates a calculator. The default peak range is 07:00-10:00.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		taxRate:     DefaultTaxRate,
		defaultPeak: TimeRange{Start: NewTimeOfDay(7, 0), End: NewTimeOfDay(10, 0)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TaxRate returns the tax percentage applied by this calculator.
func (c *Calculator) TaxRate() Percent {
	return c.taxRate
}

// Compute prices a session. Steps run in a fixed order: base charge (capped), surge, coupon
// discount, tax. Only malformed input returns an error; an ineligible coupon yields a zero
// discount and a CouponRejection reason.
func (c *Calculator) Compute(session ParkingSession, cfg PricingConfig, rules []SurgeRule, coupon *Coupon) (PriceBreakdown, error) {
	duration, err := c.validate(session, cfg, rules, coupon)
	if err != nil {
		return PriceBreakdown{}, err
	}

	base := ComputeBaseCharge(cfg, duration, session.EntryTime)
	surcharge, surgeRuleID := EvaluateSurge(rules, session.OccupancyPercentAtExit, base)
	preDiscount := base.Add(surcharge)

	discount := decimal.Zero
	var rejection CouponReason
	var couponCode string
	if session.AppliedCouponCode != "" {
		result := ValidateCoupon(coupon, CouponInput{
			Code:             session.AppliedCouponCode,
			Location:         session.Location,
			Entry:            session.EntryTime,
			DurationMinutes:  duration,
			FirstTimeUser:    session.IsFirstTimeUser,
			PreDiscountTotal: preDiscount,
			EvaluatedAt:      session.EntryTime.Add(time.Duration(duration) * time.Minute),
			peak:             peakScheduleFor(cfg, c.defaultPeak),
		})
		if result.Valid {
			discount = ApplyCoupon(*coupon, preDiscount)
			couponCode = coupon.Code
		} else {
			rejection = result.Reason
		}
	}

	postDiscount := maxMoney(decimal.Zero, preDiscount.Sub(discount))
	tax := ApplyTax(postDiscount, cfg.IncludeTax, c.taxRate)

	return PriceBreakdown{
		Mode:            cfg.Rate.Mode(),
		DurationMinutes: duration,
		BaseCharge:      base,
		SurgeSurcharge:  surcharge,
		DiscountAmount:  discount,
		TaxAmount:       tax,
		TotalDue:        postDiscount.Add(tax),
		AppliedRuleIDs: AppliedRules{
			SurgeRule: surgeRuleID,
			Coupon:    couponCode,
		},
		CouponRejection: rejection,
	}, nil
}

func (c *Calculator) validate(session ParkingSession, cfg PricingConfig, rules []SurgeRule, coupon *Coupon) (int, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return 0, fmt.Errorf("surge rule %d: %w", i, err)
		}
	}
	if coupon != nil {
		if err := coupon.Validate(); err != nil {
			return 0, err
		}
	}
	return session.Duration()
}
