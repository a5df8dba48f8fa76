package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func percentCoupon(value, maxDiscount string) Coupon {
	return Coupon{
		Code:              "SAVE15",
		DiscountType:      DiscountPercentage,
		DiscountValue:     money(value),
		MaxDiscountAmount: money(maxDiscount),
	}
}

func TestApplyCoupon(t *testing.T) {
	tests := []struct {
		name   string
		coupon Coupon
		pre    string
		want   string
	}{
		{"percentage capped by max discount", percentCoupon("15", "5.00"), "50.00", "5.00"},
		{"percentage without cap", percentCoupon("15", "0"), "50.00", "7.50"},
		{"percentage rounded to cents", percentCoupon("12.5", "0"), "0.99", "0.12"},
		{"fixed below total", Coupon{DiscountType: DiscountFixed, DiscountValue: money("3")}, "10.00", "3"},
		{"fixed never exceeds total", Coupon{DiscountType: DiscountFixed, DiscountValue: money("30")}, "10.00", "10.00"},
		{"nothing to discount", percentCoupon("50", "0"), "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertMoney(t, tt.want, ApplyCoupon(tt.coupon, money(tt.pre)))
		})
	}
}

func TestApplyCoupon_Bounded(t *testing.T) {
	for _, pre := range []string{"0.01", "1", "9.99", "49.5", "120"} {
		for _, c := range []Coupon{
			percentCoupon("100", "0"),
			percentCoupon("33", "2"),
			{DiscountType: DiscountFixed, DiscountValue: money("15")},
		} {
			got := ApplyCoupon(c, money(pre))
			assert.False(t, got.IsNegative())
			assert.False(t, got.GreaterThan(money(pre)))
			if c.DiscountType == DiscountPercentage && c.MaxDiscountAmount.IsPositive() {
				assert.False(t, got.GreaterThan(c.MaxDiscountAmount))
			}
		}
	}
}

func baseInput() CouponInput {
	return CouponInput{
		Code:             "SAVE15",
		Location:         "lot-a",
		Entry:            monday(9, 0),
		DurationMinutes:  180,
		FirstTimeUser:    true,
		PreDiscountTotal: money("50.00"),
		EvaluatedAt:      monday(12, 0),
		peak:             peakScheduleFor(fixedConfig("5", "0", 0), TimeRange{Start: NewTimeOfDay(7, 0), End: NewTimeOfDay(10, 0)}),
	}
}

func TestValidateCoupon_ReasonOrder(t *testing.T) {
	valid := percentCoupon("15", "5")

	tests := []struct {
		name   string
		coupon *Coupon
		mutate func(*Coupon, *CouponInput)
		want   CouponReason
	}{
		{"nil coupon", nil, func(*Coupon, *CouponInput) {}, ReasonCouponNotFound},
		{"code mismatch", &valid, func(_ *Coupon, in *CouponInput) { in.Code = "OTHER" }, ReasonCouponNotFound},
		{"expired", &valid, func(c *Coupon, _ *CouponInput) {
			c.Validity = &Validity{ValidFrom: monday(0, 0).AddDate(0, -1, 0), ValidTo: monday(11, 0)}
		}, ReasonCouponExpired},
		{"not yet valid", &valid, func(c *Coupon, _ *CouponInput) {
			c.Validity = &Validity{ValidFrom: monday(13, 0), ValidTo: monday(23, 0)}
		}, ReasonCouponExpired},
		{"exhausted", &valid, func(c *Coupon, _ *CouponInput) { c.Usage = &Usage{Limit: 3, Count: 3} }, ReasonCouponExhausted},
		{"wrong location", &valid, func(c *Coupon, _ *CouponInput) { c.EligibleLocations = []string{"lot-b"} }, ReasonLocationIneligible},
		{"below minimum", &valid, func(c *Coupon, _ *CouponInput) { c.MinPurchaseAmount = money("60") }, ReasonBelowMinimumPurchase},
		{"first time only", &valid, func(c *Coupon, in *CouponInput) {
			c.Conditions.FirstTimeUsersOnly = true
			in.FirstTimeUser = false
		}, ReasonConditionUnmet},
		{"weekends only", &valid, func(c *Coupon, _ *CouponInput) { c.Conditions.WeekendsOnly = true }, ReasonConditionUnmet},
		{"multiple hours", &valid, func(c *Coupon, in *CouponInput) {
			c.Conditions.MultipleHoursRequired = true
			in.DurationMinutes = 119
		}, ReasonConditionUnmet},
		{"peak hours", &valid, func(c *Coupon, in *CouponInput) {
			c.Conditions.PeakHoursOnly = true
			in.Entry = monday(13, 0)
		}, ReasonConditionUnmet},
		{"expiry checked before exhaustion", &valid, func(c *Coupon, _ *CouponInput) {
			c.Validity = &Validity{ValidFrom: monday(13, 0), ValidTo: monday(23, 0)}
			c.Usage = &Usage{Limit: 1, Count: 1}
		}, ReasonCouponExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput()
			var c *Coupon
			if tt.coupon != nil {
				cp := *tt.coupon
				c = &cp
			}
			tt.mutate(c, &in)
			got := ValidateCoupon(c, in)
			assert.False(t, got.Valid)
			assert.Equal(t, tt.want, got.Reason)
		})
	}
}

func TestValidateCoupon_Eligible(t *testing.T) {
	c := percentCoupon("15", "5")
	c.Code = "save15"
	c.EligibleLocations = []string{"lot-a", "lot-c"}
	c.Validity = &Validity{ValidFrom: monday(0, 0), ValidTo: monday(12, 0)}
	c.Usage = &Usage{Limit: 10, Count: 9}
	c.MinPurchaseAmount = money("50.00")
	c.Conditions = CouponConditions{FirstTimeUsersOnly: true, PeakHoursOnly: true, MultipleHoursRequired: true}

	got := ValidateCoupon(&c, baseInput())
	assert.True(t, got.Valid)
	assert.Empty(t, got.Reason)
}

func TestValidateCoupon_WeekendEntry(t *testing.T) {
	c := percentCoupon("15", "0")
	c.Conditions.WeekendsOnly = true
	in := baseInput()
	in.Entry = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	assert.True(t, ValidateCoupon(&c, in).Valid)
}

func TestPeakSchedule(t *testing.T) {
	fallback := TimeRange{Start: NewTimeOfDay(7, 0), End: NewTimeOfDay(10, 0)}

	// Flagged windows take precedence: Morning (08:00-12:00, weekdays) is the peak.
	windowPeak := peakScheduleFor(windowConfig("0"), fallback)
	assert.True(t, windowPeak.overlaps(monday(7, 30), 31))
	assert.False(t, windowPeak.overlaps(monday(7, 30), 30))
	assert.False(t, windowPeak.overlaps(time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC), 60))

	// Config peak range overrides the fallback.
	cfg := fixedConfig("5", "0", 0)
	cfg.PeakHours = &TimeRange{Start: NewTimeOfDay(17, 0), End: NewTimeOfDay(19, 0)}
	configPeak := peakScheduleFor(cfg, fallback)
	assert.False(t, configPeak.overlaps(monday(8, 0), 60))
	assert.True(t, configPeak.overlaps(monday(16, 0), 90))

	fallbackPeak := peakScheduleFor(fixedConfig("5", "0", 0), fallback)
	assert.True(t, fallbackPeak.overlaps(monday(9, 59), 1))
	assert.False(t, fallbackPeak.overlaps(monday(10, 0), 600))
	assert.True(t, fallbackPeak.overlaps(monday(23, 0), 8*60+1))
}
