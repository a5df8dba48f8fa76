package pricing

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// TimeOfDay is a minute of the day in [0, 1440]. 1440 ("24:00") is only meaningful as an end time.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from hours and minutes.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time of day %q: expected HH:MM", s)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid time of day %q: out of range", s)
	}
	return NewTimeOfDay(h, m), nil
}

// String formats as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalText implements encoding.TextMarshaler
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Weekday is a time.Weekday that serialises as its English name.
type Weekday time.Weekday

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// MarshalText implements encoding.TextMarshaler
func (d Weekday) MarshalText() ([]byte, error) {
	return []byte(time.Weekday(d).String()[:3]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Weekday) UnmarshalText(b []byte) error {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(string(b)))]
	if !ok {
		return fmt.Errorf("invalid weekday %q", string(b))
	}
	*d = Weekday(wd)
	return nil
}

// UnmarshalText accepts the ASCII operators and their ≥/≤ spellings.
func (o *SurgeOperator) UnmarshalText(b []byte) error {
	switch s := strings.TrimSpace(string(b)); s {
	case "≥":
		*o = OpGreaterOrEqual
	case "≤":
		*o = OpLessOrEqual
	case "==":
		*o = OpEqual
	default:
		*o = SurgeOperator(s)
	}
	return nil
}

// pricingConfigJSON is the flat wire form of PricingConfig: mode plus the fields of that mode.
type pricingConfigJSON struct {
	Mode         RateMode   `json:"mode"`
	MaxDailyRate Money      `json:"maxDailyRate"`
	IncludeTax   bool       `json:"includeTax"`
	PeakHours    *TimeRange `json:"peakHours,omitempty"`

	StandardRate       *Money `json:"standardRate,omitempty"`
	GracePeriodMinutes *int   `json:"gracePeriodMinutes,omitempty"`

	Tiers []Tier `json:"tiers,omitempty"`

	Windows     []TimeWindow `json:"windows,omitempty"`
	DefaultRate *Money       `json:"defaultRate,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (c PricingConfig) MarshalJSON() ([]byte, error) {
	w := pricingConfigJSON{
		MaxDailyRate: c.MaxDailyRate,
		IncludeTax:   c.IncludeTax,
		PeakHours:    c.PeakHours,
	}
	switch r := c.Rate.(type) {
	case FixedRate:
		w.Mode = ModeFixed
		w.StandardRate = &r.StandardRate
		w.GracePeriodMinutes = &r.GracePeriodMinutes
	case ProgressiveRate:
		w.Mode = ModeProgressive
		w.Tiers = r.Tiers
	case TimeWindowRate:
		w.Mode = ModeTimeWindow
		w.Windows = r.Windows
		w.DefaultRate = &r.DefaultRate
	default:
		return nil, configError("mode", "no rate model set")
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the flat wire form and rejects configurations that populate the fields of
// more than one mode.
func (c *PricingConfig) UnmarshalJSON(b []byte) error {
	var w pricingConfigJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	fixedSet := w.StandardRate != nil || w.GracePeriodMinutes != nil
	progressiveSet := w.Tiers != nil
	windowSet := w.Windows != nil || w.DefaultRate != nil

	var rate RateModel
	switch w.Mode {
	case ModeFixed:
		if progressiveSet || windowSet {
			return configError("mode", "Fixed config carries fields of another mode")
		}
		if w.StandardRate == nil {
			return configError("standardRate", "required for Fixed mode")
		}
		fixed := FixedRate{StandardRate: *w.StandardRate}
		if w.GracePeriodMinutes != nil {
			fixed.GracePeriodMinutes = *w.GracePeriodMinutes
		}
		rate = fixed
	case ModeProgressive:
		if fixedSet || windowSet {
			return configError("mode", "Progressive config carries fields of another mode")
		}
		if w.Tiers == nil {
			return configError("tiers", "required for Progressive mode")
		}
		rate = ProgressiveRate{Tiers: w.Tiers}
	case ModeTimeWindow:
		if fixedSet || progressiveSet {
			return configError("mode", "TimeWindow config carries fields of another mode")
		}
		if w.Windows == nil {
			return configError("windows", "required for TimeWindow mode")
		}
		if w.DefaultRate == nil {
			return configError("defaultRate", "required for TimeWindow mode")
		}
		rate = TimeWindowRate{Windows: w.Windows, DefaultRate: *w.DefaultRate}
	default:
		return configError("mode", "unknown mode %q", w.Mode)
	}

	*c = PricingConfig{
		Rate:         rate,
		MaxDailyRate: w.MaxDailyRate,
		IncludeTax:   w.IncludeTax,
		PeakHours:    w.PeakHours,
	}
	return nil
}

// priceBreakdownJSON carries breakdown amounts as JSON numbers. Other decimals keep the library's
// quoted encoding.
type priceBreakdownJSON struct {
	Mode            RateMode     `json:"mode"`
	DurationMinutes int          `json:"durationMinutes"`
	BaseCharge      json.Number  `json:"baseCharge"`
	SurgeSurcharge  json.Number  `json:"surgeSurcharge"`
	DiscountAmount  json.Number  `json:"discountAmount"`
	TaxAmount       json.Number  `json:"taxAmount"`
	TotalDue        json.Number  `json:"totalDue"`
	AppliedRuleIDs  AppliedRules `json:"appliedRuleIds"`
	CouponRejection CouponReason `json:"couponRejection,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (b PriceBreakdown) MarshalJSON() ([]byte, error) {
	return json.Marshal(priceBreakdownJSON{
		Mode:            b.Mode,
		DurationMinutes: b.DurationMinutes,
		BaseCharge:      json.Number(b.BaseCharge.String()),
		SurgeSurcharge:  json.Number(b.SurgeSurcharge.String()),
		DiscountAmount:  json.Number(b.DiscountAmount.String()),
		TaxAmount:       json.Number(b.TaxAmount.String()),
		TotalDue:        json.Number(b.TotalDue.String()),
		AppliedRuleIDs:  b.AppliedRuleIDs,
		CouponRejection: b.CouponRejection,
	})
}
