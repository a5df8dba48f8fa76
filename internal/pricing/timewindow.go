package pricing

import (
	"slices"
	"time"
)

// segment is a run of minutes within one calendar day during which no window boundary is crossed.
type segment struct {
	minutes     int
	weekday     time.Weekday
	minuteOfDay int
}

func (w TimeWindow) span() TimeRange {
	return TimeRange{Start: w.StartTime, End: w.EndTime}
}

func (w TimeWindow) covers(day time.Weekday, minuteOfDay int) bool {
	return slices.Contains(w.DaysOfWeek, Weekday(day)) && w.span().covers(minuteOfDay)
}

// matchWindow returns the first window in list order covering the given weekday and minute.
func matchWindow(windows []TimeWindow, day time.Weekday, minuteOfDay int) (TimeWindow, bool) {
	for _, w := range windows {
		if w.covers(day, minuteOfDay) {
			return w, true
		}
	}
	return TimeWindow{}, false
}

// breakpoints returns every minute-of-day at which some window starts or ends.
func breakpoints(windows []TimeWindow) []int {
	out := make([]int, 0, 2*len(windows))
	for _, w := range windows {
		out = append(out, int(w.StartTime)%minutesPerDay, int(w.EndTime)%minutesPerDay)
	}
	return out
}

// walkSegments splits [entry, entry+durationMinutes) at every midnight and every breakpoint, in the
// entry time's location, and calls fn for each segment in order. fn returns false to stop early.
// The entry time is truncated to the minute.
func walkSegments(entry time.Time, durationMinutes int, points []int, fn func(segment) bool) {
	cursor := entry.Truncate(time.Minute)
	end := cursor.Add(time.Duration(durationMinutes) * time.Minute)
	loc := cursor.Location()

	for cursor.Before(end) {
		y, m, d := cursor.Date()
		minuteOfDay := cursor.Hour()*60 + cursor.Minute()

		next := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
		for _, p := range points {
			if p <= minuteOfDay {
				continue
			}
			candidate := time.Date(y, m, d, 0, p, 0, 0, loc)
			if candidate.After(cursor) && candidate.Before(next) {
				next = candidate
			}
		}
		if next.After(end) {
			next = end
		}
		if !next.After(cursor) {
			return
		}

		seg := segment{
			minutes:     int(next.Sub(cursor) / time.Minute),
			weekday:     cursor.Weekday(),
			minuteOfDay: minuteOfDay,
		}
		if !fn(seg) {
			return
		}
		cursor = next
	}
}

// peakSchedule decides whether a session touches peak time.
type peakSchedule struct {
	windows []TimeWindow
}

var allDays = []Weekday{
	Weekday(time.Sunday), Weekday(time.Monday), Weekday(time.Tuesday), Weekday(time.Wednesday),
	Weekday(time.Thursday), Weekday(time.Friday), Weekday(time.Saturday),
}

// peakScheduleFor prefers the config's peak-flagged windows, then its PeakHours, then fallback.
func peakScheduleFor(cfg PricingConfig, fallback TimeRange) peakSchedule {
	if tw, ok := cfg.Rate.(TimeWindowRate); ok {
		var peaks []TimeWindow
		for _, w := range tw.Windows {
			if w.Peak {
				peaks = append(peaks, w)
			}
		}
		if len(peaks) > 0 {
			return peakSchedule{windows: peaks}
		}
	}
	r := fallback
	if cfg.PeakHours != nil {
		r = *cfg.PeakHours
	}
	return peakSchedule{windows: []TimeWindow{{Name: "peak", StartTime: r.Start, EndTime: r.End, DaysOfWeek: allDays}}}
}

func (p peakSchedule) overlaps(entry time.Time, durationMinutes int) bool {
	hit := false
	walkSegments(entry, durationMinutes, breakpoints(p.windows), func(seg segment) bool {
		_, hit = matchWindow(p.windows, seg.weekday, seg.minuteOfDay)
		return !hit
	})
	return hit
}
