package activity

import (
	"fmt"
	"time"
)

// Window is a query range. A zero End means open-ended up to now.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t is inside [Start, End).
func (w Window) Contains(t time.Time) bool {
	if t.Before(w.Start) {
		return false
	}
	return w.End.IsZero() || t.Before(w.End)
}

// Period values accepted by the app usage report.
const (
	PeriodToday     = "today"
	PeriodYesterday = "yesterday"
	PeriodWeek      = "week"
	PeriodMonth     = "month"
	Period90Days    = "90days"
	PeriodAll       = "all"
)

// Range values accepted by the historical, trend and export reports.
const (
	Range7Days  = "7days"
	Range30Days = "30days"
	Range90Days = "90days"
	RangeYear   = "year"
)

var epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// PeriodWindow resolves an app usage period at now. An empty period is
// today; an unrecognised one covers all data.
func PeriodWindow(period string, now time.Time) Window {
	today := StartOfDay(now)
	switch period {
	case "", PeriodToday:
		return Window{Start: today}
	case PeriodYesterday:
		return Window{Start: today.AddDate(0, 0, -1), End: today}
	case PeriodWeek:
		return Window{Start: now.AddDate(0, 0, -7)}
	case PeriodMonth:
		return Window{Start: now.AddDate(0, 0, -30)}
	case Period90Days:
		return Window{Start: now.AddDate(0, 0, -90)}
	default:
		return Window{Start: epoch}
	}
}

// RangeWindow resolves a report range at now. Unknown ranges fall back to
// def, which must itself be a known range.
func RangeWindow(rng, def string, now time.Time) (Window, string) {
	switch rng {
	case Range7Days:
		return Window{Start: now.AddDate(0, 0, -7)}, rng
	case Range30Days:
		return Window{Start: now.AddDate(0, 0, -30)}, rng
	case Range90Days:
		return Window{Start: now.AddDate(0, 0, -90)}, rng
	case RangeYear:
		return Window{Start: now.AddDate(0, 0, -365)}, rng
	}
	if def == "" || def == rng {
		def = Range30Days
	}
	return RangeWindow(def, def, now)
}

// LastDays is the open window covering the trailing n days.
func LastDays(n int, now time.Time) Window {
	if n <= 0 {
		n = 1
	}
	return Window{Start: now.AddDate(0, 0, -n)}
}

// DayWindow resolves a YYYY-MM-DD date to the calendar day in loc.
func DayWindow(date string, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return Window{}, fmt.Errorf("%w: invalid date %q", ErrMalformedInput, date)
	}
	return Window{Start: day, End: day.AddDate(0, 0, 1)}, nil
}
