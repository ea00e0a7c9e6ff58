package activity

import (
	"fmt"
	"sort"
	"time"
)

// The bucket reports below estimate time as sample count times
// NominalInterval. They do not diff timestamps the way Reconstruct does, so
// the two can disagree for the same window.

func estimateHours(count int) float64 {
	return Hours(float64(count) * NominalInterval.Seconds())
}

// DayPoint is one calendar day of the historical series.
type DayPoint struct {
	Date            time.Time `json:"date"`
	DisplayDate     string    `json:"displayDate"`
	DayName         string    `json:"dayName"`
	ScreenHours     float64   `json:"screenHours"`
	ActiveHours     float64   `json:"activeHours"`
	IdleHours       float64   `json:"idleHours"`
	Productivity    float64   `json:"productivity"`
	ActivityCount   int       `json:"activityCount"`
	ScreenshotCount int       `json:"screenshotCount"`
}

type dayKey struct {
	year  int
	month time.Month
	day   int
}

func keyOf(t time.Time) dayKey {
	y, m, d := t.Date()
	return dayKey{y, m, d}
}

func (k dayKey) time(loc *time.Location) time.Time {
	return time.Date(k.year, k.month, k.day, 0, 0, 0, 0, loc)
}

func (k dayKey) before(o dayKey) bool {
	if k.year != o.year {
		return k.year < o.year
	}
	if k.month != o.month {
		return k.month < o.month
	}
	return k.day < o.day
}

type counter struct {
	total, active, idle, locked, screenshots int
}

func (c *counter) add(s Sample) {
	c.total++
	if s.active() {
		c.active++
	}
	if s.Idle {
		c.idle++
	}
	if s.Locked {
		c.locked++
	}
	if s.Screenshot {
		c.screenshots++
	}
}

// DailySeries groups samples by calendar day in loc, oldest first. A sample
// that is idle or locked counts once towards idle time.
func DailySeries(samples []Sample, loc *time.Location) []DayPoint {
	if loc == nil {
		loc = time.UTC
	}
	days := make(map[dayKey]*counter)
	var keys []dayKey
	for _, s := range samples {
		k := keyOf(s.Timestamp.In(loc))
		c, ok := days[k]
		if !ok {
			c = &counter{}
			days[k] = c
			keys = append(keys, k)
		}
		c.add(s)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].before(keys[j]) })

	out := make([]DayPoint, 0, len(keys))
	for _, k := range keys {
		c := days[k]
		date := k.time(loc)
		out = append(out, DayPoint{
			Date:            date,
			DisplayDate:     date.Format("2006-01-02"),
			DayName:         date.Format("Mon"),
			ScreenHours:     estimateHours(c.total),
			ActiveHours:     estimateHours(c.active),
			IdleHours:       estimateHours(c.total - c.active),
			Productivity:    Percent(float64(c.active), float64(c.total)),
			ActivityCount:   c.total,
			ScreenshotCount: c.screenshots,
		})
	}
	return out
}

// HourPoint is one (day, hour) bucket of the productivity trend.
type HourPoint struct {
	Date             time.Time `json:"date"`
	Hour             int       `json:"hour"`
	DisplayHour      string    `json:"displayHour"`
	TotalActivities  int       `json:"totalActivities"`
	ActiveActivities int       `json:"activeActivities"`
	IdleActivities   int       `json:"idleActivities"`
	Productivity     float64   `json:"productivity"`
	EstimatedMinutes float64   `json:"estimatedMinutes"`
}

type hourKey struct {
	day  dayKey
	hour int
}

// HourlyTrend groups samples by (day, hour) in loc, oldest first.
func HourlyTrend(samples []Sample, loc *time.Location) []HourPoint {
	if loc == nil {
		loc = time.UTC
	}
	buckets := make(map[hourKey]*counter)
	var keys []hourKey
	for _, s := range samples {
		t := s.Timestamp.In(loc)
		k := hourKey{day: keyOf(t), hour: t.Hour()}
		c, ok := buckets[k]
		if !ok {
			c = &counter{}
			buckets[k] = c
			keys = append(keys, k)
		}
		c.add(s)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].day != keys[j].day {
			return keys[i].day.before(keys[j].day)
		}
		return keys[i].hour < keys[j].hour
	})

	out := make([]HourPoint, 0, len(keys))
	for _, k := range keys {
		c := buckets[k]
		out = append(out, HourPoint{
			Date:             k.day.time(loc),
			Hour:             k.hour,
			DisplayHour:      displayHour(k.hour),
			TotalActivities:  c.total,
			ActiveActivities: c.active,
			IdleActivities:   c.total - c.active,
			Productivity:     Percent(float64(c.active), float64(c.total)),
			EstimatedMinutes: roundTo(float64(c.total)*NominalInterval.Seconds()/60, 1),
		})
	}
	return out
}

// PeakHour is an hour of day ranked by its average bucket productivity.
type PeakHour struct {
	Hour                int     `json:"hour"`
	DisplayHour         string  `json:"displayHour"`
	AverageProductivity float64 `json:"averageProductivity"`
}

// MaxPeakHours is how many hours PeakHours returns.
const MaxPeakHours = 5

// PeakHours averages bucket productivity per hour of day and returns the top
// MaxPeakHours. Equal averages rank the earlier hour first.
func PeakHours(points []HourPoint) []PeakHour {
	type acc struct {
		sum   float64
		count int
	}
	byHour := make(map[int]*acc)
	for _, p := range points {
		a, ok := byHour[p.Hour]
		if !ok {
			a = &acc{}
			byHour[p.Hour] = a
		}
		a.sum += p.Productivity
		a.count++
	}

	peaks := make([]PeakHour, 0, len(byHour))
	for hour, a := range byHour {
		peaks = append(peaks, PeakHour{
			Hour:                hour,
			DisplayHour:         displayHour(hour),
			AverageProductivity: roundTo(a.sum/float64(a.count), 1),
		})
	}
	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].AverageProductivity != peaks[j].AverageProductivity {
			return peaks[i].AverageProductivity > peaks[j].AverageProductivity
		}
		return peaks[i].Hour < peaks[j].Hour
	})
	if len(peaks) > MaxPeakHours {
		peaks = peaks[:MaxPeakHours]
	}
	return peaks
}

// DaySummary is the per-day rollup of the daily summary report.
type DaySummary struct {
	Date            time.Time `json:"date"`
	DisplayDate     string    `json:"displayDate"`
	DayName         string    `json:"dayName"`
	ScreenHours     float64   `json:"screenHours"`
	ActiveHours     float64   `json:"activeHours"`
	IdleHours       float64   `json:"idleHours"`
	LockedHours     float64   `json:"lockedHours"`
	Productivity    float64   `json:"productivity"`
	UniqueApps      int       `json:"uniqueApps"`
	ScreenshotCount int       `json:"screenshotCount"`
	TotalActivities int       `json:"totalActivities"`
	WorkDuration    float64   `json:"workDuration"`
	FirstActivity   time.Time `json:"firstActivity"`
	LastActivity    time.Time `json:"lastActivity"`
}

// DaySummaries groups samples by calendar day in loc, newest first. Unlike
// DailySeries, idle and locked samples are counted separately. WorkDuration is
// the span between the first and last sample of the day in hours.
func DaySummaries(samples []Sample, loc *time.Location) []DaySummary {
	if loc == nil {
		loc = time.UTC
	}
	type day struct {
		counter
		apps        map[string]struct{}
		first, last time.Time
	}
	days := make(map[dayKey]*day)
	var keys []dayKey
	for _, s := range samples {
		k := keyOf(s.Timestamp.In(loc))
		d, ok := days[k]
		if !ok {
			d = &day{apps: make(map[string]struct{}), first: s.Timestamp, last: s.Timestamp}
			days[k] = d
			keys = append(keys, k)
		}
		d.add(s)
		if s.Process != "" {
			d.apps[s.Process] = struct{}{}
		}
		if s.Timestamp.Before(d.first) {
			d.first = s.Timestamp
		}
		if s.Timestamp.After(d.last) {
			d.last = s.Timestamp
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[j].before(keys[i]) })

	out := make([]DaySummary, 0, len(keys))
	for _, k := range keys {
		d := days[k]
		date := k.time(loc)
		out = append(out, DaySummary{
			Date:            date,
			DisplayDate:     date.Format("2006-01-02"),
			DayName:         date.Format("Monday"),
			ScreenHours:     estimateHours(d.total),
			ActiveHours:     estimateHours(d.active),
			IdleHours:       estimateHours(d.idle),
			LockedHours:     estimateHours(d.locked),
			Productivity:    Percent(float64(d.active), float64(d.total)),
			UniqueApps:      len(d.apps),
			ScreenshotCount: d.screenshots,
			TotalActivities: d.total,
			WorkDuration:    Hours(d.last.Sub(d.first).Seconds()),
			FirstActivity:   d.first,
			LastActivity:    d.last,
		})
	}
	return out
}

func displayHour(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}
