package activity

import (
	"math"
	"time"
)

// Metrics is the normalized view of a set of active/idle/total counters.
type Metrics struct {
	ScreenHours  float64 `json:"screen_time_hours"`
	ActiveHours  float64 `json:"active_time_hours"`
	IdleHours    float64 `json:"idle_time_hours"`
	Productivity float64 `json:"productivity"`
	Efficiency   float64 `json:"efficiency"`
}

// Calculate turns accumulated seconds into hours and percentages.
// Negative and NaN inputs count as zero; percentages are clamped to [0,100].
func Calculate(activeSeconds, idleSeconds, totalSeconds float64) Metrics {
	active := NonNegative(activeSeconds)
	idle := NonNegative(idleSeconds)
	total := NonNegative(totalSeconds)

	m := Metrics{
		ScreenHours: Hours(total),
		ActiveHours: Hours(active),
		IdleHours:   Hours(idle),
	}
	if total > 0 {
		m.Productivity = Percent(active, total)
		m.Efficiency = clampPercent(roundTo(math.Max(0, 100-idle/total*100), 1))
	}
	return m
}

// Percent returns part/whole as a percentage rounded to one decimal and
// clamped to [0,100]. A non-positive whole yields 0.
func Percent(part, whole float64) float64 {
	part = NonNegative(part)
	whole = NonNegative(whole)
	if whole <= 0 {
		return 0
	}
	return clampPercent(roundTo(part/whole*100, 1))
}

// Hours converts seconds to hours rounded to two decimals.
func Hours(seconds float64) float64 {
	return roundTo(NonNegative(seconds)/3600, 2)
}

// RoundHours re-applies the hour rounding to a value that is already in hours.
func RoundHours(hours float64) float64 {
	return roundTo(NonNegative(hours), 2)
}

// RoundPercent re-applies the percentage rounding and clamping.
func RoundPercent(pct float64) float64 {
	return clampPercent(roundTo(NonNegative(pct), 1))
}

// NonNegative maps negative and NaN values to zero.
func NonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func roundTo(v float64, places int) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// LiveMetrics is the blob stored on the device row. It reflects the single
// snapshot that produced it, not the running daily total.
type LiveMetrics struct {
	Metrics
	TotalIdleHours     float64   `json:"total_idle_hours"`
	SessionStart       time.Time `json:"session_start"`
	MouseActive        bool      `json:"mouse_active"`
	KeyboardActive     bool      `json:"keyboard_active"`
	IdleForSeconds     float64   `json:"idle_for_seconds"`
	LockedSeconds      float64   `json:"locked_seconds"`
	WindowsOpenedCount int       `json:"windows_opened_count"`
	BrowserSessions    int       `json:"browser_sessions"`
	LastUpdated        time.Time `json:"last_updated"`
}

// NewLiveMetrics computes the live metrics blob for one snapshot.
func NewLiveMetrics(s Snapshot, now time.Time) LiveMetrics {
	m := Calculate(s.ActiveSeconds, s.IdleSeconds, s.TotalSeconds)
	return LiveMetrics{
		Metrics:            m,
		TotalIdleHours:     m.IdleHours,
		SessionStart:       s.SessionStart,
		MouseActive:        s.MouseActive,
		KeyboardActive:     s.KeyboardActive,
		IdleForSeconds:     NonNegative(s.IdleFor),
		LockedSeconds:      NonNegative(s.LockedSeconds),
		WindowsOpenedCount: len(s.WindowsOpened),
		BrowserSessions:    len(s.BrowserHistory),
		LastUpdated:        now,
	}
}
