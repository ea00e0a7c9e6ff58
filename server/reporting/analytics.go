package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/ctolnik/work-eye/server/activity"
	"github.com/ctolnik/work-eye/server/observability"
)

// AppUsageReport is the per-application breakdown over a period.
type AppUsageReport struct {
	DeviceID          string              `json:"deviceId"`
	Period            string              `json:"period"`
	Apps              []activity.AppUsage `json:"apps"`
	TotalApps         int                 `json:"totalApps"`
	TopAppsCount      int                 `json:"topAppsCount"`
	OtherAppsTime     float64             `json:"otherAppsTime"`
	OtherAppsHours    float64             `json:"otherAppsHours"`
	TotalTrackedTime  float64             `json:"totalTrackedTime"`
	TotalTrackedHours float64             `json:"totalTrackedHours"`
}

// AppUsage reconstructs per-app time from the timeline using true deltas
// between samples. Apps beyond limit are folded into OtherAppsTime.
func (r *Reporter) AppUsage(ctx context.Context, deviceID, period string, limit int) (AppUsageReport, error) {
	defer observability.ObserveReport("app_usage", time.Now())

	if period == "" {
		period = activity.PeriodToday
	}
	if limit <= 0 {
		limit = DefaultAppLimit
	}
	w := activity.PeriodWindow(period, r.clock())

	samples, err := r.store.ListTimeline(ctx, deviceID, w, r.maxRows)
	if err != nil {
		return AppUsageReport{}, fmt.Errorf("app usage: %w", err)
	}
	b := activity.Reconstruct(samples)

	top := b.Apps
	var other float64
	if len(top) > limit {
		for _, app := range top[limit:] {
			other += app.TotalSeconds
		}
		top = top[:limit]
	}

	return AppUsageReport{
		DeviceID:          deviceID,
		Period:            period,
		Apps:              top,
		TotalApps:         len(b.Apps),
		TopAppsCount:      len(top),
		OtherAppsTime:     other,
		OtherAppsHours:    activity.Hours(other),
		TotalTrackedTime:  b.TotalSeconds,
		TotalTrackedHours: activity.Hours(b.TotalSeconds),
	}, nil
}

// HistoricalReport is the day-by-day series over a range.
type HistoricalReport struct {
	DeviceID    string              `json:"deviceId"`
	UserName    string              `json:"userName"`
	Range       string              `json:"range"`
	Granularity string              `json:"granularity"`
	StartDate   time.Time           `json:"startDate"`
	EndDate     time.Time           `json:"endDate"`
	DataPoints  int                 `json:"dataPoints"`
	Series      []activity.DayPoint `json:"series"`
}

// Historical estimates daily hours from sample counts. Only day buckets are
// produced; the requested granularity is echoed back.
func (r *Reporter) Historical(ctx context.Context, deviceID, rng, granularity string) (HistoricalReport, error) {
	defer observability.ObserveReport("historical", time.Now())

	if granularity == "" {
		granularity = "day"
	}
	device, err := r.store.GetDevice(ctx, deviceID)
	if err != nil {
		return HistoricalReport{}, fmt.Errorf("historical: %w", err)
	}

	now := r.clock()
	w, rng := activity.RangeWindow(rng, activity.Range30Days, now)
	samples, err := r.store.ListTimeline(ctx, deviceID, w, r.maxRows)
	if err != nil {
		return HistoricalReport{}, fmt.Errorf("historical: %w", err)
	}
	series := activity.DailySeries(samples, r.loc)

	return HistoricalReport{
		DeviceID:    deviceID,
		UserName:    r.names.Resolve(device.UserName),
		Range:       rng,
		Granularity: granularity,
		StartDate:   w.Start,
		EndDate:     now,
		DataPoints:  len(series),
		Series:      series,
	}, nil
}

// TrendsReport is the hour-by-hour productivity trend with peak hours.
type TrendsReport struct {
	DeviceID        string               `json:"deviceId"`
	Range           string               `json:"range"`
	Trends          []activity.HourPoint `json:"trends"`
	PeakHours       []activity.PeakHour  `json:"peakHours"`
	TotalDataPoints int                  `json:"totalDataPoints"`
}

func (r *Reporter) ProductivityTrends(ctx context.Context, deviceID, rng string) (TrendsReport, error) {
	defer observability.ObserveReport("productivity_trends", time.Now())

	w, rng := activity.RangeWindow(rng, activity.Range7Days, r.clock())
	samples, err := r.store.ListTimeline(ctx, deviceID, w, r.maxRows)
	if err != nil {
		return TrendsReport{}, fmt.Errorf("productivity trends: %w", err)
	}
	trend := activity.HourlyTrend(samples, r.loc)

	return TrendsReport{
		DeviceID:        deviceID,
		Range:           rng,
		Trends:          trend,
		PeakHours:       activity.PeakHours(trend),
		TotalDataPoints: len(trend),
	}, nil
}

// DailySummaryReport lists per-day rollups, newest first.
type DailySummaryReport struct {
	DeviceID  string                `json:"deviceId"`
	Days      int                   `json:"days"`
	Summaries []activity.DaySummary `json:"summaries"`
	TotalDays int                   `json:"totalDays"`
}

func (r *Reporter) DailySummaries(ctx context.Context, deviceID string, days int) (DailySummaryReport, error) {
	defer observability.ObserveReport("daily_summary", time.Now())

	if days <= 0 {
		days = DefaultDays
	}
	if days > MaxDays {
		days = MaxDays
	}
	samples, err := r.store.ListTimeline(ctx, deviceID, activity.LastDays(days, r.clock()), r.maxRows)
	if err != nil {
		return DailySummaryReport{}, fmt.Errorf("daily summary: %w", err)
	}
	summaries := activity.DaySummaries(samples, r.loc)

	return DailySummaryReport{
		DeviceID:  deviceID,
		Days:      days,
		Summaries: summaries,
		TotalDays: len(summaries),
	}, nil
}

// CurrentStatus is the live view of a device in an export.
type CurrentStatus struct {
	Status         activity.Status `json:"status"`
	ScreenHours    float64         `json:"screenHours"`
	ActiveHours    float64         `json:"activeHours"`
	IdleHours      float64         `json:"idleHours"`
	Productivity   float64         `json:"productivity"`
	Efficiency     float64         `json:"efficiency"`
	LastSeen       time.Time       `json:"lastSeen"`
	LastActivity   time.Time       `json:"lastActivity"`
	AccountCreated time.Time       `json:"accountCreated"`
}

// ExportReport combines device metadata, the live metrics of the last
// snapshot and the stored summary for today. The two metric sets are kept
// apart: live metrics describe one report, the summary the day so far.
type ExportReport struct {
	DeviceID      string                 `json:"deviceId"`
	UserName      string                 `json:"userName"`
	Hostname      string                 `json:"hostname"`
	OSInfo        string                 `json:"osInfo"`
	GeneratedAt   time.Time              `json:"generatedAt"`
	ReportRange   string                 `json:"reportRange"`
	CurrentStatus CurrentStatus          `json:"currentStatus"`
	TodaySoFar    *activity.DailySummary `json:"todaySoFar,omitempty"`
}

func (r *Reporter) Export(ctx context.Context, deviceID, rng string) (ExportReport, error) {
	defer observability.ObserveReport("export", time.Now())

	if rng == "" {
		rng = activity.Range30Days
	}
	device, err := r.store.GetDevice(ctx, deviceID)
	if err != nil {
		return ExportReport{}, fmt.Errorf("export: %w", err)
	}
	now := r.clock()
	lm := device.LiveMetrics

	report := ExportReport{
		DeviceID:    deviceID,
		UserName:    r.names.Resolve(device.UserName),
		Hostname:    device.Hostname,
		OSInfo:      device.OSInfo,
		GeneratedAt: now,
		ReportRange: rng,
		CurrentStatus: CurrentStatus{
			Status:         device.Status(now),
			ScreenHours:    activity.RoundHours(lm.ScreenHours),
			ActiveHours:    activity.RoundHours(lm.ActiveHours),
			IdleHours:      activity.RoundHours(lm.IdleHours),
			Productivity:   activity.RoundPercent(lm.Productivity),
			Efficiency:     activity.RoundPercent(lm.Efficiency),
			LastSeen:       device.LastSeen,
			LastActivity:   device.LastActivity,
			AccountCreated: device.CreatedAt,
		},
	}

	today, ok, err := r.store.GetDailySummary(ctx, deviceID, activity.StartOfDay(now))
	if err != nil {
		return ExportReport{}, fmt.Errorf("export: %w", err)
	}
	if ok {
		report.TodaySoFar = &today
	}
	return report, nil
}
