package database

import (
	"context"
	"errors"
	"time"

	"github.com/ctolnik/work-eye/server/activity"
	"github.com/jackc/pgx/v5"
)

// UpsertAppUsage adds d to the (device, date, app, window) row.
func (s *Store) UpsertAppUsage(ctx context.Context, d activity.AppUsageDelta) error {
	const query = `INSERT INTO app_usage (
            device_id, date, app_name, window_title, process_name,
            total_time_seconds, active_time_seconds, idle_time_seconds, visit_count)
        VALUES ($1, $2::date, $3, $4, $3, $5, $6, $7, 1)
        ON CONFLICT (device_id, date, app_name, window_title) DO UPDATE SET
            total_time_seconds = app_usage.total_time_seconds + EXCLUDED.total_time_seconds,
            active_time_seconds = app_usage.active_time_seconds + EXCLUDED.active_time_seconds,
            idle_time_seconds = app_usage.idle_time_seconds + EXCLUDED.idle_time_seconds,
            visit_count = app_usage.visit_count + 1,
            updated_at = now()`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		d.DeviceID, dateParam(d.Date), d.AppName, d.WindowTitle,
		d.TotalSeconds, d.ActiveSeconds, d.IdleSeconds,
	)
	return observe(ctx, "upsert", "app_usage", start, err)
}

// UpsertDailySummary merges d into the (device, date) row. Time counters,
// websites and screenshots add up; productivity and efficiency are replaced;
// unique apps is recounted from app_usage; window switches grow by one.
func (s *Store) UpsertDailySummary(ctx context.Context, d activity.DailyDelta) error {
	const query = `INSERT INTO daily_summaries (
            device_id, date, user_name,
            total_screen_time, active_time, idle_time, locked_time,
            productivity_percentage, efficiency_percentage,
            unique_apps_used, window_switches, websites_visited, screenshots_captured,
            first_activity, last_activity)
        VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9,
            (SELECT COUNT(DISTINCT app_name) FROM app_usage WHERE device_id = $1 AND date = $2::date),
            1, $10, $11, $12, $13)
        ON CONFLICT (device_id, date) DO UPDATE SET
            user_name = EXCLUDED.user_name,
            total_screen_time = daily_summaries.total_screen_time + EXCLUDED.total_screen_time,
            active_time = daily_summaries.active_time + EXCLUDED.active_time,
            idle_time = daily_summaries.idle_time + EXCLUDED.idle_time,
            locked_time = daily_summaries.locked_time + EXCLUDED.locked_time,
            productivity_percentage = EXCLUDED.productivity_percentage,
            efficiency_percentage = EXCLUDED.efficiency_percentage,
            unique_apps_used = EXCLUDED.unique_apps_used,
            window_switches = daily_summaries.window_switches + 1,
            websites_visited = daily_summaries.websites_visited + EXCLUDED.websites_visited,
            screenshots_captured = daily_summaries.screenshots_captured + EXCLUDED.screenshots_captured,
            first_activity = LEAST(daily_summaries.first_activity, EXCLUDED.first_activity),
            last_activity = GREATEST(daily_summaries.last_activity, EXCLUDED.last_activity),
            updated_at = now()`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		d.DeviceID, dateParam(d.Date), d.UserName,
		d.ScreenSeconds, d.ActiveSeconds, d.IdleSeconds, d.LockedSeconds,
		d.Productivity, d.Efficiency,
		d.WebsitesVisited, d.Screenshots,
		nullIfZero(d.FirstActivity), nullIfZero(d.LastActivity),
	)
	return observe(ctx, "upsert", "daily_summaries", start, err)
}

// GetDailySummary returns the stored summary row. The bool is false when
// the device has no row for date.
func (s *Store) GetDailySummary(ctx context.Context, deviceID string, date time.Time) (activity.DailySummary, bool, error) {
	const query = `SELECT device_id, date, user_name,
            total_screen_time, active_time, idle_time, locked_time,
            productivity_percentage, efficiency_percentage,
            unique_apps_used, window_switches, websites_visited, screenshots_captured,
            first_activity, last_activity
        FROM daily_summaries WHERE device_id = $1 AND date = $2::date`

	start := time.Now()
	var (
		ds          activity.DailySummary
		first, last *time.Time
	)
	err := s.pool.QueryRow(ctx, query, deviceID, dateParam(date)).Scan(
		&ds.DeviceID, &ds.Date, &ds.UserName,
		&ds.ScreenSeconds, &ds.ActiveSeconds, &ds.IdleSeconds, &ds.LockedSeconds,
		&ds.Productivity, &ds.Efficiency,
		&ds.UniqueApps, &ds.WindowSwitches, &ds.WebsitesVisited, &ds.Screenshots,
		&first, &last,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return activity.DailySummary{}, false, nil
	}
	if err := observe(ctx, "select", "daily_summaries", start, err); err != nil {
		return activity.DailySummary{}, false, err
	}
	if first != nil {
		ds.FirstActivity = *first
	}
	if last != nil {
		ds.LastActivity = *last
	}
	return ds, true, nil
}

// DayTotals averages the stored summaries of all devices for date.
func (s *Store) DayTotals(ctx context.Context, date time.Time) (activity.DayTotals, error) {
	const query = `SELECT COUNT(*),
            COALESCE(AVG(productivity_percentage), 0)::float8,
            COALESCE(AVG(efficiency_percentage), 0)::float8,
            COALESCE(SUM(active_time), 0)::float8,
            COALESCE(SUM(total_screen_time), 0)::float8
        FROM daily_summaries WHERE date = $1::date`

	start := time.Now()
	var t activity.DayTotals
	err := s.pool.QueryRow(ctx, query, dateParam(date)).Scan(
		&t.Devices, &t.AvgProductivity, &t.AvgEfficiency, &t.ActiveSeconds, &t.ScreenSeconds,
	)
	return t, observe(ctx, "select", "daily_summaries", start, err)
}
