package database

import (
	"context"
	"time"

	"github.com/ctolnik/work-eye/server/activity"
	"github.com/jackc/pgx/v5"
)

const timelineColumns = `id, device_id, user_name, timestamp, current_window, current_process,
        status, is_idle, locked, (screenshot IS NOT NULL OR screenshot_key IS NOT NULL),
        active_duration::float8, idle_duration::float8`

func scanTimeline(rows pgx.Rows) ([]activity.TimelineEntry, error) {
	out := make([]activity.TimelineEntry, 0)
	for rows.Next() {
		var e activity.TimelineEntry
		if err := rows.Scan(
			&e.ID, &e.DeviceID, &e.UserName, &e.Timestamp, &e.CurrentWindow, &e.CurrentProcess,
			&e.Status, &e.IsIdle, &e.Locked, &e.HasScreenshot,
			&e.ActiveDuration, &e.IdleDuration,
		); err != nil {
			return nil, classify(err)
		}
		out = append(out, e)
	}
	return out, nil
}

// ListRecentActivity returns the newest timeline entries across all devices.
func (s *Store) ListRecentActivity(ctx context.Context, limit int) ([]activity.TimelineEntry, error) {
	query := `SELECT ` + timelineColumns + `
        FROM processed_data
        ORDER BY timestamp DESC, id DESC
        LIMIT $1`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, limit)
	if err := observe(ctx, "select", "processed_data", start, err); err != nil {
		return nil, err
	}
	defer rows.Close()

	entries, err := scanTimeline(rows)
	if err != nil {
		return nil, err
	}
	return entries, observe(ctx, "select", "processed_data", start, rows.Err())
}

// ListActivityLog pages through timeline entries, newest first. An empty
// deviceID spans all devices. The int is the total number of matching rows.
func (s *Store) ListActivityLog(ctx context.Context, deviceID string, offset, limit int) ([]activity.TimelineEntry, int, error) {
	const countQuery = `SELECT COUNT(*) FROM processed_data WHERE ($1::text IS NULL OR device_id = $1)`
	query := `SELECT ` + timelineColumns + `
        FROM processed_data
        WHERE ($1::text IS NULL OR device_id = $1)
        ORDER BY timestamp DESC, id DESC
        OFFSET $2 LIMIT $3`

	device := nullIfEmpty(deviceID)

	start := time.Now()
	var total int
	err := s.pool.QueryRow(ctx, countQuery, device).Scan(&total)
	if err := observe(ctx, "select", "processed_data", start, err); err != nil {
		return nil, 0, err
	}

	start = time.Now()
	rows, err := s.pool.Query(ctx, query, device, offset, limit)
	if err := observe(ctx, "select", "processed_data", start, err); err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries, err := scanTimeline(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, observe(ctx, "select", "processed_data", start, rows.Err())
}

// ListScreenshots returns up to limit timeline entries of a device that carry
// a screenshot, newest first. A zero w.Start leaves the window unbounded.
func (s *Store) ListScreenshots(ctx context.Context, deviceID string, w activity.Window, limit int) ([]activity.ScreenshotEntry, error) {
	const query = `SELECT id, device_id, timestamp, current_window, current_process, status,
            COALESCE(screenshot_key, ''), COALESCE(screenshot, '')
        FROM processed_data
        WHERE device_id = $1
            AND (screenshot IS NOT NULL OR screenshot_key IS NOT NULL)
            AND ($2::timestamptz IS NULL OR timestamp >= $2)
            AND ($3::timestamptz IS NULL OR timestamp < $3)
        ORDER BY timestamp DESC, id DESC
        LIMIT $4`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, deviceID, nullIfZero(w.Start), nullIfZero(w.End), limit)
	if err := observe(ctx, "select", "processed_data", start, err); err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]activity.ScreenshotEntry, 0)
	for rows.Next() {
		var e activity.ScreenshotEntry
		if err := rows.Scan(&e.ID, &e.DeviceID, &e.Timestamp, &e.CurrentWindow, &e.CurrentProcess,
			&e.Status, &e.Key, &e.Data); err != nil {
			return nil, classify(err)
		}
		if e.Key != "" {
			e.Data = ""
		}
		out = append(out, e)
	}
	return out, observe(ctx, "select", "processed_data", start, rows.Err())
}

// TopApps sums the app usage rollup of one device and date per application,
// largest total first.
func (s *Store) TopApps(ctx context.Context, deviceID string, date time.Time, limit int) ([]activity.AppTotal, error) {
	const query = `SELECT app_name,
            SUM(total_time_seconds)::float8,
            SUM(active_time_seconds)::float8,
            SUM(idle_time_seconds)::float8,
            SUM(visit_count)::int,
            COUNT(*)::int
        FROM app_usage
        WHERE device_id = $1 AND date = $2::date
        GROUP BY app_name
        ORDER BY 2 DESC, app_name
        LIMIT $3`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, deviceID, dateParam(date), limit)
	if err := observe(ctx, "select", "app_usage", start, err); err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]activity.AppTotal, 0)
	for rows.Next() {
		var a activity.AppTotal
		if err := rows.Scan(&a.AppName, &a.TotalSeconds, &a.ActiveSeconds, &a.IdleSeconds, &a.Visits, &a.Windows); err != nil {
			return nil, classify(err)
		}
		a.TotalHours = activity.Hours(a.TotalSeconds)
		out = append(out, a)
	}
	return out, observe(ctx, "select", "app_usage", start, rows.Err())
}
