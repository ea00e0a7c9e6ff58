package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ctolnik/work-eye/server/activity"
)

// InsertRawEvent appends a raw snapshot. There is no dedup key: a
// retransmitted snapshot is stored twice.
func (s *Store) InsertRawEvent(ctx context.Context, e activity.RawEvent) error {
	const query = `INSERT INTO raw_activity_log (
            id, device_id, user_name, timestamp, session_start,
            total_seconds, active_seconds, idle_seconds, locked_seconds, idle_for,
            current_window, current_process, is_idle, locked, mouse_active, keyboard_active,
            windows_opened, browser_history, raw_payload, screenshot, screenshot_key, received_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`

	windows, err := jsonList(e.WindowsOpened)
	if err != nil {
		return fmt.Errorf("marshal windows_opened: %w", err)
	}
	visits, err := jsonList(e.BrowserHistory)
	if err != nil {
		return fmt.Errorf("marshal browser_history: %w", err)
	}
	payload := []byte(e.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	start := time.Now()
	_, err = s.pool.Exec(ctx, query,
		e.ID, e.DeviceID, e.UserName, e.Timestamp, nullIfZero(e.SessionStart),
		e.TotalSeconds, e.ActiveSeconds, e.IdleSeconds, e.LockedSeconds, e.IdleFor,
		e.CurrentWindow, e.CurrentProcess, e.IsIdle, e.Locked, e.MouseActive, e.KeyboardActive,
		windows, visits, payload, nullIfEmpty(string(e.Screenshot)), nullIfEmpty(e.ScreenshotKey), e.ReceivedAt,
	)
	return observe(ctx, "insert", "raw_activity_log", start, err)
}

// InsertProcessedRecord appends a timeline entry.
func (s *Store) InsertProcessedRecord(ctx context.Context, r activity.ProcessedRecord) error {
	const query = `INSERT INTO processed_data (
            device_id, user_name, timestamp, current_window, current_process,
            status, is_idle, locked, screenshot, screenshot_key, active_duration, idle_duration)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		r.DeviceID, r.UserName, r.Timestamp, r.CurrentWindow, r.CurrentProcess,
		r.Status, r.IsIdle, r.Locked, nullIfEmpty(string(r.Screenshot)), nullIfEmpty(r.ScreenshotKey),
		r.ActiveDuration, r.IdleDuration,
	)
	return observe(ctx, "insert", "processed_data", start, err)
}

// ListTimeline returns up to limit timeline samples of a device inside w,
// newest first. Callers needing order must sort.
func (s *Store) ListTimeline(ctx context.Context, deviceID string, w activity.Window, limit int) ([]activity.Sample, error) {
	const query = `SELECT timestamp, current_process, current_window, is_idle, locked,
            (screenshot IS NOT NULL OR screenshot_key IS NOT NULL)
        FROM processed_data
        WHERE device_id = $1 AND timestamp >= $2 AND ($3::timestamptz IS NULL OR timestamp < $3)
        ORDER BY timestamp DESC
        LIMIT $4`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, deviceID, w.Start, nullIfZero(w.End), limit)
	if err := observe(ctx, "select", "processed_data", start, err); err != nil {
		return nil, err
	}
	defer rows.Close()

	samples := make([]activity.Sample, 0)
	for rows.Next() {
		var sm activity.Sample
		if err := rows.Scan(&sm.Timestamp, &sm.Process, &sm.Window, &sm.Idle, &sm.Locked, &sm.Screenshot); err != nil {
			return nil, classify(err)
		}
		samples = append(samples, sm)
	}
	return samples, observe(ctx, "select", "processed_data", start, rows.Err())
}

func jsonList(items []json.RawMessage) ([]byte, error) {
	if len(items) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(items)
}
