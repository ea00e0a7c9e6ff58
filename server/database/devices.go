package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ctolnik/work-eye/server/activity"
	"github.com/ctolnik/work-eye/zapctx"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// UpsertDeviceState writes the live state of a device, creating the row on
// first contact. Empty hostname and OS values keep the stored ones. It
// reports whether the row was created.
func (s *Store) UpsertDeviceState(ctx context.Context, st activity.DeviceState) (bool, error) {
	const query = `INSERT INTO devices (
            device_id, user_name, hostname, os_info, is_idle, locked,
            current_window, current_process, live_metrics,
            last_seen, last_activity, session_start, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $10, $10)
        ON CONFLICT (device_id) DO UPDATE SET
            user_name = EXCLUDED.user_name,
            hostname = COALESCE(EXCLUDED.hostname, devices.hostname),
            os_info = COALESCE(EXCLUDED.os_info, devices.os_info),
            is_idle = EXCLUDED.is_idle,
            locked = EXCLUDED.locked,
            current_window = EXCLUDED.current_window,
            current_process = EXCLUDED.current_process,
            live_metrics = EXCLUDED.live_metrics,
            last_seen = EXCLUDED.last_seen,
            last_activity = EXCLUDED.last_activity,
            session_start = EXCLUDED.session_start,
            updated_at = EXCLUDED.updated_at
        RETURNING (xmax = 0)`

	metrics, err := json.Marshal(st.LiveMetrics)
	if err != nil {
		return false, fmt.Errorf("marshal live metrics: %w", err)
	}

	start := time.Now()
	var created bool
	err = s.pool.QueryRow(ctx, query,
		st.DeviceID, st.UserName, nullIfEmpty(st.Hostname), nullIfEmpty(st.OSInfo),
		st.IsIdle, st.Locked, st.CurrentWindow, st.CurrentProcess, metrics,
		st.LastSeen, nullIfZero(st.LastActivity), nullIfZero(st.SessionStart),
	).Scan(&created)
	if err := observe(ctx, "upsert", "devices", start, err); err != nil {
		return false, err
	}
	return created, nil
}

// RegisterDevice upserts identity fields and marks the device seen without
// touching its metrics.
func (s *Store) RegisterDevice(ctx context.Context, r activity.Registration, now time.Time) (bool, error) {
	const query = `INSERT INTO devices (
            device_id, user_name, hostname, os_info, last_seen, session_start, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $5, $5, $5)
        ON CONFLICT (device_id) DO UPDATE SET
            user_name = COALESCE(NULLIF(EXCLUDED.user_name, ''), devices.user_name),
            hostname = COALESCE(EXCLUDED.hostname, devices.hostname),
            os_info = COALESCE(EXCLUDED.os_info, devices.os_info),
            last_seen = EXCLUDED.last_seen,
            session_start = EXCLUDED.session_start,
            updated_at = EXCLUDED.updated_at
        RETURNING (xmax = 0)`

	start := time.Now()
	var created bool
	err := s.pool.QueryRow(ctx, query,
		r.DeviceID, r.UserName, nullIfEmpty(r.Hostname), nullIfEmpty(r.OSInfo), now,
	).Scan(&created)
	if err := observe(ctx, "upsert", "devices", start, err); err != nil {
		return false, err
	}
	return created, nil
}

// TouchDevice sets last_seen for a known device.
func (s *Store) TouchDevice(ctx context.Context, deviceID string, now time.Time) error {
	const query = `UPDATE devices SET last_seen = $2, updated_at = $2 WHERE device_id = $1`

	start := time.Now()
	tag, err := s.pool.Exec(ctx, query, deviceID, now)
	if err := observe(ctx, "update", "devices", start, err); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return activity.ErrDeviceNotFound
	}
	return nil
}

const deviceColumns = `d.device_id, d.user_name, COALESCE(d.hostname, ''), COALESCE(d.os_info, ''),
        d.is_idle, d.locked, d.current_window, d.current_process, d.live_metrics,
        d.last_seen, d.last_activity, d.session_start, d.created_at, d.updated_at`

func scanDevice(ctx context.Context, row pgx.Row, extra ...any) (activity.Device, error) {
	var (
		d                                activity.Device
		metrics                          []byte
		lastSeen, lastActivity, sessions *time.Time
	)
	dest := []any{
		&d.DeviceID, &d.UserName, &d.Hostname, &d.OSInfo,
		&d.IsIdle, &d.Locked, &d.CurrentWindow, &d.CurrentProcess, &metrics,
		&lastSeen, &lastActivity, &sessions, &d.CreatedAt, &d.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return activity.Device{}, err
	}
	if lastSeen != nil {
		d.LastSeen = *lastSeen
	}
	if lastActivity != nil {
		d.LastActivity = *lastActivity
	}
	if sessions != nil {
		d.SessionStart = *sessions
	}
	if len(metrics) > 0 {
		if err := json.Unmarshal(metrics, &d.LiveMetrics); err != nil {
			zapctx.Warn(ctx, "Malformed live metrics", zap.String("device_id", d.DeviceID), zap.Error(err))
		}
	}
	return d, nil
}

// GetDevice returns one device or activity.ErrDeviceNotFound.
func (s *Store) GetDevice(ctx context.Context, deviceID string) (activity.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices d WHERE d.device_id = $1`

	start := time.Now()
	d, err := scanDevice(ctx, s.pool.QueryRow(ctx, query, deviceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return activity.Device{}, activity.ErrDeviceNotFound
	}
	if err := observe(ctx, "select", "devices", start, err); err != nil {
		return activity.Device{}, err
	}
	return d, nil
}

// ListMemberDevices returns devices bound to active members, most recently
// seen first.
func (s *Store) ListMemberDevices(ctx context.Context) ([]activity.MemberDevice, error) {
	query := `SELECT ` + deviceColumns + `, m.full_name
        FROM devices d
        JOIN members m ON LOWER(m.email) = LOWER(d.user_name)
        WHERE m.is_active AND m.status = 'active'
        ORDER BY d.last_seen DESC NULLS LAST`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query)
	if err := observe(ctx, "select", "devices", start, err); err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]activity.MemberDevice, 0)
	for rows.Next() {
		var md activity.MemberDevice
		d, err := scanDevice(ctx, rows, &md.MemberName)
		if err != nil {
			return nil, classify(err)
		}
		md.Device = d
		out = append(out, md)
	}
	return out, observe(ctx, "select", "devices", start, rows.Err())
}
