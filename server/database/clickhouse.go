package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/ctolnik/work-eye/server/activity"
	"github.com/ctolnik/work-eye/zapctx"
	"go.uber.org/zap"
)

// EventArchive mirrors raw events into ClickHouse for long-term retention.
type EventArchive struct {
	conn     driver.Conn
	database string
}

func NewEventArchive(host string, port int, database, username, password string) (*EventArchive, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", host, port)},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &EventArchive{conn: conn, database: database}, nil
}

// AutoSyncRawEventsTable creates the archive table if it does not exist.
func (a *EventArchive) AutoSyncRawEventsTable(ctx context.Context) error {
	zapctx.Info(ctx, "🔄 Auto-syncing raw_activity_events table schema...")

	createTableSQL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s.raw_activity_events (
    id UUID,
    device_id String,
    user_name String,
    timestamp DateTime64(3),
    session_start DateTime64(3),
    total_seconds Float64,
    active_seconds Float64,
    idle_seconds Float64,
    locked_seconds Float64,
    idle_for Float64,
    current_window String,
    current_process LowCardinality(String),
    is_idle UInt8,
    locked UInt8,
    mouse_active UInt8,
    keyboard_active UInt8,
    screenshot_key String,
    raw_payload String,
    received_at DateTime64(3)
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(timestamp)
ORDER BY (device_id, timestamp)
SETTINGS index_granularity = 8192`, a.database)

	if err := a.conn.Exec(ctx, createTableSQL); err != nil {
		zapctx.Error(ctx, "Failed to create raw_activity_events table", zap.Error(err))
		return err
	}

	zapctx.Info(ctx, "✅ raw_activity_events table schema is up to date")
	return nil
}

// AppendRawEvent inserts e into the archive.
func (a *EventArchive) AppendRawEvent(ctx context.Context, e activity.RawEvent) error {
	query := fmt.Sprintf(`INSERT INTO %s.raw_activity_events
                (id, device_id, user_name, timestamp, session_start,
                 total_seconds, active_seconds, idle_seconds, locked_seconds, idle_for,
                 current_window, current_process, is_idle, locked, mouse_active, keyboard_active,
                 screenshot_key, raw_payload, received_at)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, a.database)

	start := time.Now()
	err := a.conn.Exec(ctx, query,
		e.ID, e.DeviceID, e.UserName, e.Timestamp, e.SessionStart,
		e.TotalSeconds, e.ActiveSeconds, e.IdleSeconds, e.LockedSeconds, e.IdleFor,
		e.CurrentWindow, e.CurrentProcess,
		boolToUInt8(e.IsIdle), boolToUInt8(e.Locked), boolToUInt8(e.MouseActive), boolToUInt8(e.KeyboardActive),
		e.ScreenshotKey, string(e.Payload), e.ReceivedAt)

	duration := time.Since(start)
	if err != nil {
		zapctx.Error(ctx, "Failed to insert raw event to ClickHouse",
			zap.Error(err),
			zap.Duration("duration", duration),
			zap.String("device_id", e.DeviceID),
		)
		return err
	}

	if duration > slowWrite {
		zapctx.Warn(ctx, "Slow INSERT query detected",
			zap.Duration("duration", duration),
			zap.String("table", "raw_activity_events"),
		)
	}

	return nil
}

func (a *EventArchive) Close() error {
	return a.conn.Close()
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
