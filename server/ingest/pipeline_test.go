package ingest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ctolnik/work-eye/server/activity"
	"github.com/ctolnik/work-eye/zapctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var (
	fixedNow = time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	alice    = activity.Member{ID: 1, Email: "alice@example.com", FullName: "Alice", IsActive: true, Status: activity.MemberActive}
)

func newTestPipeline(store *memStore, opts ...Option) *Pipeline {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewPipeline(store, opts...)
}

func snapshot(active, idle, total float64) activity.Snapshot {
	return activity.Snapshot{
		DeviceID:       "pc-1",
		Email:          "alice@example.com",
		TotalSeconds:   total,
		ActiveSeconds:  active,
		IdleSeconds:    idle,
		CurrentWindow:  "main.go",
		CurrentProcess: "code.exe",
		Timestamp:      fixedNow,
		SessionStart:   fixedNow.Add(-time.Hour),
		LastActivity:   fixedNow,
	}
}

func observedContext(t *testing.T) (context.Context, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return zapctx.WithLogger(t.Context(), zap.New(core)), logs
}

func TestIngestRejectsWithoutWrites(t *testing.T) {
	inactive := activity.Member{Email: "bob@example.com", IsActive: true, Status: activity.MemberInactive}
	store := newMemStore(alice, inactive)
	p := newTestPipeline(store)

	for _, email := range []string{"", "mallory@example.com", "bob@example.com"} {
		s := snapshot(10, 0, 10)
		s.Email = email
		_, err := p.Ingest(t.Context(), s)
		require.Error(t, err, email)
	}
	assert.Zero(t, store.rows())
}

func TestIngestRejectsMissingDevice(t *testing.T) {
	store := newMemStore(alice)
	s := snapshot(1, 0, 1)
	s.DeviceID = ""
	_, err := newTestPipeline(store).Ingest(t.Context(), s)
	assert.ErrorIs(t, err, activity.ErrMalformedInput)
	assert.Zero(t, store.rows())
}

func TestIngestWritesAllSteps(t *testing.T) {
	store := newMemStore(alice)
	archive := &memArchive{}
	p := newTestPipeline(store, WithArchive(archive))

	res, err := p.Ingest(t.Context(), snapshot(45, 15, 60))
	require.NoError(t, err)
	assert.True(t, res.Registered)
	assert.Empty(t, res.FailedSteps)
	assert.NoError(t, res.Err)
	assert.Equal(t, 75.0, res.Metrics.Productivity)

	require.Len(t, store.raw, 1)
	assert.Equal(t, "alice@example.com", store.raw[0].UserName)
	assert.Equal(t, res.EventID, store.raw[0].ID)
	assert.Len(t, archive.events, 1)
	require.Len(t, store.processed, 1)
	assert.Equal(t, "active", store.processed[0].Status)
	assert.Len(t, store.appUsage, 1)
	for d := range store.appUsage {
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), d.Date)
		assert.Equal(t, "code.exe", d.AppName)
	}
	dev := store.devices["pc-1"]
	assert.Equal(t, fixedNow, dev.LastSeen)
	assert.Equal(t, 0.02, dev.LiveMetrics.ScreenHours)

	res, err = p.Ingest(t.Context(), snapshot(45, 15, 60))
	require.NoError(t, err)
	assert.False(t, res.Registered)
}

func TestIngestSkipsConditionalSteps(t *testing.T) {
	store := newMemStore(alice)
	s := snapshot(0, 0, 0)
	s.IsIdle = true
	s.CurrentWindow = ""

	_, err := newTestPipeline(store).Ingest(t.Context(), s)
	require.NoError(t, err)
	assert.Len(t, store.raw, 1)
	assert.Empty(t, store.processed)
	assert.Empty(t, store.appUsage)
	assert.Len(t, store.daily, 1)
	assert.Len(t, store.devices, 1)
}

func TestIngestSwallowsSideFailure(t *testing.T) {
	store := newMemStore(alice)
	store.fail[StepAppUsage] = errBoom
	ctx, logs := observedContext(t)

	res, err := newTestPipeline(store, WithArchive(&memArchive{err: errBoom})).Ingest(ctx, snapshot(10, 0, 10))
	require.NoError(t, err)
	assert.Equal(t, []string{StepRawArchive, StepAppUsage}, res.FailedSteps)
	assert.ErrorIs(t, res.Err, errBoom)
	assert.Len(t, store.daily, 1)
	assert.Len(t, store.devices, 1)

	warned := logs.FilterMessage("Ingest side step failed").FilterField(zap.String("step", StepAppUsage))
	assert.Equal(t, 1, warned.Len())
}

func TestIngestCriticalFailureStops(t *testing.T) {
	store := newMemStore(alice)
	store.fail[StepRawEvent] = errBoom

	_, err := newTestPipeline(store).Ingest(t.Context(), snapshot(10, 0, 10))
	require.ErrorIs(t, err, errBoom)
	assert.Zero(t, store.rows())
}

func TestIngestStoreUnavailableStops(t *testing.T) {
	store := newMemStore(alice)
	store.fail[StepProcessedRecord] = fmt.Errorf("insert: %w", activity.ErrStoreUnavailable)

	_, err := newTestPipeline(store).Ingest(t.Context(), snapshot(10, 0, 10))
	require.ErrorIs(t, err, activity.ErrStoreUnavailable)
	assert.Empty(t, store.devices)
	assert.Empty(t, store.daily)
}

func TestIngestDailySummaryMerge(t *testing.T) {
	store := newMemStore(alice)
	p := newTestPipeline(store)

	_, err := p.Ingest(t.Context(), snapshot(10, 0, 10))
	require.NoError(t, err)
	_, err = p.Ingest(t.Context(), snapshot(20, 20, 40))
	require.NoError(t, err)

	require.Len(t, store.daily, 1)
	for _, row := range store.daily {
		assert.Equal(t, 30.0, row.ActiveSeconds)
		assert.Equal(t, 50.0, row.ScreenSeconds)
		assert.Equal(t, 50.0, row.Productivity)
		assert.Equal(t, 50.0, row.Efficiency)
		assert.Equal(t, 2, row.WindowSwitches)
	}
	// The live blob reflects only the latest snapshot.
	assert.Equal(t, 50.0, store.devices["pc-1"].LiveMetrics.Productivity)
}

func TestIngestScreenshotSink(t *testing.T) {
	store := newMemStore(alice)
	s := snapshot(10, 0, 10)
	s.Screenshot = []byte("aGVsbG8=")

	_, err := newTestPipeline(store, WithScreenshotSink(memSink{})).Ingest(t.Context(), s)
	require.NoError(t, err)
	require.Len(t, store.raw, 1)
	assert.Equal(t, "pc-1/20240301T150000.png", store.raw[0].ScreenshotKey)
	assert.Nil(t, store.raw[0].Screenshot)
	assert.Equal(t, store.raw[0].ScreenshotKey, store.processed[0].ScreenshotKey)

	_, err = newTestPipeline(store, WithScreenshotSink(memSink{err: errBoom})).Ingest(t.Context(), s)
	require.NoError(t, err)
	require.Len(t, store.raw, 2)
	assert.Empty(t, store.raw[1].ScreenshotKey)
	assert.Equal(t, s.Screenshot, store.raw[1].Screenshot)
}

func TestRegisterAndHeartbeat(t *testing.T) {
	store := newMemStore(alice)
	p := newTestPipeline(store)

	err := p.Heartbeat(t.Context(), "pc-9")
	assert.ErrorIs(t, err, activity.ErrDeviceNotFound)

	created, err := p.Register(t.Context(), activity.Registration{DeviceID: "pc-9", UserName: "alice@example.com"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = p.Register(t.Context(), activity.Registration{DeviceID: "pc-9"})
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, p.Heartbeat(t.Context(), "pc-9"))

	_, err = p.Register(t.Context(), activity.Registration{})
	assert.ErrorIs(t, err, activity.ErrMalformedInput)
}

func TestDecodeUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	p := newTestPipeline(newMemStore(), WithLocation(loc))
	s, err := p.Decode([]byte(`{"device_id":"pc-1","timestamp":"2024-03-01T10:00:00"}`))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), s.Timestamp.UTC())
}
