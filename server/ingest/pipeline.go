package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ctolnik/work-eye/server/activity"
	"github.com/ctolnik/work-eye/server/observability"
	"github.com/ctolnik/work-eye/zapctx"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Store is the write side used by the pipeline. Every method is a single
// row-atomic statement; the pipeline does not wrap them in a transaction.
type Store interface {
	MemberLookup
	InsertRawEvent(ctx context.Context, e activity.RawEvent) error
	InsertProcessedRecord(ctx context.Context, r activity.ProcessedRecord) error
	UpsertAppUsage(ctx context.Context, d activity.AppUsageDelta) error
	UpsertDailySummary(ctx context.Context, d activity.DailyDelta) error
	// UpsertDeviceState writes the live state and reports whether the row
	// was created.
	UpsertDeviceState(ctx context.Context, s activity.DeviceState) (bool, error)
	RegisterDevice(ctx context.Context, r activity.Registration, now time.Time) (bool, error)
	// TouchDevice sets last_seen; unknown devices yield activity.ErrDeviceNotFound.
	TouchDevice(ctx context.Context, deviceID string, now time.Time) error
}

// Archive mirrors raw events to secondary storage.
type Archive interface {
	AppendRawEvent(ctx context.Context, e activity.RawEvent) error
}

// ScreenshotSink stores a screenshot and returns its object key.
type ScreenshotSink interface {
	PutScreenshot(ctx context.Context, deviceID string, ts time.Time, encoded []byte) (string, error)
}

// Step names, as logged and reported in Result.FailedSteps.
const (
	StepRawEvent        = "raw_event"
	StepRawArchive      = "raw_archive"
	StepProcessedRecord = "processed_record"
	StepAppUsage        = "app_usage"
	StepDailySummary    = "daily_summary"
	StepDeviceState     = "device_state"
)

// Result describes an accepted snapshot.
type Result struct {
	EventID     string
	Member      activity.Member
	Metrics     activity.LiveMetrics
	Registered  bool
	FailedSteps []string
	// Err joins the errors of the failed side steps.
	Err error
}

// Pipeline runs the ordered write steps for one snapshot. It holds no
// mutable state and is safe for concurrent use.
type Pipeline struct {
	gate        *Gate
	store       Store
	archive     Archive
	screenshots ScreenshotSink
	now         func() time.Time
	loc         *time.Location
}

type Option func(*Pipeline)

// WithArchive mirrors raw events to a.
func WithArchive(a Archive) Option {
	return func(p *Pipeline) { p.archive = a }
}

// WithScreenshotSink moves screenshots out of the relational rows.
func WithScreenshotSink(s ScreenshotSink) Option {
	return func(p *Pipeline) { p.screenshots = s }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithLocation sets the zone used for calendar dates and zone-less timestamps.
func WithLocation(loc *time.Location) Option {
	return func(p *Pipeline) {
		if loc != nil {
			p.loc = loc
		}
	}
}

func NewPipeline(store Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		gate:  NewGate(store),
		store: store,
		now:   time.Now,
		loc:   time.UTC,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Decode parses an upload body with the pipeline's clock and location.
func (p *Pipeline) Decode(body []byte) (activity.Snapshot, error) {
	return activity.DecodeSnapshot(body, p.now().In(p.loc), p.loc)
}

type step struct {
	name     string
	critical bool
	skip     bool
	run      func(ctx context.Context) error
}

// Ingest verifies the reporting member and stores the snapshot. Gate
// rejections and critical step failures return an error before or without
// the remaining writes. Side step failures are logged and reported in the
// result.
func (p *Pipeline) Ingest(ctx context.Context, s activity.Snapshot) (Result, error) {
	if s.DeviceID == "" {
		observability.RecordRejected("malformed")
		return Result{}, fmt.Errorf("%w: device_id is required", activity.ErrMalformedInput)
	}
	ctx = zapctx.WithFields(ctx, zap.String("device_id", s.DeviceID))

	member, err := p.gate.Verify(ctx, s.Email)
	if err != nil {
		observability.RecordRejected(rejectReason(err))
		zapctx.Warn(ctx, "Snapshot rejected", zap.String("email", s.Email), zap.Error(err))
		return Result{}, err
	}

	now := p.now().In(p.loc)
	date := activity.StartOfDay(now)
	user := member.Email
	event := activity.NewRawEvent(uuid.NewString(), s, user, now)
	res := Result{EventID: event.ID, Member: member}

	if event.HasScreenshot() && p.screenshots != nil {
		key, err := p.screenshots.PutScreenshot(ctx, s.DeviceID, s.Timestamp, s.Screenshot)
		if err != nil {
			zapctx.Warn(ctx, "Screenshot upload failed, keeping it inline", zap.Error(err))
		} else {
			event.ScreenshotKey = key
			event.Screenshot = nil
			observability.RecordScreenshotStored()
		}
	}

	state := activity.NewDeviceState(s, user, now)
	res.Metrics = state.LiveMetrics

	steps := []step{
		{name: StepRawEvent, critical: true, run: func(ctx context.Context) error {
			return p.store.InsertRawEvent(ctx, event)
		}},
		{name: StepRawArchive, skip: p.archive == nil, run: func(ctx context.Context) error {
			return p.archive.AppendRawEvent(ctx, event)
		}},
		{name: StepProcessedRecord, skip: !s.ShouldRecordTimeline(), run: func(ctx context.Context) error {
			return p.store.InsertProcessedRecord(ctx, activity.NewProcessedRecord(event))
		}},
		{name: StepAppUsage, skip: !s.ShouldRecordAppUsage(), run: func(ctx context.Context) error {
			return p.store.UpsertAppUsage(ctx, activity.NewAppUsageDelta(s, date))
		}},
		{name: StepDailySummary, run: func(ctx context.Context) error {
			return p.store.UpsertDailySummary(ctx, activity.NewDailyDelta(s, user, date))
		}},
		{name: StepDeviceState, critical: true, run: func(ctx context.Context) error {
			created, err := p.store.UpsertDeviceState(ctx, state)
			res.Registered = created
			return err
		}},
	}

	for _, st := range steps {
		if st.skip {
			continue
		}
		err := st.run(ctx)
		if err == nil {
			continue
		}
		observability.RecordStepFailure(st.name)
		if st.critical || errors.Is(err, activity.ErrStoreUnavailable) {
			zapctx.Error(ctx, "Ingest step failed", zap.String("step", st.name), zap.Error(err))
			return res, fmt.Errorf("%s: %w", st.name, err)
		}
		zapctx.Warn(ctx, "Ingest side step failed", zap.String("step", st.name), zap.Error(err))
		res.FailedSteps = append(res.FailedSteps, st.name)
		res.Err = multierr.Append(res.Err, fmt.Errorf("%s: %w", st.name, err))
	}

	if res.Registered {
		zapctx.Info(ctx, "Device auto-registered")
	}
	observability.RecordAccepted(now)
	zapctx.Info(ctx, "Snapshot accepted",
		zap.String("member", member.FullName),
		zap.String("status", string(activity.DeriveStatus(now, s.IsIdle, s.Locked, now))),
		zap.Float64("screen_hours", res.Metrics.ScreenHours),
		zap.Float64("active_hours", res.Metrics.ActiveHours),
		zap.Float64("productivity", res.Metrics.Productivity),
		zap.String("process", s.CurrentProcess),
		zap.Bool("screenshot", event.HasScreenshot()),
		zap.Strings("failed_steps", res.FailedSteps),
	)
	return res, nil
}

// Register upserts a device's identity fields without touching its metrics.
func (p *Pipeline) Register(ctx context.Context, r activity.Registration) (bool, error) {
	if r.DeviceID == "" {
		return false, fmt.Errorf("%w: device_id is required", activity.ErrMalformedInput)
	}
	created, err := p.store.RegisterDevice(ctx, r, p.now().In(p.loc))
	if err != nil {
		return false, fmt.Errorf("register device: %w", err)
	}
	zapctx.Info(ctx, "Device registered",
		zap.String("device_id", r.DeviceID),
		zap.String("user_name", r.UserName),
		zap.Bool("created", created),
	)
	return created, nil
}

// Heartbeat marks a known device as seen now.
func (p *Pipeline) Heartbeat(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return fmt.Errorf("%w: device_id is required", activity.ErrMalformedInput)
	}
	if err := p.store.TouchDevice(ctx, deviceID, p.now().In(p.loc)); err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	return nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, activity.ErrUnverified):
		return "unverified"
	case errors.Is(err, activity.ErrInactive):
		return "inactive"
	case errors.Is(err, activity.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}
