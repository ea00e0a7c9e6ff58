// Package reporting builds read-only analytics over stored telemetry.
package reporting

import (
	"context"
	"time"

	"github.com/ctolnik/work-eye/server/activity"
)

// Store is the read side used by the reports.
type Store interface {
	GetDevice(ctx context.Context, deviceID string) (activity.Device, error)
	// ListTimeline returns at most limit samples inside w in any order.
	ListTimeline(ctx context.Context, deviceID string, w activity.Window, limit int) ([]activity.Sample, error)
	GetDailySummary(ctx context.Context, deviceID string, date time.Time) (activity.DailySummary, bool, error)
	ListMemberDevices(ctx context.Context) ([]activity.MemberDevice, error)
	CountActiveMembers(ctx context.Context) (int, error)
	DayTotals(ctx context.Context, date time.Time) (activity.DayTotals, error)

	ListRecentActivity(ctx context.Context, limit int) ([]activity.TimelineEntry, error)
	ListActivityLog(ctx context.Context, deviceID string, offset, limit int) ([]activity.TimelineEntry, int, error)
	ListScreenshots(ctx context.Context, deviceID string, w activity.Window, limit int) ([]activity.ScreenshotEntry, error)
	TopApps(ctx context.Context, deviceID string, date time.Time, limit int) ([]activity.AppTotal, error)
}

const (
	DefaultMaxRows  = 200000
	DefaultAppLimit = 20
	DefaultDays     = 30
	MaxDays         = 366

	RecentActivityLimit = 50
	DefaultLogLimit     = 100
	MaxLogLimit         = 1000
	TopAppsLimit        = 10
	RecentScreenshots   = 20
	MaxScreenshots      = 500
)

// Reporter is safe for concurrent use; it never writes.
type Reporter struct {
	store   Store
	names   *activity.NameResolver
	now     func() time.Time
	loc     *time.Location
	maxRows int
}

type Option func(*Reporter)

func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

// WithLocation sets the zone used for day and hour buckets.
func WithLocation(loc *time.Location) Option {
	return func(r *Reporter) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithMaxRows bounds how many timeline rows one report reads.
func WithMaxRows(n int) Option {
	return func(r *Reporter) {
		if n > 0 {
			r.maxRows = n
		}
	}
}

func NewReporter(store Store, names *activity.NameResolver, opts ...Option) *Reporter {
	r := &Reporter{
		store:   store,
		names:   names,
		now:     time.Now,
		loc:     time.UTC,
		maxRows: DefaultMaxRows,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reporter) clock() time.Time {
	return r.now().In(r.loc)
}
