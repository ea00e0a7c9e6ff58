package reporting

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ctolnik/work-eye/server/activity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)

type fakeStore struct {
	devices   map[string]activity.Device
	members   []activity.MemberDevice
	samples   map[string][]activity.Sample
	summaries map[string]activity.DailySummary
	active    int
	totals    activity.DayTotals
	timeline  []activity.TimelineEntry
	shots     map[string][]activity.ScreenshotEntry
	apps      map[string][]activity.AppTotal
	err       error

	lastWindow activity.Window
	lastLimit  int
	lastOffset int
	lastDevice string
}

func (f *fakeStore) GetDevice(_ context.Context, id string) (activity.Device, error) {
	if f.err != nil {
		return activity.Device{}, f.err
	}
	d, ok := f.devices[id]
	if !ok {
		return activity.Device{}, activity.ErrDeviceNotFound
	}
	return d, nil
}

func (f *fakeStore) ListTimeline(_ context.Context, id string, w activity.Window, limit int) ([]activity.Sample, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastWindow, f.lastLimit = w, limit
	var out []activity.Sample
	for _, s := range f.samples[id] {
		if w.Contains(s.Timestamp) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) GetDailySummary(_ context.Context, id string, date time.Time) (activity.DailySummary, bool, error) {
	ds, ok := f.summaries[id+date.Format("2006-01-02")]
	return ds, ok, nil
}

func (f *fakeStore) ListMemberDevices(context.Context) ([]activity.MemberDevice, error) {
	return f.members, f.err
}

func (f *fakeStore) CountActiveMembers(context.Context) (int, error) {
	return f.active, f.err
}

func (f *fakeStore) DayTotals(context.Context, time.Time) (activity.DayTotals, error) {
	return f.totals, f.err
}

func (f *fakeStore) ListRecentActivity(_ context.Context, limit int) ([]activity.TimelineEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastLimit = limit
	out := append([]activity.TimelineEntry(nil), f.timeline...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ListActivityLog(_ context.Context, deviceID string, offset, limit int) ([]activity.TimelineEntry, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	f.lastDevice, f.lastOffset, f.lastLimit = deviceID, offset, limit
	var match []activity.TimelineEntry
	for _, e := range f.timeline {
		if deviceID == "" || e.DeviceID == deviceID {
			match = append(match, e)
		}
	}
	total := len(match)
	if offset > total {
		offset = total
	}
	end := min(offset+limit, total)
	return append([]activity.TimelineEntry(nil), match[offset:end]...), total, nil
}

func (f *fakeStore) ListScreenshots(_ context.Context, deviceID string, w activity.Window, limit int) ([]activity.ScreenshotEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastWindow, f.lastLimit = w, limit
	var out []activity.ScreenshotEntry
	for _, e := range f.shots[deviceID] {
		if w.Start.IsZero() || w.Contains(e.Timestamp) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) TopApps(_ context.Context, deviceID string, _ time.Time, limit int) ([]activity.AppTotal, error) {
	if f.err != nil {
		return nil, f.err
	}
	apps := f.apps[deviceID]
	if len(apps) > limit {
		apps = apps[:limit]
	}
	return apps, nil
}

func newTestReporter(store Store, opts ...Option) *Reporter {
	names, _ := activity.ParseNameMap(strings.NewReader("alice@example.com > Alice A.\n"))
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	return NewReporter(store, names, opts...)
}

func minutesAgo(m int) time.Time { return now.Add(-time.Duration(m) * time.Minute) }

func TestAppUsage(t *testing.T) {
	store := &fakeStore{samples: map[string][]activity.Sample{"pc-1": {
		// 600s to the next sample is past the gap threshold and counts 5s.
		{Timestamp: minutesAgo(30), Process: "code", Window: "a.go"},
		{Timestamp: minutesAgo(20), Process: "chrome"},
		{Timestamp: minutesAgo(15), Process: "slack", Idle: true},
		{Timestamp: minutesAgo(14), Process: "code"},
		{Timestamp: now.AddDate(0, 0, -2), Process: "old"},
	}}}
	r := newTestReporter(store, WithMaxRows(500))

	rep, err := r.AppUsage(t.Context(), "pc-1", "", 2)
	require.NoError(t, err)
	assert.Equal(t, activity.PeriodToday, rep.Period)
	assert.Equal(t, 500, store.lastLimit)
	assert.Equal(t, 3, rep.TotalApps)
	require.Len(t, rep.Apps, 2)
	assert.Equal(t, "chrome", rep.Apps[0].Name)
	assert.Equal(t, 300.0, rep.Apps[0].TotalSeconds)
	assert.Equal(t, "slack", rep.Apps[1].Name)
	assert.Equal(t, 60.0, rep.Apps[1].IdleSeconds)
	assert.Equal(t, 5.0, rep.OtherAppsTime)
	assert.Equal(t, 365.0, rep.TotalTrackedTime)
	assert.Equal(t, 0.1, rep.TotalTrackedHours)
}

func TestAppUsageYesterdayIsBounded(t *testing.T) {
	store := &fakeStore{}
	_, err := newTestReporter(store).AppUsage(t.Context(), "pc-1", activity.PeriodYesterday, 0)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), store.lastWindow.Start)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), store.lastWindow.End)
}

func TestHistorical(t *testing.T) {
	store := &fakeStore{
		devices: map[string]activity.Device{"pc-1": {DeviceID: "pc-1", UserName: "alice@example.com"}},
		samples: map[string][]activity.Sample{"pc-1": {
			{Timestamp: now.AddDate(0, 0, -1)},
			{Timestamp: now.AddDate(0, 0, -1).Add(time.Minute), Locked: true},
			{Timestamp: now.AddDate(0, 0, -40)},
		}},
	}
	r := newTestReporter(store)

	rep, err := r.Historical(t.Context(), "pc-1", "bogus", "")
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", rep.UserName)
	assert.Equal(t, activity.Range30Days, rep.Range)
	assert.Equal(t, "day", rep.Granularity)
	require.Equal(t, 1, rep.DataPoints)
	assert.Equal(t, 50.0, rep.Series[0].Productivity)
	assert.Equal(t, now, rep.EndDate)

	rep, err = r.Historical(t.Context(), "pc-1", activity.Range90Days, "day")
	require.NoError(t, err)
	assert.Equal(t, 2, rep.DataPoints)

	_, err = r.Historical(t.Context(), "pc-404", "", "")
	assert.ErrorIs(t, err, activity.ErrDeviceNotFound)
}

func TestProductivityTrends(t *testing.T) {
	store := &fakeStore{samples: map[string][]activity.Sample{"pc-1": {
		{Timestamp: time.Date(2024, 3, 14, 9, 10, 0, 0, time.UTC)},
		{Timestamp: time.Date(2024, 3, 14, 10, 10, 0, 0, time.UTC), Idle: true},
	}}}
	rep, err := newTestReporter(store).ProductivityTrends(t.Context(), "pc-1", "")
	require.NoError(t, err)
	assert.Equal(t, activity.Range7Days, rep.Range)
	assert.Equal(t, 2, rep.TotalDataPoints)
	require.Len(t, rep.PeakHours, 2)
	assert.Equal(t, 9, rep.PeakHours[0].Hour)
}

func TestDailySummaries(t *testing.T) {
	store := &fakeStore{samples: map[string][]activity.Sample{"pc-1": {
		{Timestamp: time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC), Process: "code"},
		{Timestamp: time.Date(2024, 3, 14, 18, 0, 0, 0, time.UTC), Process: "code"},
	}}}
	r := newTestReporter(store)

	rep, err := r.DailySummaries(t.Context(), "pc-1", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultDays, rep.Days)
	require.Equal(t, 1, rep.TotalDays)
	assert.Equal(t, 9.0, rep.Summaries[0].WorkDuration)

	rep, err = r.DailySummaries(t.Context(), "pc-1", 10000)
	require.NoError(t, err)
	assert.Equal(t, MaxDays, rep.Days)
}

func TestExport(t *testing.T) {
	store := &fakeStore{
		devices: map[string]activity.Device{"pc-1": {
			DeviceID: "pc-1",
			UserName: "bob@example.com",
			LastSeen: now.Add(-time.Minute),
			IsIdle:   true,
			LiveMetrics: activity.LiveMetrics{Metrics: activity.Metrics{
				ScreenHours: 1.234, Productivity: 66.66, Efficiency: 120,
			}},
		}},
		summaries: map[string]activity.DailySummary{
			"pc-12024-03-15": {DeviceID: "pc-1", ActiveSeconds: 3600},
		},
	}
	rep, err := newTestReporter(store).Export(t.Context(), "pc-1", "")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", rep.UserName)
	assert.Equal(t, activity.Range30Days, rep.ReportRange)
	assert.Equal(t, activity.StatusIdle, rep.CurrentStatus.Status)
	assert.Equal(t, 1.23, rep.CurrentStatus.ScreenHours)
	assert.Equal(t, 66.7, rep.CurrentStatus.Productivity)
	assert.Equal(t, 100.0, rep.CurrentStatus.Efficiency)
	require.NotNil(t, rep.TodaySoFar)
	assert.Equal(t, 3600.0, rep.TodaySoFar.ActiveSeconds)
}

func TestFleetAndStats(t *testing.T) {
	store := &fakeStore{
		active: 3,
		members: []activity.MemberDevice{
			{MemberName: "Alice", Device: activity.Device{DeviceID: "a", UserName: "alice@example.com", LastSeen: now, SessionStart: now.Add(-90 * time.Minute)}},
			{MemberName: "Alice", Device: activity.Device{DeviceID: "a2", UserName: "Alice@example.com", LastSeen: now, Locked: true}},
			{Device: activity.Device{DeviceID: "b", UserName: "bob@example.com", LastSeen: now.Add(-time.Hour), SessionStart: now.Add(-2 * time.Hour)}},
		},
		totals: activity.DayTotals{Devices: 2, AvgProductivity: 55.56, ScreenSeconds: 7200},
	}
	r := newTestReporter(store)

	fleet, err := r.Fleet(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, fleet.TotalCount)
	assert.Equal(t, 1, fleet.ActiveCount)
	assert.Equal(t, 1, fleet.LockedCount)
	assert.Equal(t, 1, fleet.OfflineCount)
	assert.Equal(t, 1.5, fleet.Employees[0].SessionDurationHours)
	assert.Zero(t, fleet.Employees[2].SessionDurationHours)
	assert.Equal(t, "bob@example.com", fleet.Employees[2].Name)

	stats, err := r.Stats(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalEmployees)
	assert.Equal(t, 1, stats.ActiveNow)
	assert.Equal(t, 2, stats.InactiveEmployees)
	assert.Equal(t, 55.6, stats.Today.AverageProductivity)
	assert.Equal(t, 2.0, stats.Today.TotalHours)
}

func TestStoreErrorsPropagate(t *testing.T) {
	store := &fakeStore{err: fmt.Errorf("dial: %w", activity.ErrStoreUnavailable)}
	r := newTestReporter(store)

	_, err := r.AppUsage(t.Context(), "pc-1", "", 0)
	assert.ErrorIs(t, err, activity.ErrStoreUnavailable)
	_, err = r.Stats(t.Context())
	assert.ErrorIs(t, err, activity.ErrStoreUnavailable)
	_, err = r.Export(t.Context(), "pc-1", "")
	assert.ErrorIs(t, err, activity.ErrStoreUnavailable)
}
