package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/ctolnik/work-eye/server/activity"
	"github.com/ctolnik/work-eye/server/observability"
)

// ScreenshotURLPrefix is where stored screenshot objects are served.
const ScreenshotURLPrefix = "/api/screenshots/"

// EmployeeDetailReport is the single-device dashboard page.
type EmployeeDetailReport struct {
	Employee
	OSInfo      string                     `json:"os_info"`
	CreatedAt   time.Time                  `json:"created_at"`
	Today       *activity.DailySummary     `json:"today,omitempty"`
	TopApps     []activity.AppTotal        `json:"top_apps"`
	Screenshots []activity.ScreenshotEntry `json:"screenshots"`
}

// EmployeeDetail combines the device, today's summary, the top apps of the
// app usage rollup for today and the most recent screenshots.
func (r *Reporter) EmployeeDetail(ctx context.Context, deviceID string) (EmployeeDetailReport, error) {
	defer observability.ObserveReport("employee_detail", time.Now())

	device, err := r.store.GetDevice(ctx, deviceID)
	if err != nil {
		return EmployeeDetailReport{}, fmt.Errorf("employee detail: %w", err)
	}
	now := r.clock()
	today := activity.StartOfDay(now)

	report := EmployeeDetailReport{
		Employee:  r.employee(device, "", now),
		OSInfo:    device.OSInfo,
		CreatedAt: device.CreatedAt,
	}

	summary, ok, err := r.store.GetDailySummary(ctx, deviceID, today)
	if err != nil {
		return EmployeeDetailReport{}, fmt.Errorf("employee detail: %w", err)
	}
	if ok {
		report.Today = &summary
	}

	if report.TopApps, err = r.store.TopApps(ctx, deviceID, today, TopAppsLimit); err != nil {
		return EmployeeDetailReport{}, fmt.Errorf("employee detail: %w", err)
	}

	shots, err := r.store.ListScreenshots(ctx, deviceID, activity.Window{}, RecentScreenshots)
	if err != nil {
		return EmployeeDetailReport{}, fmt.Errorf("employee detail: %w", err)
	}
	report.Screenshots = withURLs(shots)
	return report, nil
}

// ActivityFeed is the newest timeline entries across all devices.
type ActivityFeed struct {
	Entries []activity.TimelineEntry `json:"entries"`
	Count   int                      `json:"count"`
}

func (r *Reporter) RecentActivity(ctx context.Context) (ActivityFeed, error) {
	defer observability.ObserveReport("recent_activity", time.Now())

	entries, err := r.store.ListRecentActivity(ctx, RecentActivityLimit)
	if err != nil {
		return ActivityFeed{}, fmt.Errorf("recent activity: %w", err)
	}
	r.resolveNames(entries)
	return ActivityFeed{Entries: entries, Count: len(entries)}, nil
}

// ActivityLogPage is one page of the timeline.
type ActivityLogPage struct {
	DeviceID string                   `json:"device_id,omitempty"`
	Entries  []activity.TimelineEntry `json:"entries"`
	Total    int                      `json:"total"`
	Offset   int                      `json:"offset"`
	Limit    int                      `json:"limit"`
	HasMore  bool                     `json:"has_more"`
}

// ActivityLog pages through the timeline of one device, or of all devices
// when deviceID is empty. A non-positive limit means DefaultLogLimit;
// larger limits are capped at MaxLogLimit.
func (r *Reporter) ActivityLog(ctx context.Context, deviceID string, offset, limit int) (ActivityLogPage, error) {
	defer observability.ObserveReport("activity_log", time.Now())

	if offset < 0 {
		return ActivityLogPage{}, fmt.Errorf("%w: offset must not be negative", activity.ErrMalformedInput)
	}
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	if limit > MaxLogLimit {
		limit = MaxLogLimit
	}

	entries, total, err := r.store.ListActivityLog(ctx, deviceID, offset, limit)
	if err != nil {
		return ActivityLogPage{}, fmt.Errorf("activity log: %w", err)
	}
	r.resolveNames(entries)

	return ActivityLogPage{
		DeviceID: deviceID,
		Entries:  entries,
		Total:    total,
		Offset:   offset,
		Limit:    limit,
		HasMore:  offset+len(entries) < total,
	}, nil
}

// ScreenshotList is the screenshot timeline of one device.
type ScreenshotList struct {
	DeviceID    string                     `json:"device_id"`
	Date        string                     `json:"date,omitempty"`
	Screenshots []activity.ScreenshotEntry `json:"screenshots"`
	Count       int                        `json:"count"`
}

// Screenshots lists the screenshots of a device, newest first. A non-empty
// date (YYYY-MM-DD) restricts the list to that day in the reporting zone.
func (r *Reporter) Screenshots(ctx context.Context, deviceID, date string) (ScreenshotList, error) {
	defer observability.ObserveReport("screenshots", time.Now())

	var w activity.Window
	if date != "" {
		var err error
		if w, err = activity.DayWindow(date, r.loc); err != nil {
			return ScreenshotList{}, fmt.Errorf("screenshots: %w", err)
		}
	}

	shots, err := r.store.ListScreenshots(ctx, deviceID, w, MaxScreenshots)
	if err != nil {
		return ScreenshotList{}, fmt.Errorf("screenshots: %w", err)
	}
	shots = withURLs(shots)
	return ScreenshotList{
		DeviceID:    deviceID,
		Date:        date,
		Screenshots: shots,
		Count:       len(shots),
	}, nil
}

func (r *Reporter) resolveNames(entries []activity.TimelineEntry) {
	for i := range entries {
		entries[i].Name = r.names.Resolve(entries[i].UserName)
	}
}

func withURLs(shots []activity.ScreenshotEntry) []activity.ScreenshotEntry {
	for i := range shots {
		if shots[i].Key != "" {
			shots[i].URL = ScreenshotURLPrefix + shots[i].Key
		}
	}
	return shots
}
