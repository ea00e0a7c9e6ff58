package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ctolnik/work-eye/server/activity"
	"github.com/ctolnik/work-eye/server/observability"
)

// Employee is one member device in the fleet overview.
type Employee struct {
	DeviceID             string          `json:"device_id"`
	Name                 string          `json:"name"`
	Email                string          `json:"email"`
	Hostname             string          `json:"hostname"`
	Status               activity.Status `json:"status"`
	IsIdle               bool            `json:"is_idle"`
	Locked               bool            `json:"locked"`
	CurrentWindow        string          `json:"current_window"`
	CurrentProcess       string          `json:"current_process"`
	ScreenTimeHours      float64         `json:"screen_time_hours"`
	ActiveTimeHours      float64         `json:"active_time_hours"`
	IdleTimeHours        float64         `json:"idle_time_hours"`
	Productivity         float64         `json:"productivity"`
	Efficiency           float64         `json:"efficiency"`
	SessionDurationHours float64         `json:"session_duration_hours"`
	LastSeen             time.Time       `json:"last_seen"`
	LastActivity         time.Time       `json:"last_activity"`
	SessionStart         time.Time       `json:"session_start"`
}

// FleetReport lists member devices with per-status counts.
type FleetReport struct {
	Employees    []Employee `json:"employees"`
	TotalCount   int        `json:"total_count"`
	ActiveCount  int        `json:"active_count"`
	IdleCount    int        `json:"idle_count"`
	LockedCount  int        `json:"locked_count"`
	OfflineCount int        `json:"offline_count"`
}

// Fleet lists devices of active members, most recently seen first.
func (r *Reporter) Fleet(ctx context.Context) (FleetReport, error) {
	defer observability.ObserveReport("fleet", time.Now())

	devices, err := r.store.ListMemberDevices(ctx)
	if err != nil {
		return FleetReport{}, fmt.Errorf("fleet: %w", err)
	}
	now := r.clock()

	report := FleetReport{Employees: make([]Employee, 0, len(devices))}
	for _, d := range devices {
		e := r.employee(d.Device, d.MemberName, now)
		report.Employees = append(report.Employees, e)
		switch e.Status {
		case activity.StatusActive:
			report.ActiveCount++
		case activity.StatusIdle:
			report.IdleCount++
		case activity.StatusLocked:
			report.LockedCount++
		default:
			report.OfflineCount++
		}
	}
	report.TotalCount = len(report.Employees)
	return report, nil
}

// employee flattens a device for display. An empty name falls back to the
// name map.
func (r *Reporter) employee(d activity.Device, name string, now time.Time) Employee {
	status := d.Status(now)
	if name == "" {
		name = r.names.Resolve(d.UserName)
	}
	var session float64
	if status != activity.StatusOffline && !d.SessionStart.IsZero() {
		session = activity.Hours(now.Sub(d.SessionStart).Seconds())
	}
	lm := d.LiveMetrics
	return Employee{
		DeviceID:             d.DeviceID,
		Name:                 name,
		Email:                d.UserName,
		Hostname:             d.Hostname,
		Status:               status,
		IsIdle:               d.IsIdle,
		Locked:               d.Locked,
		CurrentWindow:        d.CurrentWindow,
		CurrentProcess:       d.CurrentProcess,
		ScreenTimeHours:      lm.ScreenHours,
		ActiveTimeHours:      lm.ActiveHours,
		IdleTimeHours:        lm.IdleHours,
		Productivity:         lm.Productivity,
		Efficiency:           lm.Efficiency,
		SessionDurationHours: session,
		LastSeen:             d.LastSeen,
		LastActivity:         d.LastActivity,
		SessionStart:         d.SessionStart,
	}
}

// Stats is the dashboard headline.
type Stats struct {
	TotalEmployees    int        `json:"total_employees"`
	ActiveNow         int        `json:"active_now"`
	InactiveEmployees int        `json:"inactive_employees"`
	Today             TodayStats `json:"today"`
}

type TodayStats struct {
	TrackedDevices      int     `json:"tracked_devices"`
	TotalHours          float64 `json:"total_hours"`
	ActiveHours         float64 `json:"active_hours"`
	AverageProductivity float64 `json:"average_productivity"`
	AverageEfficiency   float64 `json:"average_efficiency"`
}

// Stats counts active members and those with a device reporting within
// activity.OfflineAfter, plus today's summary averages.
func (r *Reporter) Stats(ctx context.Context) (Stats, error) {
	defer observability.ObserveReport("stats", time.Now())

	total, err := r.store.CountActiveMembers(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	devices, err := r.store.ListMemberDevices(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	now := r.clock()

	online := make(map[string]struct{})
	for _, d := range devices {
		if d.Status(now) != activity.StatusOffline {
			online[strings.ToLower(d.UserName)] = struct{}{}
		}
	}

	totals, err := r.store.DayTotals(ctx, activity.StartOfDay(now))
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}

	inactive := total - len(online)
	if inactive < 0 {
		inactive = 0
	}
	return Stats{
		TotalEmployees:    total,
		ActiveNow:         len(online),
		InactiveEmployees: inactive,
		Today: TodayStats{
			TrackedDevices:      totals.Devices,
			TotalHours:          activity.Hours(totals.ScreenSeconds),
			ActiveHours:         activity.Hours(totals.ActiveSeconds),
			AverageProductivity: activity.RoundPercent(totals.AvgProductivity),
			AverageEfficiency:   activity.RoundPercent(totals.AvgEfficiency),
		},
	}, nil
}
