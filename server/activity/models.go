package activity

import (
	"encoding/json"
	"time"
)

// MemberStatus values; only MemberActive members pass the gate.
const (
	MemberActive    = "active"
	MemberInactive  = "inactive"
	MemberSuspended = "suspended"
)

// Member is an allow-listed identity. Read-only to this service.
type Member struct {
	ID       int64
	Email    string
	FullName string
	IsActive bool
	Status   string
}

// Eligible reports whether telemetry from this member may be accepted.
func (m Member) Eligible() bool {
	return m.IsActive && m.Status == MemberActive
}

// Device is the live-state row of one endpoint. Status is not stored; use
// DeriveStatus.
type Device struct {
	DeviceID       string
	UserName       string
	Hostname       string
	OSInfo         string
	IsIdle         bool
	Locked         bool
	CurrentWindow  string
	CurrentProcess string
	LiveMetrics    LiveMetrics
	LastSeen       time.Time
	LastActivity   time.Time
	SessionStart   time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Status derives the device status at now.
func (d Device) Status(now time.Time) Status {
	return DeriveStatus(d.LastSeen, d.IsIdle, d.Locked, now)
}

// RawEvent is the immutable record of one accepted snapshot.
type RawEvent struct {
	ID             string
	DeviceID       string
	UserName       string
	Timestamp      time.Time
	SessionStart   time.Time
	TotalSeconds   float64
	ActiveSeconds  float64
	IdleSeconds    float64
	LockedSeconds  float64
	IdleFor        float64
	CurrentWindow  string
	CurrentProcess string
	IsIdle         bool
	Locked         bool
	MouseActive    bool
	KeyboardActive bool
	WindowsOpened  []json.RawMessage
	BrowserHistory []json.RawMessage
	Payload        json.RawMessage
	// ScreenshotKey is set when the screenshot went to object storage;
	// otherwise Screenshot carries the encoded payload inline.
	ScreenshotKey string
	Screenshot    []byte
	ReceivedAt    time.Time
}

// NewRawEvent builds the raw record for s, attributed to user.
func NewRawEvent(id string, s Snapshot, user string, receivedAt time.Time) RawEvent {
	return RawEvent{
		ID:             id,
		DeviceID:       s.DeviceID,
		UserName:       user,
		Timestamp:      s.Timestamp,
		SessionStart:   s.SessionStart,
		TotalSeconds:   s.TotalSeconds,
		ActiveSeconds:  s.ActiveSeconds,
		IdleSeconds:    s.IdleSeconds,
		LockedSeconds:  s.LockedSeconds,
		IdleFor:        s.IdleFor,
		CurrentWindow:  s.CurrentWindow,
		CurrentProcess: s.CurrentProcess,
		IsIdle:         s.IsIdle,
		Locked:         s.Locked,
		MouseActive:    s.MouseActive,
		KeyboardActive: s.KeyboardActive,
		WindowsOpened:  s.WindowsOpened,
		BrowserHistory: s.BrowserHistory,
		Payload:        s.Raw,
		Screenshot:     s.Screenshot,
		ReceivedAt:     receivedAt,
	}
}

// HasScreenshot reports whether a screenshot was kept inline or by key.
func (e RawEvent) HasScreenshot() bool {
	return e.ScreenshotKey != "" || len(e.Screenshot) > 0
}

// ProcessedRecord is one timeline entry.
type ProcessedRecord struct {
	DeviceID       string
	UserName       string
	Timestamp      time.Time
	CurrentWindow  string
	CurrentProcess string
	Status         string
	IsIdle         bool
	Locked         bool
	ScreenshotKey  string
	Screenshot     []byte
	ActiveDuration float64
	IdleDuration   float64
}

// NewProcessedRecord projects a raw event onto the timeline. Locked events
// are labelled idle.
func NewProcessedRecord(e RawEvent) ProcessedRecord {
	status := string(StatusActive)
	if e.IsIdle || e.Locked {
		status = string(StatusIdle)
	}
	return ProcessedRecord{
		DeviceID:       e.DeviceID,
		UserName:       e.UserName,
		Timestamp:      e.Timestamp,
		CurrentWindow:  e.CurrentWindow,
		CurrentProcess: e.CurrentProcess,
		Status:         status,
		IsIdle:         e.IsIdle,
		Locked:         e.Locked,
		ScreenshotKey:  e.ScreenshotKey,
		Screenshot:     e.Screenshot,
		ActiveDuration: e.ActiveSeconds,
		IdleDuration:   e.IdleSeconds,
	}
}

// Sample returns the reconstruction view of the record.
func (p ProcessedRecord) Sample() Sample {
	return Sample{
		Timestamp:  p.Timestamp,
		Process:    p.CurrentProcess,
		Window:     p.CurrentWindow,
		Idle:       p.IsIdle,
		Locked:     p.Locked,
		Screenshot: p.ScreenshotKey != "" || len(p.Screenshot) > 0,
	}
}

// AppUsageDelta is merged additively into the (device, date, app, window) row.
type AppUsageDelta struct {
	DeviceID      string
	Date          time.Time
	AppName       string
	WindowTitle   string
	TotalSeconds  float64
	ActiveSeconds float64
	IdleSeconds   float64
}

// MaxNameLength bounds app, process and window names in the app usage rollup.
const MaxNameLength = 255

// NewAppUsageDelta builds the app usage contribution of s for date.
func NewAppUsageDelta(s Snapshot, date time.Time) AppUsageDelta {
	return AppUsageDelta{
		DeviceID:      s.DeviceID,
		Date:          date,
		AppName:       truncate(s.CurrentProcess, MaxNameLength),
		WindowTitle:   truncate(s.CurrentWindow, MaxNameLength),
		TotalSeconds:  s.TotalSeconds,
		ActiveSeconds: s.ActiveSeconds,
		IdleSeconds:   s.IdleSeconds,
	}
}

// DailyDelta is merged into the (device, date) summary row. Time counters add
// up; Productivity and Efficiency replace the stored values.
type DailyDelta struct {
	DeviceID        string
	Date            time.Time
	UserName        string
	ScreenSeconds   float64
	ActiveSeconds   float64
	IdleSeconds     float64
	LockedSeconds   float64
	Productivity    float64
	Efficiency      float64
	WebsitesVisited int
	Screenshots     int
	FirstActivity   time.Time
	LastActivity    time.Time
}

// NewDailyDelta builds the daily summary contribution of s for date.
func NewDailyDelta(s Snapshot, user string, date time.Time) DailyDelta {
	m := Calculate(s.ActiveSeconds, s.IdleSeconds, s.TotalSeconds)
	d := DailyDelta{
		DeviceID:        s.DeviceID,
		Date:            date,
		UserName:        user,
		ScreenSeconds:   s.TotalSeconds,
		ActiveSeconds:   s.ActiveSeconds,
		IdleSeconds:     s.IdleSeconds,
		LockedSeconds:   s.LockedSeconds,
		Productivity:    m.Productivity,
		Efficiency:      m.Efficiency,
		WebsitesVisited: len(s.BrowserHistory),
		FirstActivity:   s.SessionStart,
		LastActivity:    s.LastActivity,
	}
	if s.HasScreenshot() {
		d.Screenshots = 1
	}
	return d
}

// DailySummary is the stored per-device, per-day rollup. Times are seconds.
type DailySummary struct {
	DeviceID        string    `json:"deviceId"`
	Date            time.Time `json:"date"`
	UserName        string    `json:"userName"`
	ScreenSeconds   float64   `json:"totalScreenTime"`
	ActiveSeconds   float64   `json:"activeTime"`
	IdleSeconds     float64   `json:"idleTime"`
	LockedSeconds   float64   `json:"lockedTime"`
	Productivity    float64   `json:"productivity"`
	Efficiency      float64   `json:"efficiency"`
	UniqueApps      int       `json:"uniqueApps"`
	WindowSwitches  int       `json:"windowSwitches"`
	WebsitesVisited int       `json:"websitesVisited"`
	Screenshots     int       `json:"screenshotsCaptured"`
	FirstActivity   time.Time `json:"firstActivity"`
	LastActivity    time.Time `json:"lastActivity"`
}

// DeviceState is the device row written on every accepted snapshot.
type DeviceState struct {
	DeviceID       string
	UserName       string
	Hostname       string
	OSInfo         string
	IsIdle         bool
	Locked         bool
	CurrentWindow  string
	CurrentProcess string
	LiveMetrics    LiveMetrics
	LastSeen       time.Time
	LastActivity   time.Time
	SessionStart   time.Time
}

// NewDeviceState builds the live-state update for s received at now.
func NewDeviceState(s Snapshot, user string, now time.Time) DeviceState {
	return DeviceState{
		DeviceID:       s.DeviceID,
		UserName:       user,
		Hostname:       s.Hostname,
		OSInfo:         s.OSInfo,
		IsIdle:         s.IsIdle,
		Locked:         s.Locked,
		CurrentWindow:  s.CurrentWindow,
		CurrentProcess: s.CurrentProcess,
		LiveMetrics:    NewLiveMetrics(s, now),
		LastSeen:       now,
		LastActivity:   s.LastActivity,
		SessionStart:   s.SessionStart,
	}
}

// Registration is an explicit device registration request.
type Registration struct {
	DeviceID string `json:"device_id"`
	UserName string `json:"user_name"`
	Hostname string `json:"hostname"`
	OSInfo   string `json:"os_info"`
}

// MemberDevice is a device joined with the active member it reports for.
type MemberDevice struct {
	Device
	MemberName string
}

// DayTotals is the averaged view over one day of daily summaries.
type DayTotals struct {
	Devices         int
	AvgProductivity float64
	AvgEfficiency   float64
	ActiveSeconds   float64
	ScreenSeconds   float64
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
