package activity

import "time"

// TimelineEntry is a stored processed record as the dashboard reads it.
type TimelineEntry struct {
	ID             int64     `json:"id"`
	DeviceID       string    `json:"device_id"`
	UserName       string    `json:"user_name"`
	Name           string    `json:"name"`
	Timestamp      time.Time `json:"timestamp"`
	CurrentWindow  string    `json:"current_window"`
	CurrentProcess string    `json:"current_process"`
	Status         string    `json:"status"`
	IsIdle         bool      `json:"is_idle"`
	Locked         bool      `json:"locked"`
	HasScreenshot  bool      `json:"has_screenshot"`
	ActiveDuration float64   `json:"active_duration"`
	IdleDuration   float64   `json:"idle_duration"`
}

// ScreenshotEntry is one captured screenshot on a device timeline. Exactly
// one of Key and Data is set: Key for objects in screenshot storage, Data
// for payloads kept inline.
type ScreenshotEntry struct {
	ID             int64     `json:"id"`
	DeviceID       string    `json:"device_id"`
	Timestamp      time.Time `json:"timestamp"`
	CurrentWindow  string    `json:"current_window"`
	CurrentProcess string    `json:"current_process"`
	Status         string    `json:"status"`
	Key            string    `json:"key,omitempty"`
	URL            string    `json:"url,omitempty"`
	Data           string    `json:"data,omitempty"`
}

// AppTotal is the app usage rollup of one application summed over its
// window titles.
type AppTotal struct {
	AppName       string  `json:"app_name"`
	TotalSeconds  float64 `json:"total_seconds"`
	TotalHours    float64 `json:"total_hours"`
	ActiveSeconds float64 `json:"active_seconds"`
	IdleSeconds   float64 `json:"idle_seconds"`
	Visits        int     `json:"visit_count"`
	Windows       int     `json:"window_count"`
}
