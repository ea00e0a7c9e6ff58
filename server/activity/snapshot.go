package activity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Snapshot is one point-in-time telemetry report from a device.
// Raw keeps the payload exactly as received.
type Snapshot struct {
	DeviceID       string
	Email          string
	Username       string
	Hostname       string
	OSInfo         string
	TotalSeconds   float64
	ActiveSeconds  float64
	IdleSeconds    float64
	LockedSeconds  float64
	IdleFor        float64
	IsIdle         bool
	Locked         bool
	MouseActive    bool
	KeyboardActive bool
	CurrentWindow  string
	CurrentProcess string
	WindowsOpened  []json.RawMessage
	BrowserHistory []json.RawMessage
	SessionStart   time.Time
	Timestamp      time.Time
	LastActivity   time.Time
	Screenshot     []byte
	Raw            json.RawMessage
}

type wireSnapshot struct {
	DeviceID       flexString `json:"device_id"`
	Email          flexString `json:"email"`
	Username       flexString `json:"username"`
	Hostname       flexString `json:"hostname"`
	OSInfo         flexString `json:"os_info"`
	TotalSeconds   flexFloat  `json:"total_seconds"`
	ActiveSeconds  flexFloat  `json:"active_seconds"`
	IdleSeconds    flexFloat  `json:"idle_seconds"`
	LockedSeconds  flexFloat  `json:"locked_seconds"`
	IdleFor        flexFloat  `json:"idle_for"`
	IsIdle         flexBool   `json:"is_idle"`
	Locked         flexBool   `json:"locked"`
	MouseActive    flexBool   `json:"mouse_active"`
	KeyboardActive flexBool   `json:"keyboard_active"`
	CurrentWindow  flexString `json:"current_window"`
	CurrentProcess flexString `json:"current_process"`
	WindowsOpened  flexList   `json:"windows_opened"`
	BrowserHistory flexList   `json:"browser_history"`
	SessionStart   flexString `json:"session_start"`
	Timestamp      flexString `json:"timestamp"`
	LastActivity   flexString `json:"last_activity"`
	Screenshot     flexString `json:"screenshot"`
}

// DecodeSnapshot parses an uploaded payload. Only a body that is not a JSON
// object or lacks a device id is ErrMalformedInput. Mistyped optional fields
// read as their zero value and unparseable timestamps fall back to now. A
// missing email is left empty for the membership check to reject.
func DecodeSnapshot(body []byte, now time.Time, loc *time.Location) (Snapshot, error) {
	if loc == nil {
		loc = time.UTC
	}
	var w wireSnapshot
	if err := json.Unmarshal(body, &w); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	deviceID := strings.TrimSpace(string(w.DeviceID))
	if deviceID == "" {
		return Snapshot{}, fmt.Errorf("%w: device_id is required", ErrMalformedInput)
	}

	s := Snapshot{
		DeviceID:       deviceID,
		Email:          NormalizeEmail(string(w.Email)),
		Username:       strings.TrimSpace(string(w.Username)),
		Hostname:       strings.TrimSpace(string(w.Hostname)),
		OSInfo:         strings.TrimSpace(string(w.OSInfo)),
		TotalSeconds:   NonNegative(float64(w.TotalSeconds)),
		ActiveSeconds:  NonNegative(float64(w.ActiveSeconds)),
		IdleSeconds:    NonNegative(float64(w.IdleSeconds)),
		LockedSeconds:  NonNegative(float64(w.LockedSeconds)),
		IdleFor:        NonNegative(float64(w.IdleFor)),
		IsIdle:         bool(w.IsIdle),
		Locked:         bool(w.Locked),
		MouseActive:    bool(w.MouseActive),
		KeyboardActive: bool(w.KeyboardActive),
		CurrentWindow:  string(w.CurrentWindow),
		CurrentProcess: strings.TrimSpace(string(w.CurrentProcess)),
		WindowsOpened:  []json.RawMessage(w.WindowsOpened),
		BrowserHistory: []json.RawMessage(w.BrowserHistory),
		SessionStart:   ParseTimestamp(string(w.SessionStart), now, loc),
		Timestamp:      ParseTimestamp(string(w.Timestamp), now, loc),
		LastActivity:   ParseTimestamp(string(w.LastActivity), now, loc),
		Raw:            append(json.RawMessage(nil), body...),
	}
	if w.Screenshot != "" {
		s.Screenshot = []byte(w.Screenshot)
	}
	return s, nil
}

// NormalizeEmail lowercases and trims an email for allow-list matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s Snapshot) HasScreenshot() bool {
	return len(s.Screenshot) > 0
}

// ShouldRecordTimeline reports whether the snapshot is worth a processed
// timeline entry.
func (s Snapshot) ShouldRecordTimeline() bool {
	return s.HasScreenshot() || strings.TrimSpace(s.CurrentWindow) != "" || !s.IsIdle
}

// ShouldRecordAppUsage reports whether the snapshot feeds the app usage rollup.
func (s Snapshot) ShouldRecordAppUsage() bool {
	return s.CurrentProcess != "" && s.TotalSeconds > 0
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp accepts RFC 3339 and zone-less ISO-8601 values. Zone-less
// values are read in loc. Anything else yields fallback.
func ParseTimestamp(value string, fallback time.Time, loc *time.Location) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t
		}
	}
	return fallback
}

// flexFloat accepts JSON numbers, numeric strings and null.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

// flexBool accepts booleans, 0/1 and their string forms.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch strings.ToLower(strings.Trim(string(data), `"`)) {
	case "true", "1", "yes":
		*b = true
	default:
		*b = false
	}
	return nil
}

// flexString accepts strings and keeps the literal text of numbers. Any other
// JSON value reads as empty.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*f = ""
	if len(data) == 0 {
		return nil
	}
	switch c := data[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case c == '-' || (c >= '0' && c <= '9'):
		*f = flexString(data)
	}
	return nil
}

// flexList accepts a JSON array. Any other value reads as empty.
type flexList []json.RawMessage

func (f *flexList) UnmarshalJSON(data []byte) error {
	*f = nil
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	*f = items
	return nil
}
