package activity

import "time"

// Status is the externally visible state of a device. It is derived at read
// time and never persisted.
type Status string

const (
	StatusActive  Status = "active"
	StatusIdle    Status = "idle"
	StatusLocked  Status = "locked"
	StatusOffline Status = "offline"
)

// OfflineAfter is how long a device may stay silent before it reads as offline.
const OfflineAfter = 300 * time.Second

// DeriveStatus classifies a device from its last report. Every caller that
// shows a status goes through here.
func DeriveStatus(lastSeen time.Time, idle, locked bool, now time.Time) Status {
	if lastSeen.IsZero() || now.Sub(lastSeen) > OfflineAfter {
		return StatusOffline
	}
	if locked {
		return StatusLocked
	}
	if idle {
		return StatusIdle
	}
	return StatusActive
}
