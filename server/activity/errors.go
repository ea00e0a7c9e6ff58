package activity

import "errors"

var (
	// ErrStoreUnavailable is returned when the backing store cannot be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrUnverified means the email is missing or not on the member allow-list.
	ErrUnverified = errors.New("email not verified")
	// ErrInactive means the member exists but is not active.
	ErrInactive = errors.New("member account inactive")
	// ErrMalformedInput is returned for payloads missing mandatory identifiers.
	ErrMalformedInput = errors.New("malformed input")
	// ErrDeviceNotFound is returned by reads and heartbeats for unknown devices.
	ErrDeviceNotFound = errors.New("device not found")
)
