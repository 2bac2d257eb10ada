package errors

import (
	"errors"
)

// Sentinel errors for different categories
var (
	// ErrDuplicateEvent - event id already applied within the dedup window (drop silently)
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrStaleEvent - event sequence below the session cursor (superseded, drop silently)
	ErrStaleEvent = errors.New("stale event")

	// ErrInvalidInput - malformed event or payload (drop with warning, never abort the batch)
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound - referenced record does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict - conflicting state (retry deterministically)
	ErrConflict = errors.New("conflict")

	// ErrTransient - transient error (reconnect/retry with backoff)
	ErrTransient = errors.New("transient error")

	// ErrInternal - internal error (log and continue with the next event)
	ErrInternal = errors.New("internal error")
)
