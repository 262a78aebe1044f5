package store

import (
	"errors"

	"lab-status-backend/internal/registry"
)

// Typed failures surfaced by store operations. Callers match with errors.Is
// and map them to user-visible reasons; a generic error never leaks a
// specific condition.
var (
	// ErrUnknownStation marks an id outside the configured registry.
	ErrUnknownStation = registry.ErrUnknownStation

	// ErrAlreadyQueued is returned when an identity is already waiting in
	// the queue for that station type.
	ErrAlreadyQueued = errors.New("identity already queued for this station type")

	// ErrNotFound is returned for queue entries, overrides, or claims that
	// do not exist (including ones already dequeued or superseded).
	ErrNotFound = errors.New("not found")

	// ErrTokenUnknown is returned for claim tokens that were never issued
	// or are no longer active.
	ErrTokenUnknown = errors.New("unknown claim token")
)
