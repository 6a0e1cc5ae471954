package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when an entity is not found.
	ErrNotFound = errors.New("entity not found")

	// ErrTerminalStatus is returned when updating a run that already
	// completed or failed.
	ErrTerminalStatus = errors.New("run already finished")
)
