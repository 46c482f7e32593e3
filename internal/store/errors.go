package store

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert violates a unique constraint
	// or a field that is set once already has a value.
	ErrDuplicate = errors.New("already exists")
)
