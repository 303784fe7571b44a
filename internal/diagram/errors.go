package diagram

import "errors"

var (
	// ErrValidation marks precondition failures: the operation is reported
	// to the user and simply not performed, never fatal.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks references to points, objects or glue points that
	// no longer exist, typically from stale UI state.
	ErrNotFound = errors.New("not found")
)
