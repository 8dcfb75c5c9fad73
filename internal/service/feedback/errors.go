package feedback

import "errors"

// Sentinel errors for the feedback processing layer.
var (
	// ErrDuplicateEvent means the provider message id has already been
	// processed. Callers treat this as success (idempotent redelivery).
	ErrDuplicateEvent = errors.New("feedback event already processed")

	// ErrConflict is a transient uniqueness race between the existence
	// check and the insert. The processor retries once; the window is the
	// gap between check and insert, so one retry settles it.
	ErrConflict = errors.New("transient persistence conflict")

	// ErrEventNotFound is returned by audit lookups for unknown event ids.
	ErrEventNotFound = errors.New("feedback event not found")
)
