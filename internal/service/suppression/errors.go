package suppression

import "errors"

// Sentinel errors for the suppression service layer.
var (
	// ErrNotFound covers both a missing row and an already-released one:
	// release is idempotent and reports "nothing to do" the same way.
	ErrNotFound = errors.New("suppression entry not found")
)
