package closure

import "errors"

var (
	// ErrAlreadyClosed signals a second closure run for a year that already
	// has closure records. The guard runs before any mutation.
	ErrAlreadyClosed = errors.New("closure: year already closed")
	ErrNotFound      = errors.New("closure: not found")
)
