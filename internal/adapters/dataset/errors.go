package dataset

import "errors"

// Sentinel kinds for dataset errors.
var (
	ErrNotFound = errors.New("fallback dataset not found")
	ErrRead     = errors.New("fallback dataset unreadable")
)
