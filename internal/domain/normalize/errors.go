package normalize

import "errors"

// Sentinel kinds for payload errors.
var (
	ErrEmptyBody       = errors.New("empty body")
	ErrMalformedJSON   = errors.New("malformed JSON")
	ErrUnexpectedShape = errors.New("unexpected JSON structure. Expecting a list or object with 'regions' key")
)
