package roster

import "errors"

// ErrParse marks a roster file that exists but could not be parsed.
var ErrParse = errors.New("roster parse failed")
