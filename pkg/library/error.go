package library

import "errors"

var (
	// ErrInvalidConfig is returned by New when the library configuration is
	// invalid, e.g. a non-positive chunk size or an overlap not smaller than
	// the chunk size.
	ErrInvalidConfig = errors.New("invalid library configuration")
)
