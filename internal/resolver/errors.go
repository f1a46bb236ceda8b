package resolver

import "errors"

var (
	// ErrNoReference means the caller had nothing to resolve. It is a valid
	// terminal state, not a failure.
	ErrNoReference       = errors.New("no file reference")
	ErrResolutionTimeout = errors.New("resolution timed out")
	ErrEmptyURL          = errors.New("backend returned an empty URL")
)
