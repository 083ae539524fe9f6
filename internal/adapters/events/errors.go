package events

import "errors"

// Sentinel kinds for event pipeline errors.
var (
	ErrClosed = errors.New("event bus closed")
)
