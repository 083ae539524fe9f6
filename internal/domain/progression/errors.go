package progression

import "errors"

// Sentinel kinds for progression errors.
var (
	ErrNotFound        = errors.New("certificate not found")
	ErrInvalidCategory = errors.New("unknown skill category")
	ErrInvalidOwner    = errors.New("invalid owner identity")
	ErrZeroXP          = errors.New("xp amount must be positive")
)
