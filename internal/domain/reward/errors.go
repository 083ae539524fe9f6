package reward

import "errors"

// Sentinel kinds for reward table errors.
var (
	ErrUnknownType   = errors.New("unknown milestone type")
	ErrZeroReward    = errors.New("base reward must be positive")
	ErrBadMultiplier = errors.New("multiplier out of range")
)
