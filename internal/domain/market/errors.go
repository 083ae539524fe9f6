package market

import "errors"

// Sentinel kinds for market errors.
var (
	ErrNotFound       = errors.New("stake not found")
	ErrCertNotFound   = errors.New("certificate not found")
	ErrSelfTip        = errors.New("cannot tip yourself")
	ErrSelfEndorse    = errors.New("cannot endorse your own certificate")
	ErrZeroAmount     = errors.New("amount must be positive")
	ErrNotStaker      = errors.New("caller does not own this stake")
	ErrLowReputation  = errors.New("insufficient reputation")
	ErrSeasonRunning  = errors.New("season has not elapsed yet")
	ErrSeasonNotFound = errors.New("season not found")
)
