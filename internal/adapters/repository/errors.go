package repository

import "errors"

// Sentinel kinds for ranking store errors.
var (
	ErrNotFound     = errors.New("identity not ranked")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
)
