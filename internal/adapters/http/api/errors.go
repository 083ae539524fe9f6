package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNoIdentity = errors.New("missing X-Forge-Identity header")
)
