package roles

import "errors"

// Sentinel kinds for role table errors.
var (
	ErrUnauthorized    = errors.New("caller lacks required role")
	ErrInvalidIdentity = errors.New("invalid identity")
)
