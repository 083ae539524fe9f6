package governance

import "errors"

// Sentinel kinds for governance errors.
var (
	ErrNotFound        = errors.New("proposal not found")
	ErrLowReputation   = errors.New("insufficient reputation to propose")
	ErrAlreadyVoted    = errors.New("identity already voted on this proposal")
	ErrOutsideWindow   = errors.New("proposal voting window is closed")
	ErrZeroWeight      = errors.New("voter has no reputation to vote with")
	ErrInvalidInput    = errors.New("invalid proposal input")
	ErrUnauthorized    = errors.New("caller lacks required role")
	ErrAlreadyExecuted = errors.New("proposal already marked executed")
	ErrWindowOpen      = errors.New("voting window is still open")
)
