package verification

import "errors"

// Sentinel kinds for verification errors.
var (
	ErrNotFound          = errors.New("milestone not found")
	ErrNotCertOwner      = errors.New("caller does not own the certificate")
	ErrUnauthorized      = errors.New("caller is not an authorized verifier")
	ErrNotPending        = errors.New("milestone is not pending")
	ErrSelfEndorse       = errors.New("builder cannot endorse own milestone")
	ErrAlreadyEndorsed   = errors.New("identity already endorsed this milestone")
	ErrAlreadyChallenged = errors.New("identity already challenged this milestone")
	ErrRejectedMilestone = errors.New("milestone is rejected")
	ErrInvalidInput      = errors.New("invalid milestone input")
	ErrBadSignature      = errors.New("attestation signature invalid")
)
