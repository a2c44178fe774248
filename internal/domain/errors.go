package domain

import "errors"

// Error kinds surfaced by the membership core. The HTTP layer maps these to
// stable response codes; everything else is wrapped with %w and treated as
// internal.
var (
	ErrMemberNotFound       = errors.New("member not found")
	ErrEmailTaken           = errors.New("email already registered")
	ErrAlreadyConfirmed     = errors.New("member already confirmed")
	ErrPasswordAlreadySet   = errors.New("password already set")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired confirmation code")
	ErrCodeRequired         = errors.New("confirmation code is required")
)
