package auth

import "errors"

// Errors returned to callers. Security-sensitive distinctions (wrong code,
// unknown identifier, expired code) are collapsed into ErrInvalidOrExpiredCode;
// the specific reason goes to the audit log only.
var (
	// ErrRateLimited means the caller must wait before retrying.
	ErrRateLimited = errors.New("too many requests, please wait and try again")

	// ErrInvalidOrExpiredCode covers wrong, expired, consumed, and
	// never-issued passcodes alike.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")

	// ErrAccountLocked means the account is locked out until the lockout
	// window elapses.
	ErrAccountLocked = errors.New("account temporarily locked")

	// ErrSessionInvalid covers unknown, expired, and revoked session tokens alike.
	ErrSessionInvalid = errors.New("invalid session")

	// ErrInvalidPurpose is returned for an unknown passcode purpose.
	ErrInvalidPurpose = errors.New("invalid passcode purpose")
)
