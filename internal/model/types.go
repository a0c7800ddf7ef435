package model

import (
	"time"

	"github.com/google/uuid"
)

// Purpose identifies what a passcode proves control over.
type Purpose string

const (
	PurposeLogin             Purpose = "login"
	PurposeEmailVerification Purpose = "email_verification"
	PurposePasswordReset     Purpose = "password_reset"
)

// Valid reports whether p is one of the known purposes.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeLogin, PurposeEmailVerification, PurposePasswordReset:
		return true
	}
	return false
}

// Origin carries request metadata recorded alongside security events.
type Origin struct {
	IP        string
	UserAgent string
}

// Account represents a viewer/creator account in the system
type Account struct {
	ID                  uuid.UUID
	Email               string
	EmailVerified       bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	LastLoginAt         *time.Time
	CreatedAt           time.Time
}

// Locked reports whether the account is locked out at the given time.
func (a Account) Locked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// PasscodeRequest represents an issued one-time passcode.
// Only the digest of the code is ever stored.
type PasscodeRequest struct {
	ID         uuid.UUID
	Identifier string
	CodeHash   string
	Purpose    Purpose
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	RequestIP  *string
	UserAgent  *string
}

// PasscodeAttempt is one verification attempt, successful or not.
// Rows double as the ledger for the per-IP verification rate limit.
type PasscodeAttempt struct {
	ID         uuid.UUID
	Identifier string
	RequestIP  *string
	Success    bool
	Reason     *string
	CreatedAt  time.Time
}

// Session represents an opaque bearer-token session.
// The raw token is returned to the caller exactly once; only its digest is stored.
type Session struct {
	ID             uuid.UUID
	AccountID      uuid.UUID
	TokenHash      string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	RevokedAt      *time.Time
	LastActivityAt time.Time
	RequestIP      *string
	UserAgent      *string
}

// Active reports whether the session is usable at the given time.
// Expiry is fixed at creation; activity never extends it.
func (s Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
