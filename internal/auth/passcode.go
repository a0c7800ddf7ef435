package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/githinji12/stream254-sub000/internal/audit"
	"github.com/githinji12/stream254-sub000/internal/delivery"
	"github.com/githinji12/stream254-sub000/internal/model"
	"github.com/githinji12/stream254-sub000/internal/repo"
)

// devPasscode is the fixed code issued in dev mode (6-digit configs only).
const devPasscode = "123456"

const (
	reasonInvalidOrExpired = "invalid_or_expired"
	reasonAlreadyConsumed  = "already_consumed"
)

// PasscodeConfig carries the tunables of the passcode flow.
type PasscodeConfig struct {
	Length        int
	TTL           time.Duration
	MaxRequests   int           // per identifier per RequestWindow
	RequestWindow time.Duration
	// MaxVerifyAttempts bounds attempts per origin IP per VerifyWindow and
	// doubles as the consecutive-failure threshold that locks an account.
	MaxVerifyAttempts int
	VerifyWindow      time.Duration
	DevMode           bool
}

// PasscodeManager generates, persists, and verifies short-lived numeric
// passcodes. Raw codes are never stored; only a salted digest is.
type PasscodeManager struct {
	passcodes repo.PasscodeRepo
	attempts  repo.AttemptRepo
	accounts  repo.AccountRepo
	lockout   *LockoutGuard
	sender    delivery.Sender
	sink      audit.Sink
	salt      string
	cfg       PasscodeConfig

	requestLimiter *RateLimiter
	verifyLimiter  *RateLimiter

	log *zap.Logger
}

// NewPasscodeManager creates a passcode manager. The rate limiters count the
// manager's own ledger rows: passcode_requests for issuance, passcode_attempts
// for verification.
func NewPasscodeManager(
	passcodes repo.PasscodeRepo,
	attempts repo.AttemptRepo,
	accounts repo.AccountRepo,
	lockout *LockoutGuard,
	sender delivery.Sender,
	sink audit.Sink,
	salt string,
	cfg PasscodeConfig,
	log *zap.Logger,
) *PasscodeManager {
	m := &PasscodeManager{
		passcodes: passcodes,
		attempts:  attempts,
		accounts:  accounts,
		lockout:   lockout,
		sender:    sender,
		sink:      sink,
		salt:      salt,
		cfg:       cfg,
		log:       log.Named("passcode"),
	}
	m.requestLimiter = NewRateLimiter(func(ctx context.Context, key string, since time.Time) (int, error) {
		return passcodes.CountRequestsSince(ctx, strings.TrimPrefix(key, "otp_request:"), since)
	}, log)
	m.verifyLimiter = NewRateLimiter(func(ctx context.Context, key string, since time.Time) (int, error) {
		return attempts.CountByIPSince(ctx, strings.TrimPrefix(key, "otp_verify:"), since)
	}, log)
	return m
}

// Request issues a passcode for the identifier and dispatches it. The caller
// always sees success whether or not the identifier belongs to an account;
// only throttling is visible, so legitimate users know to wait.
func (m *PasscodeManager) Request(ctx context.Context, identifier string, purpose model.Purpose, origin model.Origin) error {
	if !purpose.Valid() {
		return ErrInvalidPurpose
	}

	res := m.requestLimiter.Check(ctx, "otp_request:"+identifier, m.cfg.MaxRequests, m.cfg.RequestWindow)
	if !res.Allowed {
		m.sink.Log(ctx, audit.EventRateLimited, identifier, origin, map[string]any{
			"purpose": string(purpose),
		})
		return fmt.Errorf("%w (about %s)", ErrRateLimited, waitHint(res.ResetAt))
	}

	code, err := m.newCode()
	if err != nil {
		return err
	}

	ip, ua := originPtrs(origin)
	expiresAt := time.Now().Add(m.cfg.TTL)
	if _, err := m.passcodes.Create(ctx, identifier, hashPasscodeHex(identifier, code, m.salt), purpose, expiresAt, ip, ua); err != nil {
		return fmt.Errorf("persist passcode: %w", err)
	}

	// Delivery runs after persistence. A failure is logged, not propagated:
	// the code exists and the caller can request a resend.
	if err := m.sender.SendVerificationCode(ctx, identifier, code, purpose, m.cfg.TTL); err != nil {
		m.log.Error("passcode delivery failed",
			zap.String("identifier", maskIdentifier(identifier)),
			zap.Error(err),
		)
	}

	m.sink.Log(ctx, audit.EventPasscodeRequested, identifier, origin, map[string]any{
		"purpose": string(purpose),
	})
	return nil
}

// Verify checks a submitted code against the newest active passcode request
// for the identifier. On success the matched request is consumed exactly once
// and the account's failure counter resets; the purpose of the matched row is
// returned so the caller can act on it.
func (m *PasscodeManager) Verify(ctx context.Context, identifier, code string, origin model.Origin) (model.Account, model.Purpose, error) {
	// Keyed by origin IP, not identifier, to slow enumeration across many
	// target accounts from one source.
	res := m.verifyLimiter.Check(ctx, "otp_verify:"+origin.IP, m.cfg.MaxVerifyAttempts, m.cfg.VerifyWindow)
	if !res.Allowed {
		m.sink.Log(ctx, audit.EventVerifyRateLimited, identifier, origin, nil)
		return model.Account{}, "", ErrRateLimited
	}

	digest := hashPasscodeHex(identifier, code, m.salt)
	req, err := m.passcodes.FindActiveByDigest(ctx, identifier, digest)
	if err != nil {
		// Only a genuine miss counts against the caller; a storage failure
		// must not feed the lockout bookkeeping or masquerade as a bad code.
		if !errors.Is(err, repo.ErrNotFound) {
			return model.Account{}, "", fmt.Errorf("find passcode: %w", err)
		}
		m.recordFailure(ctx, identifier, origin, reasonInvalidOrExpired)
		return model.Account{}, "", ErrInvalidOrExpiredCode
	}

	// First successful login creates the account.
	account, err := m.accounts.GetOrCreateByEmail(ctx, identifier)
	if err != nil {
		return model.Account{}, "", fmt.Errorf("load account: %w", err)
	}
	if account.Locked(time.Now()) {
		return model.Account{}, "", ErrAccountLocked
	}

	// Conditional update: of two concurrent verifications with the correct
	// code, exactly one consumes the row; the loser fails here.
	if err := m.passcodes.Consume(ctx, req.ID); err != nil {
		if errors.Is(err, repo.ErrAlreadyConsumed) {
			m.recordFailure(ctx, identifier, origin, reasonAlreadyConsumed)
			return model.Account{}, "", ErrInvalidOrExpiredCode
		}
		return model.Account{}, "", fmt.Errorf("consume passcode: %w", err)
	}

	if req.Purpose == model.PurposeEmailVerification {
		if err := m.accounts.SetEmailVerified(ctx, account.ID); err != nil {
			m.log.Warn("set email verified failed", zap.Error(err))
		} else {
			account.EmailVerified = true
		}
	}

	ip, _ := originPtrs(origin)
	if err := m.attempts.Record(ctx, identifier, ip, true, nil); err != nil {
		m.log.Warn("record attempt failed", zap.Error(err))
	}
	if err := m.accounts.ResetFailedAttempts(ctx, account.ID); err != nil {
		m.log.Warn("reset failed attempts failed", zap.Error(err))
	}
	account.FailedLoginAttempts = 0

	m.sink.Log(ctx, audit.EventPasscodeVerified, identifier, origin, map[string]any{
		"purpose":    string(req.Purpose),
		"account_id": account.ID.String(),
	})
	return account, req.Purpose, nil
}

// recordFailure books a failed attempt for lockout and rate-limit purposes.
// The caller returns a generic error either way; the reason lives only here.
func (m *PasscodeManager) recordFailure(ctx context.Context, identifier string, origin model.Origin, reason string) {
	ip, _ := originPtrs(origin)
	if err := m.attempts.Record(ctx, identifier, ip, false, &reason); err != nil {
		m.log.Warn("record attempt failed", zap.Error(err))
	}
	m.sink.Log(ctx, audit.EventVerificationFailed, identifier, origin, map[string]any{
		"reason": reason,
	})

	account, err := m.accounts.GetByEmail(ctx, identifier)
	if err != nil {
		// Unknown identifier means nothing to lock; anything else is a
		// storage problem and must not be mistaken for one.
		if !errors.Is(err, repo.ErrNotFound) {
			m.log.Warn("load account for lockout failed", zap.Error(err))
		}
		return
	}
	count, err := m.accounts.IncrementFailedAttempts(ctx, account.ID)
	if err != nil {
		m.log.Warn("increment failed attempts failed", zap.Error(err))
		return
	}
	if count >= m.cfg.MaxVerifyAttempts {
		if err := m.lockout.Lock(ctx, account.ID, identifier, origin); err != nil {
			m.log.Warn("lock account failed", zap.Error(err))
		}
	}
}

// DevCode returns the pinned passcode when dev mode is in effect. Dev mode
// only pins the code when the configured length matches it; otherwise codes
// are random as usual and there is nothing to echo.
func (m *PasscodeManager) DevCode() (string, bool) {
	if m.cfg.DevMode && m.cfg.Length == len(devPasscode) {
		return devPasscode, true
	}
	return "", false
}

func (m *PasscodeManager) newCode() (string, error) {
	if m.cfg.DevMode && m.cfg.Length == len(devPasscode) {
		return devPasscode, nil
	}
	return generatePasscode(m.cfg.Length)
}

// waitHint gives a coarse human-readable wait time without exposing exact
// window internals.
func waitHint(resetAt time.Time) string {
	d := time.Until(resetAt)
	if d < time.Minute {
		return "a minute"
	}
	return fmt.Sprintf("%d minutes", int(d.Round(time.Minute).Minutes()))
}

// maskIdentifier masks an identifier for logging (e.g. us******om).
func maskIdentifier(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
