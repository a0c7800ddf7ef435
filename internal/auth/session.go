package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/githinji12/stream254-sub000/internal/audit"
	"github.com/githinji12/stream254-sub000/internal/model"
	"github.com/githinji12/stream254-sub000/internal/repo"
)

// SessionManager issues, validates, and revokes opaque bearer-token sessions.
// Expiry is fixed at issuance; validation touches last-activity but never
// extends the lifetime.
type SessionManager struct {
	sessions repo.SessionRepo
	accounts repo.AccountRepo
	secret   string
	ttl      time.Duration
	sink     audit.Sink
	log      *zap.Logger
}

// NewSessionManager creates a session manager.
func NewSessionManager(sessions repo.SessionRepo, accounts repo.AccountRepo, secret string, ttl time.Duration, sink audit.Sink, log *zap.Logger) *SessionManager {
	return &SessionManager{
		sessions: sessions,
		accounts: accounts,
		secret:   secret,
		ttl:      ttl,
		sink:     sink,
		log:      log.Named("session"),
	}
}

// Create issues a new session for the account and returns the raw token and
// its fixed expiry. The raw token cannot be recovered later, only re-issued.
func (m *SessionManager) Create(ctx context.Context, accountID uuid.UUID, origin model.Origin) (string, time.Time, error) {
	token, err := GenerateSessionToken()
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := time.Now().Add(m.ttl)
	ip, ua := originPtrs(origin)
	if _, err := m.sessions.Create(ctx, accountID, HashSessionToken(token, m.secret), expiresAt, ip, ua); err != nil {
		return "", time.Time{}, fmt.Errorf("create session: %w", err)
	}

	m.log.Debug("session created", zap.String("account_id", accountID.String()))
	return token, expiresAt, nil
}

// Validate resolves a presented token to its account. Unknown, expired, and
// revoked tokens all come back as ErrSessionInvalid. A lockout on the owning
// account overrides session validity even though the row is still active.
func (m *SessionManager) Validate(ctx context.Context, token string) (model.Account, model.Session, error) {
	session, err := m.sessions.FindActiveByTokenHash(ctx, HashSessionToken(token, m.secret))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Account{}, model.Session{}, ErrSessionInvalid
		}
		return model.Account{}, model.Session{}, fmt.Errorf("find session: %w", err)
	}

	account, err := m.accounts.GetByID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Account{}, model.Session{}, ErrSessionInvalid
		}
		return model.Account{}, model.Session{}, fmt.Errorf("load account: %w", err)
	}
	if account.Locked(time.Now()) {
		return model.Account{}, model.Session{}, ErrAccountLocked
	}

	if err := m.sessions.TouchActivity(ctx, session.ID); err != nil {
		// Activity tracking is best effort; the session stays valid.
		m.log.Warn("touch session activity failed", zap.Error(err))
	}

	return account, session, nil
}

// Revoke marks the session for the token revoked. Idempotent: revoking an
// already-revoked or unknown token is not an error and returns false to
// indicate nothing changed.
func (m *SessionManager) Revoke(ctx context.Context, token string, origin model.Origin) (bool, error) {
	changed, err := m.sessions.RevokeByTokenHash(ctx, HashSessionToken(token, m.secret))
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	if changed {
		m.sink.Log(ctx, audit.EventSessionRevoked, "", origin, nil)
	}
	return changed, nil
}

// RevokeAll revokes every active session for the account (logout everywhere).
func (m *SessionManager) RevokeAll(ctx context.Context, accountID uuid.UUID) error {
	if err := m.sessions.RevokeAllForAccount(ctx, accountID); err != nil {
		return fmt.Errorf("revoke all sessions: %w", err)
	}
	return nil
}

func originPtrs(origin model.Origin) (ip, ua *string) {
	if origin.IP != "" {
		ip = &origin.IP
	}
	if origin.UserAgent != "" {
		ua = &origin.UserAgent
	}
	return ip, ua
}
