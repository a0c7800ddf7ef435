package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/githinji12/stream254-sub000/internal/model"
)

// SessionRepo defines the interface for session repository operations.
// Sessions are never deleted; revoked rows persist for audit.
type SessionRepo interface {
	Create(ctx context.Context, accountID uuid.UUID, tokenHashHex string, expiresAt time.Time, requestIP, userAgent *string) (uuid.UUID, error)
	// FindActiveByTokenHash returns the session if it exists, is not revoked, and not expired.
	FindActiveByTokenHash(ctx context.Context, tokenHashHex string) (model.Session, error)
	// TouchActivity stamps last_activity_at. Expiry is never extended.
	TouchActivity(ctx context.Context, id uuid.UUID) error
	// RevokeByTokenHash sets revoked_at iff still NULL. Returns true when a
	// row changed; revoking an unknown or already-revoked token returns false.
	RevokeByTokenHash(ctx context.Context, tokenHashHex string) (bool, error)
	// RevokeAllForAccount revokes every active session owned by the account.
	RevokeAllForAccount(ctx context.Context, accountID uuid.UUID) error
}

type sessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new SessionRepo instance
func NewSessionRepo(db *sql.DB) SessionRepo {
	return &sessionRepo{db: db}
}

// Create inserts a new session row
func (r *sessionRepo) Create(ctx context.Context, accountID uuid.UUID, tokenHashHex string, expiresAt time.Time, requestIP, userAgent *string) (uuid.UUID, error) {
	var idStr string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sessions (account_id, token_hash, expires_at, request_ip, user_agent)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, accountID, tokenHashHex, expiresAt, requestIP, userAgent).Scan(&idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert session: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse session ID: %w", err)
	}
	return id, nil
}

// FindActiveByTokenHash returns the session matching the digest if still active.
func (r *sessionRepo) FindActiveByTokenHash(ctx context.Context, tokenHashHex string) (model.Session, error) {
	var s model.Session
	var idStr, accountIDStr string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, token_hash, created_at, expires_at, revoked_at, last_activity_at, request_ip, user_agent
		FROM sessions
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > now()
	`, tokenHashHex).Scan(
		&idStr,
		&accountIDStr,
		&s.TokenHash,
		&s.CreatedAt,
		&s.ExpiresAt,
		&s.RevokedAt,
		&s.LastActivityAt,
		&s.RequestIP,
		&s.UserAgent,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Session{}, fmt.Errorf("active session: %w", ErrNotFound)
		}
		return model.Session{}, fmt.Errorf("find session: %w", err)
	}
	s.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.Session{}, fmt.Errorf("parse session ID: %w", err)
	}
	s.AccountID, err = uuid.Parse(accountIDStr)
	if err != nil {
		return model.Session{}, fmt.Errorf("parse account ID: %w", err)
	}
	return s, nil
}

// TouchActivity stamps last_activity_at = now()
func (r *sessionRepo) TouchActivity(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET last_activity_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("touch session activity: %w", err)
	}
	return nil
}

// RevokeByTokenHash sets revoked_at = now() iff still NULL.
func (r *sessionRepo) RevokeByTokenHash(ctx context.Context, tokenHashHex string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET revoked_at = now()
		WHERE token_hash = $1 AND revoked_at IS NULL
	`, tokenHashHex)
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// RevokeAllForAccount revokes all active sessions for an account (logout everywhere)
func (r *sessionRepo) RevokeAllForAccount(ctx context.Context, accountID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET revoked_at = now() WHERE account_id = $1 AND revoked_at IS NULL
	`, accountID)
	if err != nil {
		return fmt.Errorf("revoke all sessions for account: %w", err)
	}
	return nil
}
