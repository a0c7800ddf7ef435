package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/githinji12/stream254-sub000/internal/model"
)

// AccountRepo defines the interface for account repository operations.
// The auth core mutates verification/lockout fields but does not own
// account creation beyond get-or-create on first login.
type AccountRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.Account, error)
	GetByEmail(ctx context.Context, email string) (model.Account, error)
	GetOrCreateByEmail(ctx context.Context, email string) (model.Account, error)
	SetEmailVerified(ctx context.Context, id uuid.UUID) error
	// IncrementFailedAttempts bumps the failure counter and returns the new value.
	IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (int, error)
	// ResetFailedAttempts zeroes the counter and stamps last_login_at.
	ResetFailedAttempts(ctx context.Context, id uuid.UUID) error
	// Lock sets locked_until and zeroes the failure counter.
	Lock(ctx context.Context, id uuid.UUID, until time.Time) error
}

type accountRepo struct {
	db *sql.DB
}

// NewAccountRepo creates a new AccountRepo instance
func NewAccountRepo(db *sql.DB) AccountRepo {
	return &accountRepo{db: db}
}

const accountColumns = `id, email, email_verified, failed_login_attempts, locked_until, last_login_at, created_at`

func scanAccount(row *sql.Row) (model.Account, error) {
	var a model.Account
	var idStr string
	err := row.Scan(
		&idStr,
		&a.Email,
		&a.EmailVerified,
		&a.FailedLoginAttempts,
		&a.LockedUntil,
		&a.LastLoginAt,
		&a.CreatedAt,
	)
	if err != nil {
		return model.Account{}, err
	}
	a.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.Account{}, fmt.Errorf("parse account ID: %w", err)
	}
	return a, nil
}

// GetByID retrieves an account by ID
func (r *accountRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+` FROM accounts WHERE id = $1
	`, id)
	a, err := scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Account{}, fmt.Errorf("account: %w", ErrNotFound)
		}
		return model.Account{}, fmt.Errorf("query account: %w", err)
	}
	return a, nil
}

// GetByEmail retrieves an account by email
func (r *accountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+` FROM accounts WHERE email = $1
	`, email)
	a, err := scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Account{}, fmt.Errorf("account: %w", ErrNotFound)
		}
		return model.Account{}, fmt.Errorf("query account: %w", err)
	}
	return a, nil
}

// GetOrCreateByEmail retrieves an account by email or creates one if it doesn't exist
func (r *accountRepo) GetOrCreateByEmail(ctx context.Context, email string) (model.Account, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (email) VALUES ($1)
		ON CONFLICT (email) DO NOTHING
	`, email)
	if err != nil {
		return model.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return r.GetByEmail(ctx, email)
}

// SetEmailVerified marks the account's email as verified
func (r *accountRepo) SetEmailVerified(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET email_verified = TRUE WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("set email verified: %w", err)
	}
	return nil
}

// IncrementFailedAttempts bumps failed_login_attempts and returns the new count
func (r *accountRepo) IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		UPDATE accounts
		SET failed_login_attempts = failed_login_attempts + 1
		WHERE id = $1
		RETURNING failed_login_attempts
	`, id).Scan(&count)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("account: %w", ErrNotFound)
		}
		return 0, fmt.Errorf("increment failed attempts: %w", err)
	}
	return count, nil
}

// ResetFailedAttempts zeroes the counter and records the login time
func (r *accountRepo) ResetFailedAttempts(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET failed_login_attempts = 0, last_login_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("reset failed attempts: %w", err)
	}
	return nil
}

// Lock sets locked_until and zeroes the failure counter
func (r *accountRepo) Lock(ctx context.Context, id uuid.UUID, until time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET locked_until = $2, failed_login_attempts = 0
		WHERE id = $1
	`, id, until)
	if err != nil {
		return fmt.Errorf("lock account: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("account: %w", ErrNotFound)
	}
	return nil
}
