package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AttemptRepo records verification attempts. Rows serve two purposes:
// lockout bookkeeping per identifier and the per-IP verify rate-limit ledger.
type AttemptRepo interface {
	Record(ctx context.Context, identifier string, requestIP *string, success bool, reason *string) error
	CountByIPSince(ctx context.Context, ip string, since time.Time) (int, error)
}

type attemptRepo struct {
	db *sql.DB
}

// NewAttemptRepo creates a new AttemptRepo instance
func NewAttemptRepo(db *sql.DB) AttemptRepo {
	return &attemptRepo{db: db}
}

// Record inserts a verification attempt row
func (r *attemptRepo) Record(ctx context.Context, identifier string, requestIP *string, success bool, reason *string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO passcode_attempts (identifier, request_ip, success, reason)
		VALUES ($1, $2, $3, $4)
	`, identifier, requestIP, success, reason)
	if err != nil {
		return fmt.Errorf("insert passcode attempt: %w", err)
	}
	return nil
}

// CountByIPSince returns the number of attempts from the IP since the given time.
func (r *attemptRepo) CountByIPSince(ctx context.Context, ip string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM passcode_attempts
		WHERE request_ip = $1 AND created_at >= $2
	`, ip, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count passcode attempts: %w", err)
	}
	return count, nil
}
