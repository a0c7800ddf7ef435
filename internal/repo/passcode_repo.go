package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/githinji12/stream254-sub000/internal/model"
)

// PasscodeRepo defines the interface for passcode request repository operations
type PasscodeRepo interface {
	Create(ctx context.Context, identifier, codeHashHex string, purpose model.Purpose, expiresAt time.Time, requestIP, userAgent *string) (uuid.UUID, error)
	// FindActiveByDigest returns the most recent unconsumed, unexpired request
	// matching identifier + digest. The row's purpose decides what a
	// successful verification means.
	FindActiveByDigest(ctx context.Context, identifier, codeHashHex string) (model.PasscodeRequest, error)
	// Consume marks the request consumed. The update is conditional on
	// consumed_at still being NULL so that concurrent verifications of the
	// same row resolve to exactly one winner.
	Consume(ctx context.Context, id uuid.UUID) error
	// CountRequestsSince counts requests created for the identifier since the
	// given time. Rows double as the request rate-limit ledger.
	CountRequestsSince(ctx context.Context, identifier string, since time.Time) (int, error)
}

// ErrAlreadyConsumed is returned by Consume when another verification won the race.
var ErrAlreadyConsumed = fmt.Errorf("passcode request already consumed")

type passcodeRepo struct {
	db *sql.DB
}

// NewPasscodeRepo creates a new PasscodeRepo instance
func NewPasscodeRepo(db *sql.DB) PasscodeRepo {
	return &passcodeRepo{db: db}
}

// Create inserts a new passcode request
func (r *passcodeRepo) Create(ctx context.Context, identifier, codeHashHex string, purpose model.Purpose, expiresAt time.Time, requestIP, userAgent *string) (uuid.UUID, error) {
	var idStr string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO passcode_requests (identifier, code_hash, purpose, expires_at, request_ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, identifier, codeHashHex, string(purpose), expiresAt, requestIP, userAgent).Scan(&idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert passcode request: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse request ID: %w", err)
	}
	return id, nil
}

// FindActiveByDigest returns the newest matching unconsumed, unexpired request.
func (r *passcodeRepo) FindActiveByDigest(ctx context.Context, identifier, codeHashHex string) (model.PasscodeRequest, error) {
	query := `
		SELECT id, identifier, code_hash, purpose, created_at, expires_at, consumed_at, request_ip, user_agent
		FROM passcode_requests
		WHERE identifier = $1
		  AND code_hash = $2
		  AND consumed_at IS NULL
		  AND expires_at > now()
		ORDER BY created_at DESC
		LIMIT 1
	`
	var req model.PasscodeRequest
	var idStr, purposeStr string
	err := r.db.QueryRowContext(ctx, query, identifier, codeHashHex).Scan(
		&idStr,
		&req.Identifier,
		&req.CodeHash,
		&purposeStr,
		&req.CreatedAt,
		&req.ExpiresAt,
		&req.ConsumedAt,
		&req.RequestIP,
		&req.UserAgent,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.PasscodeRequest{}, fmt.Errorf("active passcode request: %w", ErrNotFound)
		}
		return model.PasscodeRequest{}, fmt.Errorf("query passcode request: %w", err)
	}
	req.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.PasscodeRequest{}, fmt.Errorf("parse request ID: %w", err)
	}
	req.Purpose = model.Purpose(purposeStr)
	return req, nil
}

// Consume sets consumed_at = now() iff it is still NULL.
func (r *passcodeRepo) Consume(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE passcode_requests
		SET consumed_at = now()
		WHERE id = $1 AND consumed_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("consume passcode request: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrAlreadyConsumed
	}
	return nil
}

// CountRequestsSince returns the number of requests created for the identifier since the given time.
func (r *passcodeRepo) CountRequestsSince(ctx context.Context, identifier string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM passcode_requests
		WHERE identifier = $1 AND created_at >= $2
	`, identifier, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count passcode requests: %w", err)
	}
	return count, nil
}
