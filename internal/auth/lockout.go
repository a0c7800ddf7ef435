package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/githinji12/stream254-sub000/internal/audit"
	"github.com/githinji12/stream254-sub000/internal/model"
	"github.com/githinji12/stream254-sub000/internal/repo"
)

// LockoutGuard temporarily disables verification for an account after
// repeated failures. It owns no storage of its own: it writes the
// locked_until and failed_login_attempts fields on the account row.
type LockoutGuard struct {
	accounts repo.AccountRepo
	duration time.Duration
	sink     audit.Sink
	log      *zap.Logger
}

// NewLockoutGuard creates a guard that locks accounts for the given duration.
func NewLockoutGuard(accounts repo.AccountRepo, duration time.Duration, sink audit.Sink, log *zap.Logger) *LockoutGuard {
	return &LockoutGuard{
		accounts: accounts,
		duration: duration,
		sink:     sink,
		log:      log.Named("lockout"),
	}
}

// Lock sets locked_until = now + duration and zeroes the failure counter.
func (g *LockoutGuard) Lock(ctx context.Context, accountID uuid.UUID, identity string, origin model.Origin) error {
	until := time.Now().Add(g.duration)
	if err := g.accounts.Lock(ctx, accountID, until); err != nil {
		return fmt.Errorf("lock account: %w", err)
	}
	g.log.Warn("account locked",
		zap.String("account_id", accountID.String()),
		zap.Time("until", until),
	)
	g.sink.Log(ctx, audit.EventAccountLocked, identity, origin, map[string]any{
		"account_id":   accountID.String(),
		"locked_until": until,
	})
	return nil
}
