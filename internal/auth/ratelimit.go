package auth

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CountFunc counts qualifying ledger rows for a key since the given time.
// The limiter only counts; the rows it counts are written by the operation
// being limited (passcode requests, verification attempts), so no separate
// counter table exists.
type CountFunc func(ctx context.Context, key string, since time.Time) (int, error)

// RateResult is the outcome of a rate-limit check.
type RateResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RateLimiter is a sliding-window counter over the shared store, safe across
// any number of stateless service instances.
type RateLimiter struct {
	count CountFunc
	log   *zap.Logger
}

// NewRateLimiter creates a limiter backed by the given count function.
func NewRateLimiter(count CountFunc, log *zap.Logger) *RateLimiter {
	return &RateLimiter{count: count, log: log.Named("ratelimit")}
}

// Check counts prior events for key within [now-window, now].
// If the count query fails the limiter fails open: availability is
// prioritized over strict limiting, and the failure is logged so operators
// can see sustained storage errors bypassing the limit.
func (l *RateLimiter) Check(ctx context.Context, key string, max int, window time.Duration) RateResult {
	now := time.Now()
	n, err := l.count(ctx, key, now.Add(-window))
	if err != nil {
		l.log.Warn("count query failed, failing open",
			zap.String("key", key),
			zap.Error(err),
		)
		return RateResult{Allowed: true, Remaining: max, ResetAt: now.Add(window)}
	}

	remaining := max - n
	if remaining < 0 {
		remaining = 0
	}
	return RateResult{
		Allowed:   n < max,
		Remaining: remaining,
		ResetAt:   now.Add(window),
	}
}
