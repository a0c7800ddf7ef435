package audit

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/githinji12/stream254-sub000/internal/model"
)

// Event kinds emitted by the authentication core.
const (
	EventRateLimited        = "rate_limited"
	EventVerifyRateLimited  = "verify_rate_limited"
	EventPasscodeRequested  = "otp_requested"
	EventPasscodeVerified   = "otp_verified"
	EventVerificationFailed = "verification_failed"
	EventAccountLocked      = "account_locked"
	EventSessionRevoked     = "session_revoked"
)

// Sink receives structured security events. Implementations are
// fire-and-forget: they must never block or fail the calling operation.
type Sink interface {
	Log(ctx context.Context, event, identity string, origin model.Origin, fields map[string]any)
}

// ZapSink writes audit events through a zap logger.
type ZapSink struct {
	log *zap.Logger
}

// NewZapSink creates a sink that logs events at info level under the "audit" name.
func NewZapSink(log *zap.Logger) *ZapSink {
	return &ZapSink{log: log.Named("audit")}
}

func (s *ZapSink) Log(_ context.Context, event, identity string, origin model.Origin, fields map[string]any) {
	zf := make([]zap.Field, 0, len(fields)+3)
	zf = append(zf, zap.String("event", event))
	if identity != "" {
		zf = append(zf, zap.String("identity", identity))
	}
	if origin.IP != "" {
		zf = append(zf, zap.String("ip", origin.IP))
	}
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	s.log.Info("audit", zf...)
}

// Recorded is one captured audit event.
type Recorded struct {
	Event    string
	Identity string
	Origin   model.Origin
	Fields   map[string]any
}

// Memory is an in-memory sink for tests.
type Memory struct {
	mu     sync.Mutex
	events []Recorded
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Log(_ context.Context, event, identity string, origin model.Origin, fields map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, Recorded{Event: event, Identity: identity, Origin: origin, Fields: fields})
}

// Events returns a copy of everything recorded so far.
func (m *Memory) Events() []Recorded {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Recorded, len(m.events))
	copy(out, m.events)
	return out
}
