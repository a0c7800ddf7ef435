package delivery

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/githinji12/stream254-sub000/internal/model"
)

// Sender delivers a raw passcode to an identifier. Delivery runs after the
// passcode is persisted; a failure is logged by the caller, never propagated
// to the requester.
type Sender interface {
	SendVerificationCode(ctx context.Context, to, code string, purpose model.Purpose, expiry time.Duration) error
}

// LogSender logs instead of delivering. Used in dev mode and as the fallback
// when no SMTP host is configured. The code itself is only written at debug level.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log.Named("delivery")}
}

func (s *LogSender) SendVerificationCode(_ context.Context, to, code string, purpose model.Purpose, expiry time.Duration) error {
	s.log.Info("passcode delivery (log only)",
		zap.String("to", to),
		zap.String("purpose", string(purpose)),
		zap.Duration("expiry", expiry),
	)
	s.log.Debug("passcode value", zap.String("code", code))
	return nil
}
