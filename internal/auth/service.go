package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/githinji12/stream254-sub000/internal/model"
)

// VerifyResult is what a successful passcode verification yields: the
// account, a revocable session token, and a short-lived access token.
type VerifyResult struct {
	Account          model.Account
	SessionToken     string
	SessionExpiresAt time.Time
	AccessToken      string
}

// AuthService orchestrates the passcode and session flows. All state lives
// in the shared store; the service itself is safe to run in any number of
// instances.
type AuthService struct {
	passcodes *PasscodeManager
	sessions  *SessionManager
	jwt       *JWTService
	log       *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(passcodes *PasscodeManager, sessions *SessionManager, jwt *JWTService, log *zap.Logger) *AuthService {
	return &AuthService{
		passcodes: passcodes,
		sessions:  sessions,
		jwt:       jwt,
		log:       log.Named("auth"),
	}
}

// RequestPasscode issues and dispatches a passcode for the identifier.
func (s *AuthService) RequestPasscode(ctx context.Context, identifier string, purpose model.Purpose, origin model.Origin) error {
	return s.passcodes.Request(ctx, identifier, purpose, origin)
}

// VerifyPasscode verifies the code and, on success, opens a session and
// mints an access token.
func (s *AuthService) VerifyPasscode(ctx context.Context, identifier, code string, origin model.Origin) (*VerifyResult, error) {
	account, _, err := s.passcodes.Verify(ctx, identifier, code, origin)
	if err != nil {
		return nil, err
	}

	sessionToken, expiresAt, err := s.sessions.Create(ctx, account.ID, origin)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	accessToken, err := s.jwt.SignAccessToken(account.ID, account.Email)
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}

	return &VerifyResult{
		Account:          account,
		SessionToken:     sessionToken,
		SessionExpiresAt: expiresAt,
		AccessToken:      accessToken,
	}, nil
}

// DevCode exposes the pinned dev-mode passcode, when one is in effect, so
// the HTTP layer can echo it in responses.
func (s *AuthService) DevCode() (string, bool) {
	return s.passcodes.DevCode()
}

// ValidateSession resolves a session token to its account.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (model.Account, model.Session, error) {
	return s.sessions.Validate(ctx, token)
}

// Refresh validates the session token and mints a fresh access token.
// The session itself is never extended.
func (s *AuthService) Refresh(ctx context.Context, sessionToken string) (string, error) {
	account, _, err := s.sessions.Validate(ctx, sessionToken)
	if err != nil {
		return "", err
	}
	accessToken, err := s.jwt.SignAccessToken(account.ID, account.Email)
	if err != nil {
		return "", fmt.Errorf("mint access token: %w", err)
	}
	return accessToken, nil
}

// Logout revokes the session for the token. Returns whether a session was
// actually revoked.
func (s *AuthService) Logout(ctx context.Context, sessionToken string, origin model.Origin) (bool, error) {
	return s.sessions.Revoke(ctx, sessionToken, origin)
}

// LogoutAll revokes every active session for the account.
func (s *AuthService) LogoutAll(ctx context.Context, accountID uuid.UUID) error {
	return s.sessions.RevokeAll(ctx, accountID)
}
