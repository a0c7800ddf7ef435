package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/githinji12/stream254-sub000/internal/model"
)

// Full login scenario: request a code, fail once with a wrong code, succeed
// with the right one, and confirm the consumed code cannot be replayed.
func TestAuthService_loginFlow(t *testing.T) {
	c := newTestCore(t, nil)
	ctx := context.Background()
	c.accounts.GetOrCreateByEmail(ctx, "user@example.com")

	require.NoError(t, c.svc.RequestPasscode(ctx, "user@example.com", model.PurposeLogin, origin("10.0.0.1")))
	sent, ok := c.sender.last()
	require.True(t, ok)

	// Wrong code: generic error, failure counter increments.
	_, err := c.svc.VerifyPasscode(ctx, "user@example.com", "999999", origin("10.0.0.1"))
	require.ErrorIs(t, err, ErrInvalidOrExpiredCode)
	account, _ := c.accounts.GetByEmail(ctx, "user@example.com")
	assert.Equal(t, 1, account.FailedLoginAttempts)

	// Correct code: session + access token, counter reset, code consumed.
	result, err := c.svc.VerifyPasscode(ctx, "user@example.com", sent.code, origin("10.0.0.1"))
	require.NoError(t, err)
	require.NotEmpty(t, result.SessionToken)
	require.NotEmpty(t, result.AccessToken)
	assert.Equal(t, "user@example.com", result.Account.Email)

	account, _ = c.accounts.GetByEmail(ctx, "user@example.com")
	assert.Equal(t, 0, account.FailedLoginAttempts)
	assert.NotNil(t, account.LastLoginAt)

	claims, err := c.jwt.VerifyToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.Account.ID, claims.AccountID)
	assert.Equal(t, "user@example.com", claims.Email)

	// Replay of the consumed code.
	_, err = c.svc.VerifyPasscode(ctx, "user@example.com", sent.code, origin("10.0.0.1"))
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)

	// The issued session validates.
	got, _, err := c.svc.ValidateSession(ctx, result.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, result.Account.ID, got.ID)
}

func TestAuthService_refresh(t *testing.T) {
	c := newTestCore(t, nil)
	ctx := context.Background()

	require.NoError(t, c.svc.RequestPasscode(ctx, "user@example.com", model.PurposeLogin, origin("10.0.0.1")))
	sent, _ := c.sender.last()
	result, err := c.svc.VerifyPasscode(ctx, "user@example.com", sent.code, origin("10.0.0.1"))
	require.NoError(t, err)

	accessToken, err := c.svc.Refresh(ctx, result.SessionToken)
	require.NoError(t, err)
	claims, err := c.jwt.VerifyToken(accessToken)
	require.NoError(t, err)
	assert.Equal(t, result.Account.ID, claims.AccountID)

	// Refresh never extends the session.
	row := c.sessions.byHash[HashSessionToken(result.SessionToken, testSecret)]
	assert.Equal(t, result.SessionExpiresAt.Unix(), row.ExpiresAt.Unix())

	_, err = c.svc.Refresh(ctx, "bogus-token")
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestAuthService_logout(t *testing.T) {
	c := newTestCore(t, nil)
	ctx := context.Background()

	require.NoError(t, c.svc.RequestPasscode(ctx, "user@example.com", model.PurposeLogin, origin("10.0.0.1")))
	sent, _ := c.sender.last()
	result, err := c.svc.VerifyPasscode(ctx, "user@example.com", sent.code, origin("10.0.0.1"))
	require.NoError(t, err)

	revoked, err := c.svc.Logout(ctx, result.SessionToken, origin("10.0.0.1"))
	require.NoError(t, err)
	assert.True(t, revoked)

	_, _, err = c.svc.ValidateSession(ctx, result.SessionToken)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	_, err = c.svc.Refresh(ctx, result.SessionToken)
	assert.ErrorIs(t, err, ErrSessionInvalid, "a revoked session cannot mint access tokens")
}
