package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManager_createAndValidate(t *testing.T) {
	c := newTestCore(t, nil)
	ctx := context.Background()
	account, _ := c.accounts.GetOrCreateByEmail(ctx, "user@example.com")

	token, expiresAt, err := c.sessMgr.Create(ctx, account.ID, origin("10.0.0.1"))
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), expiresAt, time.Second, "expiry is fixed at issuance")

	// Only the digest is stored: the raw token appears nowhere in the store.
	_, rawStored := c.sessions.byHash[token]
	assert.False(t, rawStored)
	_, digestStored := c.sessions.byHash[HashSessionToken(token, testSecret)]
	assert.True(t, digestStored)

	got, session, err := c.sessMgr.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)
	assert.Equal(t, account.ID, session.AccountID)
}

func TestSessionManager_validateUnknownToken(t *testing.T) {
	c := newTestCore(t, nil)
	_, _, err := c.sessMgr.Validate(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSessionManager_validateTouchesActivityNotExpiry(t *testing.T) {
	c := newTestCore(t, nil)
	ctx := context.Background()
	account, _ := c.accounts.GetOrCreateByEmail(ctx, "user@example.com")

	token, _, err := c.sessMgr.Create(ctx, account.ID, origin("10.0.0.1"))
	require.NoError(t, err)

	row := c.sessions.byHash[HashSessionToken(token, testSecret)]
	before := row.LastActivityAt
	expiryBefore := row.ExpiresAt

	time.Sleep(10 * time.Millisecond)
	_, _, err = c.sessMgr.Validate(ctx, token)
	require.NoError(t, err)

	assert.True(t, row.LastActivityAt.After(before), "validation updates last activity")
	assert.Equal(t, expiryBefore, row.ExpiresAt, "validation never extends expiry")
}

func TestSessionManager_storageErrorIsNotInvalidSession(t *testing.T) {
	c := newTestCore(t, nil)
	ctx := context.Background()
	account, _ := c.accounts.GetOrCreateByEmail(ctx, "user@example.com")

	token, _, err := c.sessMgr.Create(ctx, account.ID, origin("10.0.0.1"))
	require.NoError(t, err)

	c.sessions.findErr = fmt.Errorf("connection refused")
	_, _, err = c.sessMgr.Validate(ctx, token)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionInvalid, "a storage failure must not look like a revoked or expired session")

	c.sessions.findErr = nil
	c.accounts.failAll = fmt.Errorf("connection refused")
	_, _, err = c.sessMgr.Validate(ctx, token)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionInvalid)
}

func TestSessionManager_expiredSessionInvalid(t *testing.T) {
	c := newTestCore(t, nil)
	ctx := context.Background()
	account, _ := c.accounts.GetOrCreateByEmail(ctx, "user@example.com")

	token, err := GenerateSessionToken()
	require.NoError(t, err)
	_, err = c.sessions.Create(ctx, account.ID, HashSessionToken(token, testSecret), time.Now().Add(-time.Minute), nil, nil)
	require.NoError(t, err)

	_, _, err = c.sessMgr.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrSessionInvalid, "expired and unknown tokens are indistinguishable")
}

func TestSessionManager_revoke(t *testing.T) {
	c := newTestCore(t, nil)
	ctx := context.Background()
	account, _ := c.accounts.GetOrCreateByEmail(ctx, "user@example.com")

	token, _, err := c.sessMgr.Create(ctx, account.ID, origin("10.0.0.1"))
	require.NoError(t, err)

	changed, err := c.sessMgr.Revoke(ctx, token, origin("10.0.0.1"))
	require.NoError(t, err)
	assert.True(t, changed)

	_, _, err = c.sessMgr.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	// Idempotent: nothing left to revoke.
	changed, err = c.sessMgr.Revoke(ctx, token, origin("10.0.0.1"))
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = c.sessMgr.Revoke(ctx, "never-issued", origin("10.0.0.1"))
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSessionManager_lockoutOverridesValidity(t *testing.T) {
	c := newTestCore(t, nil)
	ctx := context.Background()
	account, _ := c.accounts.GetOrCreateByEmail(ctx, "user@example.com")

	token, _, err := c.sessMgr.Create(ctx, account.ID, origin("10.0.0.1"))
	require.NoError(t, err)

	require.NoError(t, c.accounts.Lock(ctx, account.ID, time.Now().Add(30*time.Minute)))

	_, _, err = c.sessMgr.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrAccountLocked, "a locked account invalidates an otherwise active session")

	// The session row itself was not revoked; once the lock elapses it works again.
	require.NoError(t, c.accounts.Lock(ctx, account.ID, time.Now().Add(-time.Minute)))
	_, _, err = c.sessMgr.Validate(ctx, token)
	assert.NoError(t, err)
}

func TestSessionManager_revokeAll(t *testing.T) {
	c := newTestCore(t, nil)
	ctx := context.Background()
	account, _ := c.accounts.GetOrCreateByEmail(ctx, "user@example.com")
	other, _ := c.accounts.GetOrCreateByEmail(ctx, "other@example.com")

	t1, _, err := c.sessMgr.Create(ctx, account.ID, origin("10.0.0.1"))
	require.NoError(t, err)
	t2, _, err := c.sessMgr.Create(ctx, account.ID, origin("10.0.0.2"))
	require.NoError(t, err)
	t3, _, err := c.sessMgr.Create(ctx, other.ID, origin("10.0.0.3"))
	require.NoError(t, err)

	require.NoError(t, c.sessMgr.RevokeAll(ctx, account.ID))

	_, _, err = c.sessMgr.Validate(ctx, t1)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	_, _, err = c.sessMgr.Validate(ctx, t2)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	_, _, err = c.sessMgr.Validate(ctx, t3)
	assert.NoError(t, err, "other accounts keep their sessions")
}

func TestSessionManager_rowsSurviveRevocation(t *testing.T) {
	c := newTestCore(t, nil)
	ctx := context.Background()
	account, _ := c.accounts.GetOrCreateByEmail(ctx, "user@example.com")

	token, _, err := c.sessMgr.Create(ctx, account.ID, origin("10.0.0.1"))
	require.NoError(t, err)
	_, err = c.sessMgr.Revoke(ctx, token, origin("10.0.0.1"))
	require.NoError(t, err)

	// Revoked sessions persist for audit; they are never deleted.
	row, ok := c.sessions.byHash[HashSessionToken(token, testSecret)]
	require.True(t, ok)
	assert.NotNil(t, row.RevokedAt)
}
