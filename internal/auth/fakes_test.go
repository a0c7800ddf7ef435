package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/githinji12/stream254-sub000/internal/model"
	"github.com/githinji12/stream254-sub000/internal/repo"
)

// In-memory repository fakes mirroring the Postgres semantics the pg
// implementations rely on (conditional consume, trailing-window counts).

type fakeAccounts struct {
	mu      sync.Mutex
	byEmail map[string]*model.Account
	failAll error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byEmail: make(map[string]*model.Account)}
}

func (f *fakeAccounts) GetByID(_ context.Context, id uuid.UUID) (model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return model.Account{}, f.failAll
	}
	for _, a := range f.byEmail {
		if a.ID == id {
			return *a, nil
		}
	}
	return model.Account{}, repo.ErrNotFound
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return model.Account{}, f.failAll
	}
	a, ok := f.byEmail[email]
	if !ok {
		return model.Account{}, repo.ErrNotFound
	}
	return *a, nil
}

func (f *fakeAccounts) GetOrCreateByEmail(_ context.Context, email string) (model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return model.Account{}, f.failAll
	}
	if a, ok := f.byEmail[email]; ok {
		return *a, nil
	}
	a := &model.Account{ID: uuid.New(), Email: email, CreatedAt: time.Now()}
	f.byEmail[email] = a
	return *a, nil
}

func (f *fakeAccounts) SetEmailVerified(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byEmail {
		if a.ID == id {
			a.EmailVerified = true
			return nil
		}
	}
	return repo.ErrNotFound
}

func (f *fakeAccounts) IncrementFailedAttempts(_ context.Context, id uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byEmail {
		if a.ID == id {
			a.FailedLoginAttempts++
			return a.FailedLoginAttempts, nil
		}
	}
	return 0, repo.ErrNotFound
}

func (f *fakeAccounts) ResetFailedAttempts(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byEmail {
		if a.ID == id {
			a.FailedLoginAttempts = 0
			now := time.Now()
			a.LastLoginAt = &now
			return nil
		}
	}
	return repo.ErrNotFound
}

func (f *fakeAccounts) Lock(_ context.Context, id uuid.UUID, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byEmail {
		if a.ID == id {
			u := until
			a.LockedUntil = &u
			a.FailedLoginAttempts = 0
			return nil
		}
	}
	return repo.ErrNotFound
}

type fakePasscodes struct {
	mu      sync.Mutex
	rows    []*model.PasscodeRequest
	findErr error
}

func newFakePasscodes() *fakePasscodes { return &fakePasscodes{} }

func (f *fakePasscodes) Create(_ context.Context, identifier, codeHashHex string, purpose model.Purpose, expiresAt time.Time, requestIP, userAgent *string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := &model.PasscodeRequest{
		ID:         uuid.New(),
		Identifier: identifier,
		CodeHash:   codeHashHex,
		Purpose:    purpose,
		CreatedAt:  time.Now(),
		ExpiresAt:  expiresAt,
		RequestIP:  requestIP,
		UserAgent:  userAgent,
	}
	f.rows = append(f.rows, row)
	return row.ID, nil
}

func (f *fakePasscodes) FindActiveByDigest(_ context.Context, identifier, codeHashHex string) (model.PasscodeRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return model.PasscodeRequest{}, f.findErr
	}
	now := time.Now()
	var newest *model.PasscodeRequest
	for _, r := range f.rows {
		if r.Identifier == identifier && r.CodeHash == codeHashHex && r.ConsumedAt == nil && r.ExpiresAt.After(now) {
			if newest == nil || r.CreatedAt.After(newest.CreatedAt) {
				newest = r
			}
		}
	}
	if newest == nil {
		return model.PasscodeRequest{}, repo.ErrNotFound
	}
	return *newest, nil
}

func (f *fakePasscodes) Consume(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID == id {
			if r.ConsumedAt != nil {
				return repo.ErrAlreadyConsumed
			}
			now := time.Now()
			r.ConsumedAt = &now
			return nil
		}
	}
	return repo.ErrAlreadyConsumed
}

func (f *fakePasscodes) CountRequestsSince(_ context.Context, identifier string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, r := range f.rows {
		if r.Identifier == identifier && !r.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

type fakeAttempts struct {
	mu       sync.Mutex
	rows     []model.PasscodeAttempt
	countErr error
}

func newFakeAttempts() *fakeAttempts { return &fakeAttempts{} }

func (f *fakeAttempts) Record(_ context.Context, identifier string, requestIP *string, success bool, reason *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, model.PasscodeAttempt{
		ID:         uuid.New(),
		Identifier: identifier,
		RequestIP:  requestIP,
		Success:    success,
		Reason:     reason,
		CreatedAt:  time.Now(),
	})
	return nil
}

func (f *fakeAttempts) CountByIPSince(_ context.Context, ip string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	count := 0
	for _, r := range f.rows {
		if r.RequestIP != nil && *r.RequestIP == ip && !r.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

type fakeSessions struct {
	mu      sync.Mutex
	byHash  map[string]*model.Session
	findErr error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byHash: make(map[string]*model.Session)}
}

func (f *fakeSessions) Create(_ context.Context, accountID uuid.UUID, tokenHashHex string, expiresAt time.Time, requestIP, userAgent *string) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &model.Session{
		ID:             uuid.New(),
		AccountID:      accountID,
		TokenHash:      tokenHashHex,
		CreatedAt:      time.Now(),
		ExpiresAt:      expiresAt,
		LastActivityAt: time.Now(),
		RequestIP:      requestIP,
		UserAgent:      userAgent,
	}
	f.byHash[tokenHashHex] = s
	return s.ID, nil
}

func (f *fakeSessions) FindActiveByTokenHash(_ context.Context, tokenHashHex string) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return model.Session{}, f.findErr
	}
	s, ok := f.byHash[tokenHashHex]
	if !ok || s.RevokedAt != nil || !s.ExpiresAt.After(time.Now()) {
		return model.Session{}, repo.ErrNotFound
	}
	return *s, nil
}

func (f *fakeSessions) TouchActivity(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.byHash {
		if s.ID == id {
			s.LastActivityAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("session not found")
}

func (f *fakeSessions) RevokeByTokenHash(_ context.Context, tokenHashHex string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byHash[tokenHashHex]
	if !ok || s.RevokedAt != nil {
		return false, nil
	}
	now := time.Now()
	s.RevokedAt = &now
	return true, nil
}

func (f *fakeSessions) RevokeAllForAccount(_ context.Context, accountID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for _, s := range f.byHash {
		if s.AccountID == accountID && s.RevokedAt == nil {
			t := now
			s.RevokedAt = &t
		}
	}
	return nil
}

type sentCode struct {
	to      string
	code    string
	purpose model.Purpose
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (f *fakeSender) SendVerificationCode(_ context.Context, to, code string, purpose model.Purpose, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentCode{to: to, code: code, purpose: purpose})
	return nil
}

func (f *fakeSender) last() (sentCode, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentCode{}, false
	}
	return f.sent[len(f.sent)-1], true
}
