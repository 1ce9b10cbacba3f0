// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/travelnudge/authcore/internal/auth"
)

// memStore is an in-memory AccountRepository and SessionRepository used to
// run whole flows without a database.
type memStore struct {
	mu       sync.Mutex
	accounts map[ulid.ULID]*auth.Account
	sessions map[string]*auth.Session
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[ulid.ULID]*auth.Account),
		sessions: make(map[string]*auth.Session),
	}
}

func copyAccount(a *auth.Account) *auth.Account {
	c := *a
	return &c
}

func (m *memStore) find(match func(*auth.Account) bool) (*auth.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if match(a) {
			return copyAccount(a), nil
		}
	}
	return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(auth.ErrNotFound)
}

func (m *memStore) update(id ulid.ULID, fn func(*auth.Account)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	fn(a)
	return nil
}

func eq(p *string, v string) bool { return p != nil && *p == v }

func (m *memStore) Create(_ context.Context, account *auth.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if (account.Email != nil && eq(a.Email, *account.Email)) || (account.Phone != nil && eq(a.Phone, *account.Phone)) {
			return oops.Code("ACCOUNT_DUPLICATE").Wrap(auth.ErrDuplicate)
		}
	}
	m.accounts[account.ID] = copyAccount(account)
	return nil
}

func (m *memStore) GetByID(_ context.Context, id ulid.ULID) (*auth.Account, error) {
	return m.find(func(a *auth.Account) bool { return a.ID == id })
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*auth.Account, error) {
	return m.find(func(a *auth.Account) bool { return eq(a.Email, email) })
}

func (m *memStore) GetByPhone(_ context.Context, phone string) (*auth.Account, error) {
	return m.find(func(a *auth.Account) bool { return eq(a.Phone, phone) })
}

func (m *memStore) UpdatePasswordHash(_ context.Context, id ulid.ULID, hash string, now time.Time) error {
	return m.update(id, func(a *auth.Account) { a.PasswordHash, a.UpdatedAt = hash, now })
}

func (m *memStore) ReplacePasswordHash(_ context.Context, id ulid.ULID, oldHash, newHash string, now time.Time) (bool, error) {
	swapped := false
	err := m.update(id, func(a *auth.Account) {
		if a.PasswordHash == oldHash {
			a.PasswordHash, a.UpdatedAt = newHash, now
			swapped = true
		}
	})
	return swapped, err
}

func (m *memStore) RecordLoginFailure(_ context.Context, id ulid.ULID, threshold int, lockUntil, now time.Time) (int, *time.Time, error) {
	var (
		failures    int
		lockedUntil *time.Time
	)
	err := m.update(id, func(a *auth.Account) {
		a.FailedAttempts++
		a.LockedUntil = nil
		if a.FailedAttempts >= threshold {
			until := lockUntil
			a.LockedUntil = &until
		}
		a.UpdatedAt = now
		failures, lockedUntil = a.FailedAttempts, a.LockedUntil
	})
	return failures, lockedUntil, err
}

func (m *memStore) ResetLoginFailures(_ context.Context, id ulid.ULID, now time.Time) error {
	return m.update(id, func(a *auth.Account) { a.FailedAttempts, a.LockedUntil, a.UpdatedAt = 0, nil, now })
}

func (m *memStore) SetActive(_ context.Context, id ulid.ULID, active bool, now time.Time) error {
	return m.update(id, func(a *auth.Account) { a.Active, a.UpdatedAt = active, now })
}

func (m *memStore) SetVerified(_ context.Context, id ulid.ULID, now time.Time) error {
	return m.update(id, func(a *auth.Account) { a.Verified, a.UpdatedAt = true, now })
}

func (m *memStore) SetResetCredential(_ context.Context, id ulid.ULID, hash string, expiresAt, now time.Time) error {
	return m.update(id, func(a *auth.Account) {
		a.ResetTokenHash, a.ResetExpiresAt, a.UpdatedAt = &hash, &expiresAt, now
	})
}

func (m *memStore) GetByResetTokenHash(_ context.Context, hash string) (*auth.Account, error) {
	return m.find(func(a *auth.Account) bool { return eq(a.ResetTokenHash, hash) })
}

func (m *memStore) ClearResetCredential(_ context.Context, id ulid.ULID, hash string, now time.Time) (bool, error) {
	cleared := false
	err := m.update(id, func(a *auth.Account) {
		if eq(a.ResetTokenHash, hash) {
			a.ResetTokenHash, a.ResetExpiresAt, a.UpdatedAt = nil, nil, now
			cleared = true
		}
	})
	return cleared, err
}

func (m *memStore) ConsumeResetCredential(_ context.Context, id ulid.ULID, hash, passwordHash string, now time.Time) (bool, error) {
	consumed := false
	err := m.update(id, func(a *auth.Account) {
		if eq(a.ResetTokenHash, hash) && a.ResetExpiresAt != nil && now.Before(*a.ResetExpiresAt) {
			a.PasswordHash, a.ResetTokenHash, a.ResetExpiresAt, a.UpdatedAt = passwordHash, nil, nil, now
			consumed = true
		}
	})
	return consumed, err
}

// memSessions adapts memStore to SessionRepository; the method sets overlap
// on Create.
type memSessions struct{ *memStore }

func (m memSessions) Create(_ context.Context, s *auth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.TokenHash]; ok {
		return oops.Code("SESSION_DUPLICATE").Wrap(auth.ErrDuplicate)
	}
	c := *s
	m.sessions[s.TokenHash] = &c
	return nil
}

func (m memSessions) GetByTokenHash(_ context.Context, hash string) (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[hash]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	c := *s
	return &c, nil
}

func (m memSessions) Deactivate(_ context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[hash]
	if !ok {
		return false, nil
	}
	s.Active = false
	return true, nil
}

func (m memSessions) DeactivateByAccount(_ context.Context, id ulid.ULID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.sessions {
		if s.AccountID == id && s.Active {
			s.Active = false
			n++
		}
	}
	return n, nil
}

func (m memSessions) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, s := range m.sessions {
		if s.ExpiresAt.Before(cutoff) {
			delete(m.sessions, k)
			n++
		}
	}
	return n, nil
}

// recordingNotifier keeps every message it is asked to send.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

type sentMail struct {
	To, Subject, Body string
}

func (n *recordingNotifier) Send(_ context.Context, to, subject, body string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{To: to, Subject: subject, Body: body})
	return true, nil
}

func (n *recordingNotifier) last() sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[len(n.sent)-1]
}
