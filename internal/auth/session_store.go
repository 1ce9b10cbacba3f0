// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionStore records issued tokens and answers whether a bearer token is
// currently authorized.
type SessionStore struct {
	sessions SessionRepository
	tokens   *TokenService
	clock    Clock
	logger   *slog.Logger
}

// NewSessionStore creates a SessionStore.
func NewSessionStore(sessions SessionRepository, tokens *TokenService, clock Clock, logger *slog.Logger) (*SessionStore, error) {
	if sessions == nil {
		return nil, oops.Errorf("session repository is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token service is required")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{sessions: sessions, tokens: tokens, clock: clock, logger: logger}, nil
}

// Create records an active session for token. The token format is not
// checked here; the caller obtained it from the TokenService.
func (s *SessionStore) Create(ctx context.Context, accountID ulid.ULID, token string, expiresAt time.Time) (*Session, error) {
	session, err := NewSession(accountID, HashToken(token), expiresAt, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return session, nil
}

// FindByToken returns the session recorded for token.
func (s *SessionStore) FindByToken(ctx context.Context, token string) (*Session, error) {
	return s.sessions.GetByTokenHash(ctx, HashToken(token))
}

// Deactivate marks the session for token inactive. Unknown tokens return false.
func (s *SessionStore) Deactivate(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	return s.sessions.Deactivate(ctx, HashToken(token))
}

// DeactivateAccount ends every active session of an account.
func (s *SessionStore) DeactivateAccount(ctx context.Context, accountID ulid.ULID) (int64, error) {
	return s.sessions.DeactivateByAccount(ctx, accountID)
}

// Prune deletes sessions that expired more than olderThan ago.
func (s *SessionStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.clock.Now().Add(-olderThan)
	n, err := s.sessions.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return 0, oops.Code("SESSION_PRUNE_FAILED").
			With("cutoff", cutoff).
			Wrap(err)
	}
	return n, nil
}

// Authorize returns the session for token only if the token validates as a
// session token, a session exists for it, the session is active and the
// session has not expired. Every failure yields the same Unauthorized error.
func (s *SessionStore) Authorize(ctx context.Context, token string) (*Session, error) {
	claims, err := s.tokens.ValidateFor(token, PurposeSession)
	if err != nil {
		s.deny(ctx, "token rejected", err)
		return nil, ErrUnauthorized()
	}

	session, err := s.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.deny(ctx, "no session for token", nil)
			return nil, ErrUnauthorized()
		}
		return nil, oops.Code("SESSION_AUTHORIZE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	switch {
	case !session.Active:
		s.deny(ctx, "session inactive", nil)
		return nil, ErrUnauthorized()
	case session.IsExpiredAt(s.clock.Now()):
		s.deny(ctx, "session expired", nil)
		return nil, ErrUnauthorized()
	case session.AccountID != claims.Subject:
		s.deny(ctx, "session subject mismatch", nil)
		return nil, ErrUnauthorized()
	}
	return session, nil
}

func (s *SessionStore) deny(ctx context.Context, reason string, err error) {
	attrs := []any{"reason", reason}
	if err != nil {
		attrs = append(attrs, "error", err.Error())
	}
	s.logger.DebugContext(ctx, "session authorization denied", attrs...)
}
