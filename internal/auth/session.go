// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session is the server-side record of an issued bearer token.
// Only the SHA256 hash of the token is stored.
type Session struct {
	ID        ulid.ULID
	AccountID ulid.ULID
	TokenHash string
	ExpiresAt time.Time
	Active    bool
	CreatedAt time.Time
}

// NewSession creates a validated, active Session.
func NewSession(accountID ulid.ULID, tokenHash string, expiresAt, now time.Time) (*Session, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if !expiresAt.After(now) {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").
			With("expires_at", expiresAt).
			Errorf("expiry must be after creation")
	}

	return &Session{
		ID:        ulid.Make(),
		AccountID: accountID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		Active:    true,
		CreatedAt: now,
	}, nil
}

// IsExpiredAt returns true if the session is expired at t.
// A session is expired at its expiry instant.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// HashToken computes the SHA256 hex digest used to store bearer tokens and
// reset credentials at rest.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash retrieves a session by its token hash.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// Deactivate marks the session with the token hash inactive.
	// Returns false if no session has that hash.
	Deactivate(ctx context.Context, tokenHash string) (bool, error)

	// DeactivateByAccount marks every active session of an account inactive
	// and returns the number of sessions changed.
	DeactivateByAccount(ctx context.Context, accountID ulid.ULID) (int64, error)

	// DeleteExpiredBefore removes sessions that expired before cutoff and
	// returns the number of deleted records.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
