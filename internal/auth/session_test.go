// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelnudge/authcore/internal/auth"
	"github.com/travelnudge/authcore/pkg/errutil"
)

func TestHashToken(t *testing.T) {
	t.Run("produces consistent hash", func(t *testing.T) {
		assert.Equal(t, auth.HashToken("token"), auth.HashToken("token"))
	})

	t.Run("produces different hashes for different tokens", func(t *testing.T) {
		assert.NotEqual(t, auth.HashToken("token1"), auth.HashToken("token2"))
	})

	t.Run("hash is SHA256 hex-encoded", func(t *testing.T) {
		assert.Len(t, auth.HashToken("token"), 64)
	})
}

func TestNewSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	accountID := ulid.Make()

	t.Run("creates active session", func(t *testing.T) {
		session, err := auth.NewSession(accountID, "hash", now.Add(time.Hour), now)
		require.NoError(t, err)
		assert.Equal(t, accountID, session.AccountID)
		assert.True(t, session.Active)
		assert.Equal(t, now, session.CreatedAt)
		assert.NotEqual(t, ulid.ULID{}, session.ID)
	})

	t.Run("rejects zero account", func(t *testing.T) {
		_, err := auth.NewSession(ulid.ULID{}, "hash", now.Add(time.Hour), now)
		errutil.AssertErrorCode(t, err, "SESSION_INVALID_ACCOUNT")
	})

	t.Run("rejects empty hash", func(t *testing.T) {
		_, err := auth.NewSession(accountID, "", now.Add(time.Hour), now)
		errutil.AssertErrorCode(t, err, "SESSION_INVALID_HASH")
	})

	t.Run("rejects expiry not after creation", func(t *testing.T) {
		_, err := auth.NewSession(accountID, "hash", now, now)
		errutil.AssertErrorCode(t, err, "SESSION_INVALID_EXPIRY")
	})
}

func TestSession_IsExpiredAt(t *testing.T) {
	expires := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session := &auth.Session{ExpiresAt: expires}

	assert.False(t, session.IsExpiredAt(expires.Add(-time.Nanosecond)))
	assert.True(t, session.IsExpiredAt(expires), "expired at the exact instant")
	assert.True(t, session.IsExpiredAt(expires.Add(time.Second)))
}
