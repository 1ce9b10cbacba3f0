// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/travelnudge/authcore/internal/auth"
)

func TestCheckLockout(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no failures leaves all attempts", func(t *testing.T) {
		state := auth.CheckLockout(0, nil, now)
		assert.False(t, state.IsLockedOut)
		assert.Equal(t, auth.LockoutThreshold, state.AttemptsLeft)
	})

	t.Run("failures count down attempts", func(t *testing.T) {
		state := auth.CheckLockout(5, nil, now)
		assert.False(t, state.IsLockedOut)
		assert.Equal(t, 2, state.AttemptsLeft)
	})

	t.Run("existing lockout reports remaining time", func(t *testing.T) {
		until := now.Add(10 * time.Minute)
		state := auth.CheckLockout(7, &until, now)
		assert.True(t, state.IsLockedOut)
		assert.Equal(t, 10*time.Minute, state.Remaining)
	})

	t.Run("expired lockout is not locked", func(t *testing.T) {
		until := now.Add(-time.Second)
		state := auth.CheckLockout(7, &until, now)
		assert.False(t, state.IsLockedOut)
		assert.Zero(t, state.AttemptsLeft)
	})
}

func TestIsLockedOut(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, auth.IsLockedOut(nil, now))

	past := now.Add(-time.Hour)
	assert.False(t, auth.IsLockedOut(&past, now))

	assert.False(t, auth.IsLockedOut(&now, now), "lockout ends at its instant")

	future := now.Add(time.Hour)
	assert.True(t, auth.IsLockedOut(&future, now))
}

func TestLockoutUntil(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	until := auth.LockoutUntil(now)

	assert.Equal(t, now.Add(auth.LockoutDuration), until)
	assert.True(t, auth.IsLockedOut(&until, now))
	assert.False(t, auth.IsLockedOut(&until, until))
}
