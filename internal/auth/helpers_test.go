// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/travelnudge/authcore/internal/auth"
)

// testSecret is exactly the minimum accepted signing secret length.
var testSecret = []byte("0123456789abcdef0123456789abcdef")

// testClock is a manually advanced clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTokenService(t *testing.T, clock auth.Clock) *auth.TokenService {
	t.Helper()
	svc, err := auth.NewTokenService(testSecret, auth.WithTokenClock(clock))
	require.NoError(t, err)
	return svc
}

func strPtr(s string) *string {
	return &s
}

// logEntry represents a parsed JSON log entry.
type logEntry struct {
	Level     string `json:"level"`
	Msg       string `json:"msg"`
	Event     string `json:"event"`
	Operation string `json:"operation"`
	Error     string `json:"error"`
	AccountID string `json:"account_id"`
}
