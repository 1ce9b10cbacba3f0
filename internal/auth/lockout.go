// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"time"
)

// Lockout configuration.
const (
	// LockoutDuration is the time an account is locked after too many failures.
	LockoutDuration = 15 * time.Minute

	// LockoutThreshold is the number of consecutive failures that triggers a lockout.
	LockoutThreshold = 7
)

// LockoutState describes the lockout standing of an account at a point in time.
type LockoutState struct {
	// IsLockedOut indicates the account is temporarily locked.
	IsLockedOut bool

	// Remaining is the time until the lockout expires.
	Remaining time.Duration

	// AttemptsLeft is the number of failures allowed before a lockout.
	AttemptsLeft int
}

// CheckLockout evaluates the lockout state from the failure count at now.
func CheckLockout(failures int, lockedUntil *time.Time, now time.Time) LockoutState {
	if IsLockedOut(lockedUntil, now) {
		return LockoutState{IsLockedOut: true, Remaining: lockedUntil.Sub(now)}
	}
	left := LockoutThreshold - failures
	if left < 0 {
		left = 0
	}
	return LockoutState{AttemptsLeft: left}
}

// IsLockedOut returns true if the lockout time is after now.
func IsLockedOut(lockedUntil *time.Time, now time.Time) bool {
	return lockedUntil != nil && lockedUntil.After(now)
}

// LockoutUntil returns when a lock triggered at now ends.
func LockoutUntil(now time.Time) time.Time {
	return now.Add(LockoutDuration)
}
