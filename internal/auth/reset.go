// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// Reset credential configuration.
const (
	ResetTokenBytes  = 32        // 32 bytes = 64 hex chars
	ResetTokenExpiry = time.Hour // default lifetime
)

// GenerateResetCredential creates a random single-use reset credential and
// the hash stored in its place. The plaintext goes to the account holder
// only.
func GenerateResetCredential() (credential, hash string, err error) {
	raw := make([]byte, ResetTokenBytes)
	if _, err = rand.Read(raw); err != nil {
		return "", "", oops.Code("RESET_TOKEN_GENERATE_FAILED").Wrap(err)
	}

	credential = hex.EncodeToString(raw)
	return credential, HashToken(credential), nil
}

// MatchesResetHash checks a plaintext credential against a stored hash in
// constant time.
func MatchesResetHash(credential, hash string) bool {
	if credential == "" || hash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(credential)), []byte(hash)) == 1
}

// resetCredentialExpired reports whether the account's credential is spent
// at now. A missing expiry counts as expired.
func resetCredentialExpired(account *Account, now time.Time) bool {
	if account.ResetExpiresAt == nil {
		return true
	}
	return !now.Before(*account.ResetExpiresAt)
}
