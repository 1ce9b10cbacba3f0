// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"time"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned by repositories when a unique constraint rejects a write.
var ErrDuplicate = errors.New("duplicate")

// Error codes surfaced to callers of the authentication core.
const (
	CodeValidation          = "AUTH_VALIDATION"
	CodeInvalidInput        = "AUTH_INVALID_INPUT"
	CodeDuplicateIdentity   = "AUTH_DUPLICATE_IDENTITY"
	CodeInvalidCredentials  = "AUTH_INVALID_CREDENTIALS"
	CodeUnauthorized        = "AUTH_UNAUTHORIZED"
	CodeAccountDeactivated  = "AUTH_ACCOUNT_DEACTIVATED"
	CodeAccountLocked       = "AUTH_ACCOUNT_LOCKED"
	CodeProviderUnsupported = "AUTH_PROVIDER_UNSUPPORTED"
	CodeTokenInvalid        = "TOKEN_INVALID"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeResetDelivery       = "RESET_DELIVERY_FAILED"
	CodeVerifyDelivery      = "VERIFY_DELIVERY_FAILED"
	CodeConfigInvalid       = "CONFIG_INVALID"
)

// Messages shared between the flows. Login failures and the forgot-password
// response must not vary with account existence.
const (
	MsgInvalidCredentials = "invalid credentials"
	MsgUnauthorized       = "invalid or expired session"
	MsgResetRequested     = "If an account exists for that email, a password reset link has been sent."
)

// ErrValidation creates an error for malformed caller input.
func ErrValidation(field, format string, args ...any) error {
	return oops.Code(CodeValidation).
		With("field", field).
		Errorf(format, args...)
}

// ErrDuplicateIdentity creates an error for an email or phone already in use.
func ErrDuplicateIdentity(field string) error {
	return oops.Code(CodeDuplicateIdentity).
		With("field", field).
		Errorf("an account already exists with this email or phone")
}

// ErrInvalidCredentials creates the single error returned for every failed login.
func ErrInvalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf(MsgInvalidCredentials)
}

// ErrUnauthorized creates the error returned when a bearer token is not authorized.
func ErrUnauthorized() error {
	return oops.Code(CodeUnauthorized).Errorf(MsgUnauthorized)
}

// ErrAccountDeactivated creates an error for a login against a deactivated account.
func ErrAccountDeactivated() error {
	return oops.Code(CodeAccountDeactivated).Errorf("account is deactivated")
}

// ErrAccountLocked creates an error for a login against a locked-out account.
func ErrAccountLocked(until time.Time) error {
	return oops.Code(CodeAccountLocked).
		With("locked_until", until).
		Errorf("account is temporarily locked")
}

// ErrProviderUnsupported creates an error for an unregistered identity provider.
func ErrProviderUnsupported(provider string) error {
	return oops.Code(CodeProviderUnsupported).
		With("provider", provider).
		Errorf("unsupported identity provider")
}

// ErrTokenInvalid creates an error for a malformed, forged, superseded or consumed token.
func ErrTokenInvalid() error {
	return oops.Code(CodeTokenInvalid).Errorf("invalid or expired token")
}

// ErrTokenExpired creates an error for a token presented at or after its expiry.
func ErrTokenExpired() error {
	return oops.Code(CodeTokenExpired).Errorf("invalid or expired token")
}

// HasCode reports whether err is an oops error carrying code.
func HasCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}
	return oopsErr.Code() == code
}
