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

// PasswordResetService runs the forgot-password and reset-password flows.
type PasswordResetService struct {
	accounts AccountRepository
	sessions *SessionStore
	hasher   PasswordHasher
	notifier Notifier
	clock    Clock
	logger   *slog.Logger
	ttl      time.Duration
	linkBase string
}

// ResetOption configures a PasswordResetService.
type ResetOption func(*PasswordResetService)

// WithResetLogger sets the logger for best-effort failures.
func WithResetLogger(logger *slog.Logger) ResetOption {
	return func(s *PasswordResetService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithResetClock sets the time source used for credential expiry.
func WithResetClock(clock Clock) ResetOption {
	return func(s *PasswordResetService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithResetTTL sets the reset credential lifetime.
func WithResetTTL(ttl time.Duration) ResetOption {
	return func(s *PasswordResetService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewPasswordResetService creates a PasswordResetService. linkBase is the
// page the reset mail links to; the credential is appended as ?token=.
func NewPasswordResetService(
	accounts AccountRepository,
	sessions *SessionStore,
	hasher PasswordHasher,
	notifier Notifier,
	linkBase string,
	opts ...ResetOption,
) (*PasswordResetService, error) {
	if accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if notifier == nil {
		return nil, oops.Errorf("notifier is required")
	}
	if linkBase == "" {
		return nil, oops.Code(CodeConfigInvalid).Errorf("reset link base URL is required")
	}

	s := &PasswordResetService{
		accounts: accounts,
		sessions: sessions,
		hasher:   hasher,
		notifier: notifier,
		clock:    SystemClock{},
		logger:   slog.Default(),
		ttl:      ResetTokenExpiry,
		linkBase: linkBase,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ForgotPassword issues a reset credential for the account with the given
// email and mails a link to it. The returned message is the same whether or
// not the account exists.
func (s *PasswordResetService) ForgotPassword(ctx context.Context, email string) (msg string, err error) {
	ctx, end := startOperation(ctx, "forgot_password")
	defer func() { end(err) }()

	normalized, err := NormalizeEmail(email)
	if err != nil {
		return MsgResetRequested, nil
	}

	account, err := s.accounts.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return MsgResetRequested, nil
		}
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}

	credential, hash, err := GenerateResetCredential()
	if err != nil {
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "generate reset credential").
			Wrap(err)
	}

	now := s.clock.Now()
	if err := s.accounts.SetResetCredential(ctx, account.ID, hash, now.Add(s.ttl), now); err != nil {
		return "", oops.Code("RESET_REQUEST_FAILED").
			With("operation", "store reset credential").
			With("account_id", account.ID.String()).
			Wrap(err)
	}

	link, err := buildLink(s.linkBase, credential)
	if err != nil {
		return "", err
	}
	body, err := renderMail(resetTemplate, account.DisplayName(), link, s.ttl)
	if err != nil {
		return "", err
	}

	sent, sendErr := s.notifier.Send(ctx, *account.Email, ResetSubject, body)
	if sendErr != nil || !sent {
		attrs := []any{
			"event", "reset_delivery_failed",
			"account_id", account.ID.String(),
			"operation", "send reset mail",
		}
		if sendErr != nil {
			attrs = append(attrs, "error", sendErr.Error())
		}
		s.logger.ErrorContext(ctx, "reset mail delivery failed", attrs...)
		return "", oops.Code(CodeResetDelivery).
			With("account_id", account.ID.String()).
			Errorf("failed to send password reset email")
	}

	return MsgResetRequested, nil
}

// ValidateCredential reports whether a reset credential is currently usable
// without consuming it. Returns the account it belongs to.
func (s *PasswordResetService) ValidateCredential(ctx context.Context, credential string) (id ulid.ULID, err error) {
	ctx, end := startOperation(ctx, "validate_reset_credential")
	defer func() { end(err) }()

	account, err := s.lookupCredential(ctx, credential)
	if err != nil {
		return ulid.ULID{}, err
	}
	return account.ID, nil
}

// ResetPassword consumes a reset credential and replaces the account's
// password. A credential succeeds at most once; afterwards every session of
// the account is ended.
func (s *PasswordResetService) ResetPassword(ctx context.Context, credential, newPassword string) (err error) {
	ctx, end := startOperation(ctx, "reset_password")
	defer func() { end(err) }()

	if credential == "" {
		return ErrTokenInvalid()
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	account, err := s.lookupCredential(ctx, credential)
	if err != nil {
		return err
	}

	// Hash before touching the row so no store lock is held across argon2.
	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	hash := HashToken(credential)
	now := s.clock.Now()
	consumed, err := s.accounts.ConsumeResetCredential(ctx, account.ID, hash, newHash, now)
	if err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "consume reset credential").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	if !consumed {
		// The credential may have lapsed while the new password was hashed.
		if resetCredentialExpired(account, now) {
			s.clearExpired(ctx, account.ID, hash, now)
			return ErrTokenExpired()
		}
		return ErrTokenInvalid()
	}

	if _, err := s.sessions.DeactivateAccount(ctx, account.ID); err != nil {
		s.logger.WarnContext(ctx, "best-effort session revocation failed",
			"event", "reset_session_revoke_failed",
			"account_id", account.ID.String(),
			"operation", "deactivate_sessions",
			"error", err.Error(),
		)
	}
	return nil
}

// lookupCredential finds the account holding credential. An expired
// credential is cleared before TOKEN_EXPIRED is returned.
func (s *PasswordResetService) lookupCredential(ctx context.Context, credential string) (*Account, error) {
	if credential == "" {
		return nil, ErrTokenInvalid()
	}

	hash := HashToken(credential)
	account, err := s.accounts.GetByResetTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrTokenInvalid()
		}
		return nil, oops.Code("RESET_VALIDATE_FAILED").
			With("operation", "get account by reset credential").
			Wrap(err)
	}
	if account.ResetTokenHash == nil || !MatchesResetHash(credential, *account.ResetTokenHash) {
		return nil, ErrTokenInvalid()
	}

	now := s.clock.Now()
	if resetCredentialExpired(account, now) {
		s.clearExpired(ctx, account.ID, hash, now)
		return nil, ErrTokenExpired()
	}
	return account, nil
}

// clearExpired drops an expired credential if the account still holds it.
func (s *PasswordResetService) clearExpired(ctx context.Context, id ulid.ULID, hash string, now time.Time) {
	if _, err := s.accounts.ClearResetCredential(ctx, id, hash, now); err != nil {
		s.logger.WarnContext(ctx, "best-effort reset credential clear failed",
			"event", "reset_clear_failed",
			"account_id", id.String(),
			"operation", "clear_reset_credential",
			"error", err.Error(),
		)
	}
}
