// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// DefaultVerifyTTL is the lifetime of an email verification token.
const DefaultVerifyTTL = 24 * time.Hour

// VerificationService confirms that an account holder controls their email.
type VerificationService struct {
	directory *AccountDirectory
	sessions  *SessionStore
	tokens    *TokenService
	notifier  Notifier
	logger    *slog.Logger
	ttl       time.Duration
	linkBase  string
}

// VerificationOption configures a VerificationService.
type VerificationOption func(*VerificationService)

// WithVerificationLogger sets the logger.
func WithVerificationLogger(logger *slog.Logger) VerificationOption {
	return func(s *VerificationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithVerificationTTL sets the verification token lifetime.
func WithVerificationTTL(ttl time.Duration) VerificationOption {
	return func(s *VerificationService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewVerificationService creates a VerificationService.
func NewVerificationService(
	directory *AccountDirectory,
	sessions *SessionStore,
	tokens *TokenService,
	notifier Notifier,
	linkBase string,
	opts ...VerificationOption,
) (*VerificationService, error) {
	if directory == nil {
		return nil, oops.Errorf("account directory is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session store is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token service is required")
	}
	if notifier == nil {
		return nil, oops.Errorf("notifier is required")
	}
	if linkBase == "" {
		return nil, oops.Code(CodeConfigInvalid).Errorf("verification link base URL is required")
	}

	s := &VerificationService{
		directory: directory,
		sessions:  sessions,
		tokens:    tokens,
		notifier:  notifier,
		logger:    slog.Default(),
		ttl:       DefaultVerifyTTL,
		linkBase:  linkBase,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RequestVerification mails a verification link to the account behind the
// session token. Returns false without sending when the account is already
// verified or has no email.
func (s *VerificationService) RequestVerification(ctx context.Context, sessionToken string) (sent bool, err error) {
	ctx, end := startOperation(ctx, "request_verification")
	defer func() { end(err) }()

	session, err := s.sessions.Authorize(ctx, sessionToken)
	if err != nil {
		return false, err
	}
	account, err := s.directory.FindByID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, ErrUnauthorized()
		}
		return false, oops.Code("VERIFY_REQUEST_FAILED").
			With("operation", "get account by id").
			Wrap(err)
	}
	if account.Verified || account.Email == nil {
		return false, nil
	}

	token, _, err := s.tokens.Issue(account.ID, PurposeEmailVerification, s.ttl)
	if err != nil {
		return false, oops.Code("VERIFY_REQUEST_FAILED").
			With("operation", "issue verification token").
			Wrap(err)
	}
	link, err := buildLink(s.linkBase, token)
	if err != nil {
		return false, err
	}
	body, err := renderMail(verificationTemplate, account.DisplayName(), link, s.ttl)
	if err != nil {
		return false, err
	}

	ok, sendErr := s.notifier.Send(ctx, *account.Email, VerificationSubject, body)
	if sendErr != nil || !ok {
		attrs := []any{
			"event", "verify_delivery_failed",
			"account_id", account.ID.String(),
			"operation", "send verification mail",
		}
		if sendErr != nil {
			attrs = append(attrs, "error", sendErr.Error())
		}
		s.logger.ErrorContext(ctx, "verification mail delivery failed", attrs...)
		return false, oops.Code(CodeVerifyDelivery).
			With("account_id", account.ID.String()).
			Errorf("failed to send verification email")
	}
	return true, nil
}

// ConfirmVerification marks the account named by a verification token as
// verified. Confirming twice is harmless.
func (s *VerificationService) ConfirmVerification(ctx context.Context, token string) (err error) {
	ctx, end := startOperation(ctx, "confirm_verification")
	defer func() { end(err) }()

	claims, err := s.tokens.ValidateFor(token, PurposeEmailVerification)
	if err != nil {
		return err
	}

	if err := s.directory.MarkVerified(ctx, claims.Subject); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrTokenInvalid()
		}
		return oops.Code("VERIFY_CONFIRM_FAILED").
			With("operation", "mark verified").
			With("account_id", claims.Subject.String()).
			Wrap(err)
	}
	return nil
}
