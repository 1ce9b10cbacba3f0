// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
)

// Default token lifetimes.
const (
	DefaultSessionTTL  = 30 * time.Minute
	DefaultRememberTTL = 30 * 24 * time.Hour
	DefaultSignupTTL   = 30 * 24 * time.Hour
)

// TokenTypeBearer is the token_type reported with every issued token.
const TokenTypeBearer = "bearer"

// Lifetimes holds the session token lifetimes for each way of logging in.
type Lifetimes struct {
	Session  time.Duration
	Remember time.Duration
	Signup   time.Duration
}

// SignupRequest carries the fields of a new account.
type SignupRequest struct {
	FullName        string
	Email           *string
	Phone           *string
	Password        string
	ConfirmPassword string
}

// LoginRequest carries a password login. Email takes precedence over phone.
type LoginRequest struct {
	Email      *string
	Phone      *string
	Password   string
	RememberMe bool
}

// AuthResult is returned by every operation that starts a session.
type AuthResult struct {
	Token     string
	TokenType string
	ExpiresAt time.Time
	Account   AccountView
}

// Service provides authentication operations.
type Service struct {
	directory *AccountDirectory
	sessions  *SessionStore
	hasher    PasswordHasher
	tokens    *TokenService
	clock     Clock
	logger    *slog.Logger
	lifetimes Lifetimes
	verifiers map[string]ExternalIdentityVerifier
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for best-effort failures.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the time source for lockout bookkeeping.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLifetimes overrides token lifetimes. Zero fields keep their default.
func WithLifetimes(l Lifetimes) ServiceOption {
	return func(s *Service) {
		if l.Session > 0 {
			s.lifetimes.Session = l.Session
		}
		if l.Remember > 0 {
			s.lifetimes.Remember = l.Remember
		}
		if l.Signup > 0 {
			s.lifetimes.Signup = l.Signup
		}
	}
}

// WithVerifier registers an external identity provider for SocialLogin.
func WithVerifier(provider string, verifier ExternalIdentityVerifier) ServiceOption {
	return func(s *Service) {
		if provider != "" && verifier != nil {
			s.verifiers[strings.ToLower(provider)] = verifier
		}
	}
}

// NewAuthService creates a new Service.
func NewAuthService(
	directory *AccountDirectory,
	sessions *SessionStore,
	hasher PasswordHasher,
	tokens *TokenService,
	opts ...ServiceOption,
) (*Service, error) {
	if directory == nil {
		return nil, oops.Errorf("account directory is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token service is required")
	}

	s := &Service{
		directory: directory,
		sessions:  sessions,
		hasher:    hasher,
		tokens:    tokens,
		clock:     SystemClock{},
		logger:    slog.Default(),
		lifetimes: Lifetimes{
			Session:  DefaultSessionTTL,
			Remember: DefaultRememberTTL,
			Signup:   DefaultSignupTTL,
		},
		verifiers: make(map[string]ExternalIdentityVerifier),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// dummyPasswordHash is verified when no account matches so that the
// response time does not reveal whether the identity exists. It never
// matches any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Signup creates an account and starts a session for it.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (result *AuthResult, err error) {
	ctx, end := startOperation(ctx, "signup")
	defer func() { end(err) }()

	if err := ValidatePassword(req.Password); err != nil {
		return nil, err
	}
	if req.Password != req.ConfirmPassword {
		return nil, ErrValidation("confirm_password", "passwords do not match")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := s.directory.Create(ctx, req.FullName, req.Email, req.Phone, hash)
	if err != nil {
		return nil, err
	}

	return s.startSession(ctx, account, s.lifetimes.Signup)
}

// Login authenticates a password and starts a session.
// Unknown identities and wrong passwords produce the same error, and the
// password is always verified so both paths cost the same.
func (s *Service) Login(ctx context.Context, req LoginRequest) (result *AuthResult, err error) {
	ctx, end := startOperation(ctx, "login", attribute.Bool("auth.remember_me", req.RememberMe))
	defer func() { end(err) }()

	account, err := s.findForLogin(ctx, req)
	if err != nil {
		return nil, err
	}

	targetHash := dummyPasswordHash
	if account != nil {
		targetHash = account.PasswordHash
	}
	valid := s.hasher.Verify(req.Password, targetHash)

	now := s.clock.Now()
	if account == nil || !valid {
		if account != nil {
			s.recordFailure(ctx, account)
		}
		return nil, ErrInvalidCredentials()
	}

	// Status checks come after verification so they reveal nothing to a
	// caller without the password.
	if !account.Active {
		return nil, ErrAccountDeactivated()
	}
	if account.IsLockedAt(now) {
		return nil, ErrAccountLocked(*account.LockedUntil)
	}

	if account.FailedAttempts > 0 || account.LockedUntil != nil {
		if err := s.directory.ResetLoginFailures(ctx, account.ID); err != nil {
			s.warnBestEffort(ctx, "best-effort login state update failed",
				"login_state_update_failed", account.ID, "reset_login_failures", err)
		}
	}
	if s.hasher.NeedsUpgrade(account.PasswordHash) {
		s.upgradeHash(ctx, account, req.Password)
	}

	ttl := s.lifetimes.Session
	if req.RememberMe {
		ttl = s.lifetimes.Remember
	}
	return s.startSession(ctx, account, ttl)
}

// Logout ends the session for token. It always succeeds from the caller's
// point of view; store failures are logged.
func (s *Service) Logout(ctx context.Context, token string) {
	var err error
	ctx, end := startOperation(ctx, "logout")
	defer func() { end(err) }()

	var found bool
	found, err = s.sessions.Deactivate(ctx, token)
	if err != nil {
		s.logger.WarnContext(ctx, "best-effort logout failed",
			"event", "logout_failed",
			"operation", "deactivate_session",
			"error", err.Error(),
		)
		return
	}
	if !found {
		s.logger.DebugContext(ctx, "logout for unknown session")
	}
}

// CurrentAccount returns the account behind an authorized session token.
func (s *Service) CurrentAccount(ctx context.Context, token string) (account *Account, err error) {
	ctx, end := startOperation(ctx, "current_account")
	defer func() { end(err) }()

	session, err := s.sessions.Authorize(ctx, token)
	if err != nil {
		return nil, err
	}

	account, err = s.directory.FindByID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthorized()
		}
		return nil, oops.Code("AUTH_CURRENT_ACCOUNT_FAILED").
			With("operation", "get account by id").
			With("account_id", session.AccountID.String()).
			Wrap(err)
	}
	return account, nil
}

// SocialLogin signs in with a credential from a registered identity
// provider. The first login for an email creates the account. An existing
// account is only linked when the provider reports the email as verified.
func (s *Service) SocialLogin(ctx context.Context, provider, credential string) (result *AuthResult, err error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	ctx, end := startOperation(ctx, "social_login", attribute.String("auth.provider", provider))
	defer func() { end(err) }()

	verifier, ok := s.verifiers[provider]
	if !ok {
		return nil, ErrProviderUnsupported(provider)
	}

	identity, err := verifier.Verify(ctx, credential)
	if err != nil {
		s.logger.DebugContext(ctx, "external identity rejected",
			"provider", provider,
			"error", err.Error(),
		)
		return nil, oops.Code(CodeUnauthorized).
			With("provider", provider).
			Errorf("identity provider credential rejected")
	}

	account, err := s.directory.FindByEmail(ctx, identity.Email)
	switch {
	case errors.Is(err, ErrNotFound):
		account, err = s.createExternalAccount(ctx, identity)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, oops.Code("AUTH_SOCIAL_LOGIN_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	case !identity.EmailVerified:
		// The provider does not vouch for the address, so it proves nothing
		// about the existing account holder.
		s.logger.InfoContext(ctx, "unverified external email matches existing account",
			"event", "social_link_refused",
			"provider", provider,
			"account_id", account.ID.String(),
		)
		return nil, oops.Code(CodeUnauthorized).
			With("provider", provider).
			Errorf("identity provider credential rejected")
	case !account.Active:
		return nil, ErrAccountDeactivated()
	case !account.Verified:
		if err := s.directory.MarkVerified(ctx, account.ID); err != nil {
			s.logger.WarnContext(ctx, "best-effort verification mark failed",
				"event", "mark_verified_failed",
				"account_id", account.ID.String(),
				"operation", "mark_verified",
				"error", err.Error(),
			)
		} else {
			account.Verified = true
		}
	}

	return s.startSession(ctx, account, s.lifetimes.Remember)
}

func (s *Service) createExternalAccount(ctx context.Context, identity ExternalIdentity) (*Account, error) {
	hash, err := randomPasswordHash(s.hasher)
	if err != nil {
		return nil, oops.Code("AUTH_SOCIAL_LOGIN_FAILED").
			With("operation", "hash random password").
			Wrap(err)
	}

	name := identity.Name
	if strings.TrimSpace(name) == "" {
		name, _, _ = strings.Cut(identity.Email, "@")
	}
	email := identity.Email

	account, err := s.directory.Create(ctx, name, &email, nil, hash)
	if err != nil {
		return nil, err
	}
	if identity.EmailVerified {
		if err := s.directory.MarkVerified(ctx, account.ID); err != nil {
			return nil, oops.Code("AUTH_SOCIAL_LOGIN_FAILED").
				With("operation", "mark verified").
				With("account_id", account.ID.String()).
				Wrap(err)
		}
		account.Verified = true
	}
	return account, nil
}

func (s *Service) findForLogin(ctx context.Context, req LoginRequest) (*Account, error) {
	var (
		account *Account
		err     error
	)
	switch {
	case req.Email != nil && strings.TrimSpace(*req.Email) != "":
		account, err = s.directory.FindByEmail(ctx, *req.Email)
	case req.Phone != nil && strings.TrimSpace(*req.Phone) != "":
		account, err = s.directory.FindByPhone(ctx, *req.Phone)
	default:
		return nil, ErrValidation("email", "an email or phone number is required")
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "find account").
			Wrap(err)
	}
	return account, nil
}

// recordFailure counts a wrong password against an existing account. The
// increment happens in the store so parallel attempts cannot lose counts.
func (s *Service) recordFailure(ctx context.Context, account *Account) {
	state, err := s.directory.RecordLoginFailure(ctx, account.ID)
	if err != nil {
		s.warnBestEffort(ctx, "best-effort login state update failed",
			"login_state_update_failed", account.ID, "record_login_failure", err)
		return
	}
	s.logger.InfoContext(ctx, "login failed",
		"event", "login_failed",
		"account_id", account.ID.String(),
		"attempts_left", state.AttemptsLeft,
		"locked", state.IsLockedOut,
	)
}

// upgradeHash rehashes a verified password with current parameters. The
// write only lands if the stored hash is still the one that was verified,
// so a password reset racing the login is never undone.
func (s *Service) upgradeHash(ctx context.Context, account *Account, password string) {
	upgraded, err := s.hasher.Hash(password)
	if err != nil {
		s.warnBestEffort(ctx, "best-effort password rehash failed", "rehash_failed", account.ID, "rehash", err)
		return
	}
	swapped, err := s.directory.ReplacePasswordHash(ctx, account.ID, account.PasswordHash, upgraded)
	if err != nil {
		s.warnBestEffort(ctx, "best-effort password rehash failed", "rehash_failed", account.ID, "replace_password_hash", err)
		return
	}
	if !swapped {
		s.logger.DebugContext(ctx, "password changed during login, rehash skipped",
			"account_id", account.ID.String(),
		)
		return
	}
	account.PasswordHash = upgraded
}

func (s *Service) warnBestEffort(ctx context.Context, msg, event string, id ulid.ULID, operation string, err error) {
	s.logger.WarnContext(ctx, msg,
		"event", event,
		"account_id", id.String(),
		"operation", operation,
		"error", err.Error(),
	)
}

func (s *Service) startSession(ctx context.Context, account *Account, ttl time.Duration) (*AuthResult, error) {
	token, claims, err := s.tokens.Issue(account.ID, PurposeSession, ttl)
	if err != nil {
		return nil, oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "issue token").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	if _, err := s.sessions.Create(ctx, account.ID, token, claims.ExpiresAt); err != nil {
		return nil, err
	}
	return &AuthResult{
		Token:     token,
		TokenType: TokenTypeBearer,
		ExpiresAt: claims.ExpiresAt,
		Account:   account.View(),
	}, nil
}
