// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinSigningSecretBytes is the shortest signing secret accepted for HS256.
const MinSigningSecretBytes = 32

// DefaultIssuer is the iss claim used when none is configured.
const DefaultIssuer = "authcore"

// Purpose scopes what a token may be used for.
type Purpose string

// Token purposes.
const (
	PurposeSession           Purpose = "session"
	PurposeEmailVerification Purpose = "email_verification"
)

// TokenClaims is the validated content of a bearer token.
type TokenClaims struct {
	ID        string
	Subject   ulid.ULID
	Purpose   Purpose
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// jwtClaims is the wire form of a token.
type jwtClaims struct {
	jwt.RegisteredClaims
	Purpose Purpose `json:"purpose,omitempty"`
}

// TokenService issues and validates signed, expiring bearer tokens.
// The signing secret is fixed for the lifetime of the service; rotating it
// invalidates every outstanding token.
type TokenService struct {
	secret []byte
	issuer string
	clock  Clock
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithTokenIssuer sets the iss claim written and required by the service.
func WithTokenIssuer(issuer string) TokenOption {
	return func(s *TokenService) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithTokenClock sets the time source used for iat, exp and validation.
func WithTokenClock(clock Clock) TokenOption {
	return func(s *TokenService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewTokenService creates a TokenService. A missing or short secret is a
// configuration error and should abort startup.
func NewTokenService(secret []byte, opts ...TokenOption) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, oops.Code(CodeConfigInvalid).Errorf("token signing secret is required")
	}
	if len(secret) < MinSigningSecretBytes {
		return nil, oops.Code(CodeConfigInvalid).
			With("min_bytes", MinSigningSecretBytes).
			Errorf("token signing secret must be at least %d bytes", MinSigningSecretBytes)
	}

	s := &TokenService{
		secret: append([]byte(nil), secret...),
		issuer: DefaultIssuer,
		clock:  SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for subject with the given purpose and lifetime.
// An empty purpose is recorded as a session token.
func (s *TokenService) Issue(subject ulid.ULID, purpose Purpose, ttl time.Duration) (string, TokenClaims, error) {
	if subject.Compare(ulid.ULID{}) == 0 {
		return "", TokenClaims{}, oops.Code(CodeInvalidInput).Errorf("token subject cannot be zero")
	}
	if ttl <= 0 {
		return "", TokenClaims{}, oops.Code(CodeInvalidInput).
			With("ttl", ttl.String()).
			Errorf("token lifetime must be positive")
	}
	if purpose == "" {
		purpose = PurposeSession
	}

	// NumericDate has second precision; truncate so the returned claims
	// match what Validate will read back.
	now := s.clock.Now().Truncate(time.Second)
	claims := TokenClaims{
		ID:        ulid.Make().String(),
		Subject:   subject,
		Purpose:   purpose,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl).Truncate(time.Second),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        claims.ID,
			Subject:   subject.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
		Purpose: purpose,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", TokenClaims{}, oops.Code("TOKEN_SIGN_FAILED").
			With("purpose", string(purpose)).
			Wrap(err)
	}
	return signed, claims, nil
}

// Validate verifies the signature and expiry of a token and returns its claims.
// The signature is checked before any claim is interpreted.
func (s *TokenService) Validate(tokenString string) (TokenClaims, error) {
	if tokenString == "" {
		return TokenClaims{}, ErrTokenInvalid()
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)

	var wire jwtClaims
	_, err := parser.ParseWithClaims(tokenString, &wire, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if expiredOnly(err) {
			return TokenClaims{}, ErrTokenExpired()
		}
		return TokenClaims{}, ErrTokenInvalid()
	}

	subject, err := ulid.Parse(wire.Subject)
	if err != nil {
		return TokenClaims{}, ErrTokenInvalid()
	}

	purpose := wire.Purpose
	if purpose == "" {
		purpose = PurposeSession
	}

	claims := TokenClaims{
		ID:        wire.ID,
		Subject:   subject,
		Purpose:   purpose,
		ExpiresAt: wire.ExpiresAt.Time,
	}
	if wire.IssuedAt != nil {
		claims.IssuedAt = wire.IssuedAt.Time
	}
	return claims, nil
}

// claimDefects are validation failures that make a token invalid no matter
// what else is wrong with it.
var claimDefects = []error{
	jwt.ErrTokenInvalidIssuer,
	jwt.ErrTokenRequiredClaimMissing,
	jwt.ErrTokenUsedBeforeIssued,
	jwt.ErrTokenNotValidYet,
	jwt.ErrTokenInvalidAudience,
	jwt.ErrTokenInvalidSubject,
}

// expiredOnly reports whether expiry is the sole reason a token failed.
// jwt/v5 checks the signature first and then joins every failed claim check
// into one error, so an expired token can also carry a foreign issuer.
func expiredOnly(err error) bool {
	if !errors.Is(err, jwt.ErrTokenExpired) {
		return false
	}
	for _, defect := range claimDefects {
		if errors.Is(err, defect) {
			return false
		}
	}
	return true
}

// ValidateFor validates a token and requires it to carry the given purpose.
func (s *TokenService) ValidateFor(tokenString string, purpose Purpose) (TokenClaims, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return TokenClaims{}, err
	}
	if claims.Purpose != purpose {
		return TokenClaims{}, ErrTokenInvalid()
	}
	return claims, nil
}
