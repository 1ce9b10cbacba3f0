// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rsa"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// ExternalIdentity is what an identity provider vouches for.
type ExternalIdentity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// ExternalIdentityVerifier checks a credential issued by an identity provider.
type ExternalIdentityVerifier interface {
	Verify(ctx context.Context, credential string) (ExternalIdentity, error)
}

// OIDCVerifier validates RS256 OpenID Connect ID tokens against a fixed set
// of provider public keys.
type OIDCVerifier struct {
	provider string
	issuer   string
	audience string
	keys     []*rsa.PublicKey
	clock    Clock
}

type oidcClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// NewOIDCVerifier creates a verifier for one provider. At least one key is required.
func NewOIDCVerifier(provider, issuer, audience string, keys []*rsa.PublicKey, clock Clock) (*OIDCVerifier, error) {
	switch {
	case provider == "":
		return nil, oops.Code(CodeConfigInvalid).Errorf("oidc provider name is required")
	case issuer == "":
		return nil, oops.Code(CodeConfigInvalid).With("provider", provider).Errorf("oidc issuer is required")
	case audience == "":
		return nil, oops.Code(CodeConfigInvalid).With("provider", provider).Errorf("oidc audience is required")
	case len(keys) == 0:
		return nil, oops.Code(CodeConfigInvalid).With("provider", provider).Errorf("oidc public key is required")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &OIDCVerifier{
		provider: provider,
		issuer:   issuer,
		audience: audience,
		keys:     keys,
		clock:    clock,
	}, nil
}

// ParseRSAPublicKey decodes a PEM encoded RSA public key.
func ParseRSAPublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes)
	if err != nil {
		return nil, oops.Code(CodeConfigInvalid).Wrap(err)
	}
	return key, nil
}

// Verify validates the ID token and returns the identity it asserts. An
// identity without an email cannot be linked to an account and is rejected.
func (v *OIDCVerifier) Verify(_ context.Context, credential string) (ExternalIdentity, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.clock.Now),
	)

	keySet := jwt.VerificationKeySet{Keys: make([]jwt.VerificationKey, 0, len(v.keys))}
	for _, k := range v.keys {
		keySet.Keys = append(keySet.Keys, k)
	}

	var claims oidcClaims
	if _, err := parser.ParseWithClaims(credential, &claims, func(*jwt.Token) (any, error) {
		return keySet, nil
	}); err != nil {
		return ExternalIdentity{}, oops.Code(CodeUnauthorized).
			With("provider", v.provider).
			Errorf("identity provider credential rejected")
	}

	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if email == "" || claims.Subject == "" {
		return ExternalIdentity{}, oops.Code(CodeUnauthorized).
			With("provider", v.provider).
			Errorf("identity provider credential rejected")
	}

	return ExternalIdentity{
		Provider:      v.provider,
		Subject:       claims.Subject,
		Email:         email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}
