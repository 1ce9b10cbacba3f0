// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads authcore configuration from defaults, an optional
// YAML file, AUTHCORE_ environment variables and command-line flags, in
// that order of increasing precedence.
package config

import (
	"net/url"
	"time"

	"github.com/samber/oops"

	"github.com/travelnudge/authcore/internal/auth"
	"github.com/travelnudge/authcore/internal/logging"
	"github.com/travelnudge/authcore/internal/notify"
)

// Config is the full service configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Notify   notify.Config  `koanf:"notify"`
	OIDC     OIDCConfig     `koanf:"oidc"`
}

// HTTPConfig configures the public API listener.
type HTTPConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	RateLimitRPS      float64       `koanf:"rate_limit_rps"`
	RateLimitBurst    int           `koanf:"rate_limit_burst"`
	TrustProxy        bool          `koanf:"trust_proxy"`
}

// MetricsConfig configures the observability listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
}

// DatabaseConfig configures PostgreSQL access.
type DatabaseConfig struct {
	URL            string `koanf:"url"`
	ConnectRetries uint64 `koanf:"connect_retries"`
	AutoMigrate    bool   `koanf:"auto_migrate"`
}

// AuthConfig configures tokens and account mail links.
type AuthConfig struct {
	SigningSecret string        `koanf:"signing_secret"`
	Issuer        string        `koanf:"issuer"`
	SessionTTL    time.Duration `koanf:"session_ttl"`
	RememberTTL   time.Duration `koanf:"remember_ttl"`
	SignupTTL     time.Duration `koanf:"signup_ttl"`
	ResetTTL      time.Duration `koanf:"reset_ttl"`
	VerifyTTL     time.Duration `koanf:"verify_ttl"`
	ResetURLBase  string        `koanf:"reset_url_base"`
	VerifyURLBase string        `koanf:"verify_url_base"`
}

// OIDCConfig lists the identity providers accepted for social login.
type OIDCConfig struct {
	Providers []OIDCProvider `koanf:"providers"`
}

// OIDCProvider describes one identity provider.
type OIDCProvider struct {
	Name          string `koanf:"name"`
	Issuer        string `koanf:"issuer"`
	Audience      string `koanf:"audience"`
	PublicKeyFile string `koanf:"public_key_file"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RateLimitRPS:      5,
			RateLimitBurst:    10,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:     LogConfig{Format: logging.FormatJSON},
		Database: DatabaseConfig{
			ConnectRetries: 5,
		},
		Auth: AuthConfig{
			Issuer:      auth.DefaultIssuer,
			SessionTTL:  auth.DefaultSessionTTL,
			RememberTTL: auth.DefaultRememberTTL,
			SignupTTL:   auth.DefaultSignupTTL,
			ResetTTL:    auth.ResetTokenExpiry,
			VerifyTTL:   auth.DefaultVerifyTTL,
		},
		Notify: notify.Config{
			Provider:   notify.ProviderLog,
			MaxRetries: notify.DefaultRetries,
		},
	}
}

// Lifetimes returns the session lifetimes for the auth service.
func (c AuthConfig) Lifetimes() auth.Lifetimes {
	return auth.Lifetimes{Session: c.SessionTTL, Remember: c.RememberTTL, Signup: c.SignupTTL}
}

func invalid(field, format string, args ...any) error {
	return oops.Code(auth.CodeConfigInvalid).With("field", field).Errorf(format, args...)
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "http listen address is required")
	}
	if c.HTTP.RateLimitRPS <= 0 || c.HTTP.RateLimitBurst <= 0 {
		return invalid("http.rate_limit_rps", "rate limit rps and burst must be positive")
	}
	if err := logging.ValidateFormat(c.Log.Format); err != nil {
		return err
	}
	if c.Database.URL == "" {
		return invalid("database.url", "database url is required")
	}
	if err := c.Auth.validate(); err != nil {
		return err
	}
	if err := c.Notify.Validate(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.OIDC.Providers))
	for _, p := range c.OIDC.Providers {
		if p.Name == "" || p.Issuer == "" || p.Audience == "" || p.PublicKeyFile == "" {
			return invalid("oidc.providers", "oidc provider %q needs name, issuer, audience and public_key_file", p.Name)
		}
		if seen[p.Name] {
			return invalid("oidc.providers", "oidc provider %q is listed twice", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// ValidateDatabase checks only what the migrate and sessions commands need.
func (c Config) ValidateDatabase() error {
	if c.Database.URL == "" {
		return invalid("database.url", "database url is required")
	}
	return nil
}

func (a AuthConfig) validate() error {
	if len(a.SigningSecret) < auth.MinSigningSecretBytes {
		return invalid("auth.signing_secret", "signing secret must be at least %d bytes", auth.MinSigningSecretBytes)
	}
	ttls := []struct {
		field string
		value time.Duration
	}{
		{"auth.session_ttl", a.SessionTTL},
		{"auth.remember_ttl", a.RememberTTL},
		{"auth.signup_ttl", a.SignupTTL},
		{"auth.reset_ttl", a.ResetTTL},
		{"auth.verify_ttl", a.VerifyTTL},
	}
	for _, ttl := range ttls {
		if ttl.value <= 0 {
			return invalid(ttl.field, "%s must be positive", ttl.field)
		}
	}
	links := []struct{ field, raw string }{
		{"auth.reset_url_base", a.ResetURLBase},
		{"auth.verify_url_base", a.VerifyURLBase},
	}
	for _, link := range links {
		u, err := url.Parse(link.raw)
		if link.raw == "" || err != nil || u.Scheme == "" || u.Host == "" {
			return invalid(link.field, "%s must be an absolute URL", link.field)
		}
	}
	return nil
}
