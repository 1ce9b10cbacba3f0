// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package notify delivers account mail through Mailgun, SendGrid or the log.
package notify

import (
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/travelnudge/authcore/internal/auth"
)

// Provider names accepted in configuration.
const (
	ProviderLog      = "log"
	ProviderMailgun  = "mailgun"
	ProviderSendGrid = "sendgrid"
)

// Config selects and configures the mail provider.
type Config struct {
	Provider   string         `koanf:"provider"`
	From       string         `koanf:"from"`
	MaxRetries uint64         `koanf:"max_retries"`
	Mailgun    MailgunConfig  `koanf:"mailgun"`
	SendGrid   SendGridConfig `koanf:"sendgrid"`
}

// MailgunConfig holds Mailgun credentials.
type MailgunConfig struct {
	Domain  string `koanf:"domain"`
	APIKey  string `koanf:"api_key"`
	APIBase string `koanf:"api_base"`
}

// SendGridConfig holds SendGrid credentials.
type SendGridConfig struct {
	APIKey  string `koanf:"api_key"`
	APIBase string `koanf:"api_base"`
}

// Validate checks that the selected provider has what it needs.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderLog:
		return nil
	case ProviderMailgun:
		if c.Mailgun.Domain == "" || c.Mailgun.APIKey == "" {
			return oops.Code(auth.CodeConfigInvalid).
				With("field", "notify.mailgun").
				Errorf("mailgun domain and api_key are required")
		}
	case ProviderSendGrid:
		if c.SendGrid.APIKey == "" {
			return oops.Code(auth.CodeConfigInvalid).
				With("field", "notify.sendgrid.api_key").
				Errorf("sendgrid api_key is required")
		}
	default:
		return oops.Code(auth.CodeConfigInvalid).
			With("field", "notify.provider").
			Errorf("unknown notify provider %q", c.Provider)
	}
	if c.From == "" {
		return oops.Code(auth.CodeConfigInvalid).
			With("field", "notify.from").
			Errorf("sender address is required")
	}
	return nil
}

// New builds the notifier selected by cfg. Network providers are wrapped in
// a Resilient decorator.
func New(cfg Config, logger *slog.Logger) (auth.Notifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	var next auth.Notifier
	switch cfg.Provider {
	case ProviderMailgun:
		next = NewMailgun(cfg.Mailgun, cfg.From)
	case ProviderSendGrid:
		next = NewSendGrid(cfg.SendGrid, cfg.From)
	default:
		return NewLog(logger), nil
	}

	return NewResilient(next, cfg.Provider,
		WithRetries(cfg.MaxRetries),
		WithBackoff(250*time.Millisecond),
		WithResilientLogger(logger),
	), nil
}
