// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package notify

import (
	"context"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/samber/oops"
)

// Mailgun sends mail through the Mailgun messages API.
type Mailgun struct {
	mg   *mailgun.MailgunImpl
	from string
}

// NewMailgun creates a Mailgun notifier. An empty APIBase uses Mailgun's
// default US endpoint.
func NewMailgun(cfg MailgunConfig, from string) *Mailgun {
	mg := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.APIBase != "" {
		mg.SetAPIBase(cfg.APIBase)
	}
	return &Mailgun{mg: mg, from: from}
}

// Send queues one HTML message.
func (m *Mailgun) Send(ctx context.Context, to, subject, htmlBody string) (bool, error) {
	msg := m.mg.NewMessage(m.from, subject, "", to)
	msg.SetHtml(htmlBody)

	if _, _, err := m.mg.Send(ctx, msg); err != nil {
		return false, oops.Code("NOTIFY_SEND_FAILED").
			With("provider", ProviderMailgun).
			Wrap(err)
	}
	return true, nil
}
