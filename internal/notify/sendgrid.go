// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package notify

import (
	"context"
	"net/http"

	"github.com/samber/oops"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridEndpoint = "/v3/mail/send"

// SendGrid sends mail through the SendGrid v3 API.
type SendGrid struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewSendGrid creates a SendGrid notifier. An empty APIBase uses
// https://api.sendgrid.com.
func NewSendGrid(cfg SendGridConfig, from string) *SendGrid {
	req := sendgrid.GetRequest(cfg.APIKey, sendGridEndpoint, cfg.APIBase)
	req.Method = rest.Post
	return &SendGrid{
		client: &sendgrid.Client{Request: req},
		from:   mail.NewEmail("TravelNudge", from),
	}
}

// Send delivers one HTML message. SendGrid answers 202 on acceptance; any
// other status is a rejection.
func (s *SendGrid) Send(ctx context.Context, to, subject, htmlBody string) (bool, error) {
	msg := mail.NewV3Mail()
	msg.SetFrom(s.from)
	msg.Subject = subject
	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail("", to))
	msg.AddPersonalizations(p)
	msg.AddContent(mail.NewContent("text/html", htmlBody))

	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return false, oops.Code("NOTIFY_SEND_FAILED").
			With("provider", ProviderSendGrid).
			Wrap(err)
	}
	if resp.StatusCode != http.StatusAccepted {
		return false, oops.Code("NOTIFY_REJECTED").
			With("provider", ProviderSendGrid).
			With("status", resp.StatusCode).
			Errorf("sendgrid rejected message with status %d", resp.StatusCode)
	}
	return true, nil
}
