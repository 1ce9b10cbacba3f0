// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"bytes"
	"context"
	"html/template"
	"net/url"
	"strconv"
	"time"

	"github.com/samber/oops"
)

// Notifier delivers an HTML message to an address. A false result and an
// error are both delivery failures.
type Notifier interface {
	Send(ctx context.Context, to, subject, htmlBody string) (bool, error)
}

// Mail subjects.
const (
	ResetSubject        = "Reset Your TravelNudge Password"
	VerificationSubject = "Verify Your TravelNudge Email"
)

var resetTemplate = template.Must(template.New("reset").Parse(`<h3>Hello {{.Name}},</h3>
<p>You requested a password reset. Click the link below to set a new password:</p>
<a href="{{.Link}}" style="color:blue;">Reset Password</a>
<p>This link will expire in {{.ExpiresIn}}.</p>
<p>If you did not request this, please ignore this email.</p>
`))

var verificationTemplate = template.Must(template.New("verify").Parse(`<h3>Hello {{.Name}},</h3>
<p>Please confirm your email address by clicking the link below:</p>
<a href="{{.Link}}" style="color:blue;">Verify Email</a>
<p>This link will expire in {{.ExpiresIn}}.</p>
`))

type mailData struct {
	Name      string
	Link      string
	ExpiresIn string
}

// buildLink appends the token as a query parameter to base.
func buildLink(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", oops.Code(CodeConfigInvalid).
			With("base", base).
			Wrap(err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func renderMail(tmpl *template.Template, name, link string, ttl time.Duration) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, mailData{Name: name, Link: link, ExpiresIn: humanDuration(ttl)}); err != nil {
		return "", oops.Code("MAIL_RENDER_FAILED").
			With("template", tmpl.Name()).
			Wrap(err)
	}
	return buf.String(), nil
}

// humanDuration renders whole hours or minutes the way a mail reader expects.
func humanDuration(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return strconv.FormatInt(int64(d/time.Hour), 10) + " hours"
	case d == time.Minute:
		return "1 minute"
	default:
		return strconv.FormatInt(int64(d/time.Minute), 10) + " minutes"
	}
}
