// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package notify

import (
	"context"
	"log/slog"
)

// Log records that a message would have been sent. The body carries a
// credential link and is never logged.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a log-only notifier.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

// Send logs the recipient and subject and reports success.
func (l *Log) Send(ctx context.Context, to, subject, _ string) (bool, error) {
	l.logger.InfoContext(ctx, "mail delivery suppressed",
		"event", "mail_logged",
		"provider", ProviderLog,
		"to", to,
		"subject", subject)
	NotificationsTotal.WithLabelValues(ProviderLog, StatusSent).Inc()
	return true, nil
}
