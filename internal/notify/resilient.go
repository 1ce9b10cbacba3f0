// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker"

	"github.com/travelnudge/authcore/internal/auth"
)

// Resilient defaults.
const (
	DefaultRetries     = 2
	DefaultBackoff     = 250 * time.Millisecond
	maxBackoff         = 2 * time.Second
	breakerOpenTimeout = 30 * time.Second
)

var errRejected = errors.New("provider did not accept the message")

// Resilient retries a notifier with exponential backoff and stops calling it
// while a circuit breaker is open. A message counts as one breaker request
// no matter how many attempts it took.
type Resilient struct {
	next     auth.Notifier
	provider string
	breaker  *gobreaker.CircuitBreaker
	retries  uint64
	backoff  time.Duration
	logger   *slog.Logger
}

// ResilientOption configures a Resilient notifier.
type ResilientOption func(*resilientConfig)

type resilientConfig struct {
	retries  uint64
	backoff  time.Duration
	logger   *slog.Logger
	settings gobreaker.Settings
}

// WithRetries sets the number of retries after the first attempt.
func WithRetries(n uint64) ResilientOption {
	return func(c *resilientConfig) { c.retries = n }
}

// WithBackoff sets the first retry delay.
func WithBackoff(d time.Duration) ResilientOption {
	return func(c *resilientConfig) {
		if d > 0 {
			c.backoff = d
		}
	}
}

// WithResilientLogger sets the logger for retry and breaker events.
func WithResilientLogger(logger *slog.Logger) ResilientOption {
	return func(c *resilientConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBreakerTimeout sets how long the breaker stays open before probing.
func WithBreakerTimeout(d time.Duration) ResilientOption {
	return func(c *resilientConfig) { c.settings.Timeout = d }
}

// NewResilient wraps next. The breaker opens once at least three messages in
// a window have been seen and 60% of them failed.
func NewResilient(next auth.Notifier, provider string, opts ...ResilientOption) *Resilient {
	cfg := resilientConfig{
		retries: DefaultRetries,
		backoff: DefaultBackoff,
		logger:  slog.Default(),
		settings: gobreaker.Settings{
			Name:        "notify-" + provider,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     breakerOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := cfg.logger
	cfg.settings.OnStateChange = func(name string, from, to gobreaker.State) {
		logger.Warn("notifier circuit breaker state changed",
			"event", "breaker_state_change",
			"breaker", name,
			"from", from.String(),
			"to", to.String())
	}

	return &Resilient{
		next:     next,
		provider: provider,
		breaker:  gobreaker.NewCircuitBreaker(cfg.settings),
		retries:  cfg.retries,
		backoff:  cfg.backoff,
		logger:   cfg.logger,
	}
}

// Send delivers through the wrapped notifier. It reports false with an error
// when every attempt failed or the breaker is open.
func (r *Resilient) Send(ctx context.Context, to, subject, htmlBody string) (bool, error) {
	_, err := r.breaker.Execute(func() (any, error) {
		return nil, r.sendWithRetry(ctx, to, subject, htmlBody)
	})

	switch {
	case err == nil:
		NotificationsTotal.WithLabelValues(r.provider, StatusSent).Inc()
		return true, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		NotificationsTotal.WithLabelValues(r.provider, StatusBreakerOpen).Inc()
		return false, oops.Code("NOTIFY_UNAVAILABLE").
			With("provider", r.provider).
			Wrap(err)
	default:
		NotificationsTotal.WithLabelValues(r.provider, StatusFailed).Inc()
		return false, err
	}
}

func (r *Resilient) sendWithRetry(ctx context.Context, to, subject, htmlBody string) error {
	backoff := retry.WithMaxRetries(r.retries,
		retry.WithCappedDuration(maxBackoff, retry.NewExponential(r.backoff)))

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		ok, err := r.next.Send(ctx, to, subject, htmlBody)
		if err == nil && ok {
			return nil
		}
		if err == nil {
			err = oops.Code("NOTIFY_REJECTED").With("provider", r.provider).Wrap(errRejected)
		}
		r.logger.WarnContext(ctx, "mail delivery attempt failed",
			"event", "notify_attempt_failed",
			"provider", r.provider,
			"attempt", attempt,
			"error", err.Error())
		return retry.RetryableError(err)
	})
}
