// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store owns the PostgreSQL connection pool and schema migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connect defaults.
const (
	DefaultConnectRetries = 5
	DefaultConnectBackoff = 200 * time.Millisecond
	maxConnectBackoff     = 5 * time.Second
)

type connectConfig struct {
	retries uint64
	backoff time.Duration
	logger  *slog.Logger
}

// ConnectOption configures Connect.
type ConnectOption func(*connectConfig)

// WithConnectRetries sets how many times a failed ping is retried.
func WithConnectRetries(n uint64) ConnectOption {
	return func(c *connectConfig) { c.retries = n }
}

// WithConnectBackoff sets the first retry delay; later delays double.
func WithConnectBackoff(base time.Duration) ConnectOption {
	return func(c *connectConfig) {
		if base > 0 {
			c.backoff = base
		}
	}
}

// WithConnectLogger sets the logger used to report failed attempts.
func WithConnectLogger(logger *slog.Logger) ConnectOption {
	return func(c *connectConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Connect opens a pool for databaseURL and waits until the server answers a
// ping, retrying with capped exponential backoff. A malformed URL fails
// immediately.
func Connect(ctx context.Context, databaseURL string, opts ...ConnectOption) (*pgxpool.Pool, error) {
	cfg := connectConfig{
		retries: DefaultConnectRetries,
		backoff: DefaultConnectBackoff,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	backoff := retry.WithMaxRetries(cfg.retries,
		retry.WithCappedDuration(maxConnectBackoff, retry.NewExponential(cfg.backoff)))

	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if pingErr := pool.Ping(ctx); pingErr != nil {
			cfg.logger.WarnContext(ctx, "database not reachable",
				"event", "db_ping_failed",
				"attempt", attempt,
				"host", poolCfg.ConnConfig.Host,
				"error", pingErr.Error())
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", attempt).
			Wrap(err)
	}
	return pool, nil
}
