// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/travelnudge/authcore/internal/auth"
	"github.com/travelnudge/authcore/internal/auth/postgres"
	"github.com/travelnudge/authcore/internal/notify"
	"github.com/travelnudge/authcore/internal/observability"
	"github.com/travelnudge/authcore/internal/store"
)

// Deps holds the factories the commands use. Nil fields use the production
// implementation.
type Deps struct {
	// Connect opens the database pool.
	// Default: store.Connect
	Connect func(ctx context.Context, url string, opts ...store.ConnectOption) (Pool, error)

	// NewMigrator creates a schema migrator.
	// Default: store.NewMigrator
	NewMigrator func(url string) (Migrator, error)

	// NewObservabilityServer creates the metrics and health server.
	// Default: observability.NewServer
	NewObservabilityServer func(addr string, checker observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// NewNotifier builds the mail notifier.
	// Default: notify.New
	NewNotifier func(cfg notify.Config, logger *slog.Logger) (auth.Notifier, error)

	// ReadFile reads OIDC public key files.
	// Default: os.ReadFile
	ReadFile func(path string) ([]byte, error)

	// Clock is the time source for every service.
	// Default: auth.SystemClock
	Clock auth.Clock
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.Connect == nil {
		out.Connect = func(ctx context.Context, url string, opts ...store.ConnectOption) (Pool, error) {
			return store.Connect(ctx, url, opts...)
		}
	}
	if out.NewMigrator == nil {
		out.NewMigrator = func(url string) (Migrator, error) {
			return store.NewMigrator(url)
		}
	}
	if out.NewObservabilityServer == nil {
		out.NewObservabilityServer = func(addr string, checker observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, checker, logger)
		}
	}
	if out.NewNotifier == nil {
		out.NewNotifier = notify.New
	}
	if out.ReadFile == nil {
		out.ReadFile = os.ReadFile
	}
	if out.Clock == nil {
		out.Clock = auth.SystemClock{}
	}
	return &out
}

// Pool is the subset of *pgxpool.Pool the commands use.
type Pool interface {
	postgres.DB
	Ping(ctx context.Context) error
	Close()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Force(version int) error
	Status() (store.Status, error)
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Registry() prometheus.Registerer
}
