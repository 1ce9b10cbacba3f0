// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"crypto/rsa"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/travelnudge/authcore/internal/auth"
	"github.com/travelnudge/authcore/internal/auth/postgres"
	"github.com/travelnudge/authcore/internal/config"
	"github.com/travelnudge/authcore/internal/httpapi"
	"github.com/travelnudge/authcore/internal/logging"
	"github.com/travelnudge/authcore/internal/notify"
	"github.com/travelnudge/authcore/internal/store"
)

const serviceName = "authcore"

func newServeCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication API",
		Long: `Start the HTTP API and, when metrics.addr is set, the metrics and
health server. SIGINT or SIGTERM triggers a graceful shutdown.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, cmd.ErrOrStderr(), deps)
		},
	}
}

// runServe runs until ctx is cancelled or a listener fails. Configuration
// is validated before any port is bound.
func runServe(ctx context.Context, cfg config.Config, logOut io.Writer, deps *Deps) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.Setup(serviceName, version, cfg.Log.Format, logOut)
	slog.SetDefault(logger)
	logger.InfoContext(ctx, "starting authcore",
		"http_addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr,
		"notify_provider", cfg.Notify.Provider,
	)

	pool, err := deps.Connect(ctx, cfg.Database.URL,
		store.WithConnectRetries(cfg.Database.ConnectRetries),
		store.WithConnectLogger(logger),
	)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := migrateUp(deps, cfg.Database.URL); err != nil {
			return err
		}
		logger.InfoContext(ctx, "database migrations applied")
	}

	limiter := httpapi.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
	defer limiter.Close()
	handler, err := buildHandler(cfg, pool, limiter, logger, deps)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obs ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obs = deps.NewObservabilityServer(cfg.Metrics.Addr, pool.Ping, logger)
		auth.RegisterMetrics(obs.Registry())
		notify.RegisterMetrics(obs.Registry())
		httpapi.RegisterMetrics(obs.Registry())

		obsErrs, err := obs.Start()
		if err != nil {
			return err
		}
		go monitorServerErrors(ctx, cancel, logger, obsErrs, "observability")
		logger.InfoContext(ctx, "observability server started", "addr", obs.Addr())
	}

	listener, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		stopObservability(obs, logger, cfg.HTTP.ShutdownTimeout)
		return oops.Code("HTTP_LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}
	srv := &http.Server{
		Handler:           handler.Router(),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
	apiErrs := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			apiErrs <- err
		}
		close(apiErrs)
	}()
	logger.InfoContext(ctx, "auth api listening", "addr", listener.Addr().String())

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err, ok := <-apiErrs:
		if ok {
			serveErr = oops.Code("HTTP_SERVE_FAILED").Wrap(err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping auth api", "error", err)
	}
	stopObservability(obs, logger, cfg.HTTP.ShutdownTimeout)

	logger.Info("shutdown complete")
	return serveErr
}

// buildHandler wires the repositories, flows and notifier into the API.
func buildHandler(cfg config.Config, pool Pool, limiter *httpapi.RateLimiter, logger *slog.Logger, deps *Deps) (*httpapi.Handler, error) {
	clock := deps.Clock
	accounts := postgres.NewAccountRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)

	tokens, err := auth.NewTokenService([]byte(cfg.Auth.SigningSecret),
		auth.WithTokenIssuer(cfg.Auth.Issuer),
		auth.WithTokenClock(clock),
	)
	if err != nil {
		return nil, err
	}
	sessions, err := auth.NewSessionStore(sessionRepo, tokens, clock, logger)
	if err != nil {
		return nil, err
	}
	directory, err := auth.NewAccountDirectory(accounts, clock)
	if err != nil {
		return nil, err
	}
	hasher := auth.NewArgon2idHasher()

	notifier, err := deps.NewNotifier(cfg.Notify, logger)
	if err != nil {
		return nil, err
	}

	opts := []auth.ServiceOption{
		auth.WithLogger(logger),
		auth.WithClock(clock),
		auth.WithLifetimes(cfg.Auth.Lifetimes()),
	}
	for _, p := range cfg.OIDC.Providers {
		verifier, err := loadVerifier(p, clock, deps.ReadFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, auth.WithVerifier(p.Name, verifier))
	}
	authSvc, err := auth.NewAuthService(directory, sessions, hasher, tokens, opts...)
	if err != nil {
		return nil, err
	}

	resets, err := auth.NewPasswordResetService(accounts, sessions, hasher, notifier, cfg.Auth.ResetURLBase,
		auth.WithResetLogger(logger),
		auth.WithResetClock(clock),
		auth.WithResetTTL(cfg.Auth.ResetTTL),
	)
	if err != nil {
		return nil, err
	}
	verify, err := auth.NewVerificationService(directory, sessions, tokens, notifier, cfg.Auth.VerifyURLBase,
		auth.WithVerificationLogger(logger),
		auth.WithVerificationTTL(cfg.Auth.VerifyTTL),
	)
	if err != nil {
		return nil, err
	}

	return httpapi.NewHandler(authSvc, resets, verify,
		httpapi.WithLogger(logger),
		httpapi.WithRateLimiter(limiter),
		httpapi.WithTrustedProxy(cfg.HTTP.TrustProxy),
	)
}

// loadVerifier reads a provider's PEM public key and builds its verifier.
func loadVerifier(p config.OIDCProvider, clock auth.Clock, readFile func(string) ([]byte, error)) (*auth.OIDCVerifier, error) {
	pemBytes, err := readFile(p.PublicKeyFile)
	if err != nil {
		return nil, oops.Code(auth.CodeConfigInvalid).
			With("provider", p.Name).
			With("path", p.PublicKeyFile).
			Wrap(err)
	}
	key, err := auth.ParseRSAPublicKey(pemBytes)
	if err != nil {
		return nil, oops.With("provider", p.Name).Wrap(err)
	}
	return auth.NewOIDCVerifier(p.Name, p.Issuer, p.Audience, []*rsa.PublicKey{key}, clock)
}

func stopObservability(obs ObservabilityServer, logger *slog.Logger, timeout time.Duration) {
	if obs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := obs.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors cancels ctx when a background server reports an
// error. It returns when errCh closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok || err == nil {
			return
		}
		logger.Error("server error, triggering shutdown",
			"server", serverName,
			"error", err,
		)
		cancel()
	case <-ctx.Done():
	}
}
