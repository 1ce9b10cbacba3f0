// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/travelnudge/authcore/internal/auth/postgres"
	"github.com/travelnudge/authcore/internal/store"
)

func newSessionsCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Maintain stored sessions",
	}

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete sessions that expired before now minus --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan < 0 {
				return oops.Code("CONFIG_INVALID").
					With("field", "older-than").
					Errorf("--older-than cannot be negative")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateDatabase(); err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := deps.Connect(ctx, cfg.Database.URL, store.WithConnectRetries(cfg.Database.ConnectRetries))
			if err != nil {
				return err
			}
			defer pool.Close()

			cutoff := deps.Clock.Now().Add(-olderThan)
			n, err := postgres.NewSessionRepository(pool).DeleteExpiredBefore(ctx, cutoff)
			if err != nil {
				return oops.Code("SESSION_PRUNE_FAILED").With("cutoff", cutoff).Wrap(err)
			}
			cmd.Printf("Pruned %d sessions expired before %s\n", n, cutoff.UTC().Format(time.RFC3339))
			return nil
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 0, "only delete sessions expired at least this long ago")
	cmd.AddCommand(prune)

	return cmd
}
