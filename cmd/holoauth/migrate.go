// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/holoauth/internal/config"
	"github.com/holomush/holoauth/internal/store"
)

// migratorFactory opens the migrator for the migrate subcommands.
type migratorFactory func(url string) (SchemaMigrator, error)

func defaultMigratorFactory(url string) (SchemaMigrator, error) {
	return store.NewMigrator(url)
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return newMigrateCmd(defaultMigratorFactory, os.Getenv)
}

func newMigrateCmd(factory migratorFactory, getenv func(string) string) *cobra.Command {
	withMigrator := func(run func(cmd *cobra.Command, m SchemaMigrator, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			url, err := getDatabaseURL(cmd, getenv)
			if err != nil {
				return err
			}
			m, err := factory(url)
			if err != nil {
				return oops.Code("MIGRATION_INIT_FAILED").Wrap(err)
			}
			defer func() {
				if closeErr := m.Close(); closeErr != nil {
					slog.Warn("failed to close migrator", "error", closeErr)
				}
			}()
			return run(cmd, m, args)
		}
	}

	up := func(cmd *cobra.Command, m SchemaMigrator, _ []string) error {
		cmd.Println("Running migrations...")
		if err := m.Up(); err != nil {
			return err //nolint:wrapcheck // migrator errors carry codes
		}
		cmd.Println("Migrations completed successfully")
		return nil
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply, roll back or inspect the users schema. With no subcommand, applies pending migrations.`,
		RunE:  withMigrator(up),
	}
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL URL (default: $"+config.DatabaseURLEnv+")")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  withMigrator(up),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration, dropping all users",
		RunE: withMigrator(func(cmd *cobra.Command, m SchemaMigrator, _ []string) error {
			if err := m.Down(); err != nil {
				return err //nolint:wrapcheck // migrator errors carry codes
			}
			cmd.Println("All migrations rolled back")
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate the schema, deleting all users",
		RunE: withMigrator(func(cmd *cobra.Command, m SchemaMigrator, _ []string) error {
			if err := m.Reset(); err != nil {
				return err //nolint:wrapcheck // migrator errors carry codes
			}
			cmd.Println("Schema reset")
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: withMigrator(func(cmd *cobra.Command, m SchemaMigrator, _ []string) error {
			st, err := m.Status()
			if err != nil {
				return err //nolint:wrapcheck // migrator errors carry codes
			}
			printStatus(cmd, st)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it (recovers a dirty schema)",
		Args:  cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m SchemaMigrator, args []string) error {
			v, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			if err := m.Force(v); err != nil {
				return err //nolint:wrapcheck // migrator errors carry codes
			}
			cmd.Printf("Forced version %d\n", v)
			return nil
		}),
	})

	return cmd
}

func getDatabaseURL(cmd *cobra.Command, getenv func(string) string) (string, error) {
	path, err := resolveConfigFile(getenv)
	if err != nil {
		return "", err
	}
	cfg, err := config.Load(path, cmd.Flags(), getenv)
	if err != nil {
		return "", err //nolint:wrapcheck // config errors carry codes
	}
	if cfg.Database.URL == "" {
		return "", oops.Code("CONFIG_INVALID").
			With("key", "database.url").
			Errorf("--database-url or %s is required", config.DatabaseURLEnv)
	}
	return cfg.Database.URL, nil
}

func parseForceVersion(s string) (int, error) {
	var v int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &v); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Wrap(err)
	}
	return v, nil
}

func printStatus(cmd *cobra.Command, st store.Status) {
	state := "clean"
	if st.Dirty {
		state = "dirty"
	}
	cmd.Printf("Current version: %d (%s)\n", st.Version, state)

	for _, v := range st.Applied {
		cmd.Printf("  [applied] %s\n", migrationLabel(v))
	}
	for _, v := range st.Pending {
		cmd.Printf("  [pending] %s\n", migrationLabel(v))
	}
	if len(st.Pending) == 0 {
		cmd.Println("Schema is up to date")
	}
}

func migrationLabel(v uint) string {
	name, err := store.MigrationName(v)
	if err != nil || name == "" {
		return fmt.Sprintf("%06d", v)
	}
	return name
}
