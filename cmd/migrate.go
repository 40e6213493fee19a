/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/feastro/apiserver/config"
	"github.com/feastro/apiserver/internal/db"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations (all, or --steps N)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd, func(m *migrate.Migrate) error {
			if migrateSteps > 0 {
				return m.Steps(migrateSteps)
			}
			return m.Up()
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back --steps migrations (default 1)",
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := migrateSteps
		if steps <= 0 {
			steps = 1
		}
		return withMigrator(cmd, func(m *migrate.Migrate) error { return m.Steps(-steps) })
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd, func(m *migrate.Migrate) error {
			version, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				cmd.Println("no migrations applied")
				return nil
			}
			if err != nil {
				return err
			}
			cmd.Printf("version %d (dirty: %t)\n", version, dirty)
			return nil
		})
	},
}

var migrateForceCmd = &cobra.Command{
	Use:   "force VERSION",
	Short: "Mark VERSION as applied and clear the dirty flag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var version int
		if _, err := fmt.Sscanf(args[0], "%d", &version); err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return withMigrator(cmd, func(m *migrate.Migrate) error { return m.Force(version) })
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd, migrateForceCmd)
	migrateCmd.PersistentFlags().IntVar(&migrateSteps, "steps", 0, "number of migrations to apply or roll back")
}

func withMigrator(cmd *cobra.Command, run func(m *migrate.Migrate) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	m, err := migrate.New(db.MigrationsURL, db.DSN(cfg.Database))
	if err != nil {
		return fmt.Errorf("open migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	err = run(m)
	if errors.Is(err, migrate.ErrNoChange) {
		cmd.Println("schema is up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.Name(), err)
	}
	return nil
}
