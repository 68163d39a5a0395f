package main

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"datatrail/internal/platform/config"
	"datatrail/internal/platform/migrations"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or inspect database migrations",
	}

	cmd.AddCommand(
		migrateAction("up", "Apply all pending migrations", func(cmd *cobra.Command, m *migrations.Migrator) error {
			return m.Up(cmd.Context())
		}),
		migrateAction("down", "Roll back the most recent migration", func(cmd *cobra.Command, m *migrations.Migrator) error {
			return m.Down(cmd.Context())
		}),
		migrateAction("status", "Show which migrations are applied", func(cmd *cobra.Command, m *migrations.Migrator) error {
			status, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			var b strings.Builder
			for _, s := range status {
				state := "pending"
				if s.Applied {
					state = "applied"
				}
				fmt.Fprintf(&b, "%05d  %-8s %s\n", s.Version, state, s.Path)
			}
			return renderValue(stdout, output, status, b.String())
		}),
	)
	return cmd
}

func migrateAction(use, short string, fn func(cmd *cobra.Command, m *migrations.Migrator) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(cfg *config.Config, db *sql.DB) error {
				m, err := migrations.New(db, cliLogger(cfg))
				if err != nil {
					return err
				}
				return fn(cmd, m)
			})
		},
	}
}
