package main

import (
	"database/sql"
	"io/fs"
	"os"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/iota-uz/bookkeeper/migrations"
	"github.com/iota-uz/bookkeeper/pkg/application"
	"github.com/iota-uz/bookkeeper/pkg/configuration"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect database migrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrations(func(m application.MigrationManager) error {
				return m.Up(cmd.Context())
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrations(func(m application.MigrationManager) error {
				return m.Down(cmd.Context())
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrations(func(m application.MigrationManager) error {
				statuses, err := m.Status(cmd.Context())
				if err != nil {
					return err
				}
				for _, s := range statuses {
					if err := writeJSONLine(cmd.OutOrStdout(), s); err != nil {
						return err
					}
				}
				return nil
			})
		},
	})
	return cmd
}

func withMigrations(fn func(m application.MigrationManager) error) error {
	conf := configuration.Use()
	defer conf.Unload()

	db, err := sql.Open("postgres", conf.Database.Opts)
	if err != nil {
		return withCode(exitDB, err)
	}
	defer db.Close()

	var fsys fs.FS = migrations.FS
	if conf.MigrationsDir != "" {
		fsys = os.DirFS(conf.MigrationsDir)
	}
	manager, err := application.NewMigrationManager(db, fsys, conf.Logger().WithField("component", "migrations"))
	if err != nil {
		return withCode(exitDB, err)
	}
	return withCode(exitDB, fn(manager))
}
