package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tasknest/tasknest/db"
	"github.com/tasknest/tasknest/internal/config"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		Long: `Apply pending database migrations and exit.

Migrations are embedded in the binary and tracked in the schema_migrations
table. 'tasknest serve' also applies them at startup when
database.auto_migrate is true; this command is for running them explicitly,
e.g. from a deploy pipeline.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd)
		},
	}
}

func runMigrate(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	connURL := cfg.PostgresURL()
	fmt.Fprintf(cmd.OutOrStdout(), "Applying migrations to %s:%d/%s\n",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	if err := db.Migrate(connURL); err != nil {
		return err
	}

	version, dirty, err := db.Version(connURL)
	if err != nil {
		return fmt.Errorf("checking schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("schema version %d is dirty, inspect the database before continuing", version)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Schema is up to date at version %d\n", version)
	return nil
}
