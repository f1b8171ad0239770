package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trialscout-server/internal/database"
)

type migrateOptions struct {
	databaseURL string
	path        string
}

func newMigrateCmd() *cobra.Command {
	var opts migrateOptions

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL catalog schema",
	}
	cmd.PersistentFlags().StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL URL of the catalog database")
	cmd.PersistentFlags().StringVar(&opts.path, "path", "", "Migrations directory (default: bundled migrations)")
	_ = cmd.MarkPersistentFlagRequired("database-url")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				runner, err := newRunner(opts)
				if err != nil {
					return err
				}
				defer runner.Close()
				return runner.Up(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				runner, err := newRunner(opts)
				if err != nil {
					return err
				}
				defer runner.Close()
				return runner.Down(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				runner, err := newRunner(opts)
				if err != nil {
					return err
				}
				defer runner.Close()

				version, dirty, err := runner.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			},
		},
	)
	return cmd
}

func newRunner(opts migrateOptions) (*database.MigrationRunner, error) {
	if opts.path == "" {
		return database.NewEmbeddedMigrationRunner(opts.databaseURL, quiet())
	}
	return database.NewMigrationRunner(opts.databaseURL, opts.path, quiet())
}
