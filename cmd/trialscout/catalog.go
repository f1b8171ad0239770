package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/trialscout-server/internal/catalog"
	"github.com/trialscout-server/internal/config"
)

func newCatalogCmd() *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Export and import the local SQLite trial catalog",
	}
	cmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "SQLite catalog path (default: data directory catalog)")

	openStore := func() (*catalog.SQLiteStore, error) {
		if catalogPath == "" {
			catalogPath = config.LoadLiteConfig().CatalogDBPath()
		}
		return catalog.NewSQLiteStore(catalogPath)
	}

	exportCmd := &cobra.Command{
		Use:   "export [FILE]",
		Short: "Write the catalog as JSON (default: a timestamped file in the export directory)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				liteCfg := config.LoadLiteConfig()
				if err := liteCfg.EnsureDataDir(); err != nil {
					return err
				}
				path = filepath.Join(liteCfg.ExportDir(), fmt.Sprintf("catalog-%s.json", time.Now().UTC().Format("20060102T150405Z")))
			}

			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("creating export file: %w", err)
			}
			defer f.Close()

			if err := store.ExportJSON(cmd.Context(), f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported catalog to %s\n", path)
			return nil
		},
	}

	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Add trials from a JSON export, skipping IDs already present",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening import file: %w", err)
			}
			defer f.Close()

			imported, skipped, err := store.ImportJSON(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d trials, skipped %d\n", imported, skipped)
			return nil
		},
	}

	cmd.AddCommand(exportCmd, importCmd)
	return cmd
}
