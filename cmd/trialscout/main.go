// Package main provides the trialscout command line tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "trialscout",
		Short: "Match oncology patient profiles against clinical trial requirements",
		Long: `trialscout scores a patient profile against the bundled trial catalog
and requirement registry, and manages the registry and catalog database.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newMatchCmd(),
		newRegistryCmd(),
		newCatalogCmd(),
		newMigrateCmd(),
	)
	return rootCmd
}
