package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trialscout-server/internal/registry"
)

func newRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect and validate requirement registries",
	}

	cmd.AddCommand(
		newRegistryValidateCmd(),
		newRegistryShowCmd(),
		newRegistryExportCmd(),
	)
	return cmd
}

func newRegistryValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a registry file for schema and value errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: version %s, %d trials\n", args[0], reg.Version(), reg.Len())
			return nil
		},
	}
}

func newRegistryShowCmd() *cobra.Command {
	var registryPath string

	cmd := &cobra.Command{
		Use:   "show TRIAL_ID",
		Short: "Print the requirements registered for a trial",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry(registryPath)
			if err != nil {
				return err
			}
			req, ok := reg.Lookup(args[0])
			if !ok {
				return fmt.Errorf("trial %q is not in registry version %s", args[0], reg.Version())
			}

			data, err := json.MarshalIndent(req, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&registryPath, "registry", "", "Requirement registry file (default: bundled registry)")
	return cmd
}

func newRegistryExportCmd() *cobra.Command {
	var (
		registryPath string
		format       string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a registry to stdout as YAML or JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry(registryPath)
			if err != nil {
				return err
			}
			data, err := registry.Marshal(reg.Document(), registry.Format(format))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&registryPath, "registry", "", "Requirement registry file (default: bundled registry)")
	cmd.Flags().StringVar(&format, "format", string(registry.FormatYAML), "Output format: yaml or json")
	return cmd
}
