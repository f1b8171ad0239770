package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/trialscout-server/internal/catalog"
	"github.com/trialscout-server/internal/config"
	"github.com/trialscout-server/internal/domain"
	"github.com/trialscout-server/internal/logging"
	"github.com/trialscout-server/internal/registry"
	"github.com/trialscout-server/internal/service"
)

type matchOptions struct {
	profilePath  string
	registryPath string
	catalogPath  string
	jsonOutput   bool
	verbose      bool
}

func newMatchCmd() *cobra.Command {
	var opts matchOptions

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Score a patient profile against the trial catalog",
		Example: `  trialscout match --profile patient.json
  trialscout match --profile patient.json --registry requirements.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.profilePath, "profile", "p", "", "Patient profile JSON file (- for stdin)")
	cmd.Flags().StringVar(&opts.registryPath, "registry", "", "Requirement registry file (default: bundled registry)")
	cmd.Flags().StringVar(&opts.catalogPath, "catalog", "", "SQLite catalog path (default: data directory catalog)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the full response as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log catalog and registry loading")
	_ = cmd.MarkFlagRequired("profile")

	return cmd
}

func runMatch(cmd *cobra.Command, opts matchOptions) error {
	ctx := cmd.Context()

	level := "warn"
	if opts.verbose {
		level = "info"
	}
	logger := logging.NewWithOutput(level, "text", cmd.ErrOrStderr())

	profile, err := readProfile(cmd.InOrStdin(), opts.profilePath)
	if err != nil {
		return err
	}

	reg, err := loadRegistry(opts.registryPath)
	if err != nil {
		return err
	}

	catalogPath := opts.catalogPath
	if catalogPath == "" {
		liteCfg := config.LoadLiteConfig()
		catalogPath = liteCfg.CatalogDBPath()
	}
	store, err := catalog.NewSQLiteStore(catalogPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := catalog.Seed(ctx, store, logger); err != nil {
		return err
	}

	svc := service.NewMatchService(service.NewMatchEngine(reg), store, nil, service.MatchServiceConfig{
		DatasetVersion: config.DefaultLiteConfig().DatasetVersion,
	}, logger)

	resp, err := svc.Match(ctx, profile)
	if err != nil {
		return fmt.Errorf("matching profile: %w", err)
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	return printMatches(cmd.OutOrStdout(), resp)
}

func readProfile(stdin io.Reader, path string) (domain.PatientProfile, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return domain.PatientProfile{}, fmt.Errorf("reading profile: %w", err)
	}

	var profile domain.PatientProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return domain.PatientProfile{}, fmt.Errorf("decoding profile: %w", err)
	}
	return profile, nil
}

func loadRegistry(path string) (*registry.Registry, error) {
	if path == "" {
		return registry.LoadDefault()
	}
	return registry.LoadFile(path)
}

func printMatches(w io.Writer, resp *domain.MatchResponse) error {
	fmt.Fprintf(w, "Evaluated %d trials: %d possibly eligible, %d likely not eligible (registry %s)\n\n",
		resp.TotalTrialsEvaluated, resp.PossiblyEligibleCount, resp.LikelyNotEligibleCount, resp.RegistryVersion)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tTRIAL\tNCT\tSCORE\tCONFIDENCE\tVERDICT")
	for i, m := range resp.Matches {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			i+1, m.Trial.ID, m.Trial.NCTNumber, m.Result.MatchScore, m.Result.MatchConfidence, m.Result.EligibilityVerdict)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, m := range resp.Matches {
		if len(m.Result.WhyCantMatch) == 0 && len(m.Result.WhatToConfirm) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", m.Trial.ID)
		for _, reason := range m.Result.WhyCantMatch {
			fmt.Fprintf(w, "  - %s\n", reason)
		}
		for _, item := range m.Result.WhatToConfirm {
			fmt.Fprintf(w, "  ? %s\n", item)
		}
	}
	return nil
}

// quiet keeps logrus from writing when a command has no logger to share.
func quiet() *logrus.Logger {
	return logging.NewWithOutput("error", "text", io.Discard)
}
