package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/synaptica-ai/noshow/pkg/common/config"
	"github.com/synaptica-ai/noshow/pkg/common/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "noshow-features",
		Short:         "Compute cumulative no-show history features from appointment extracts",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				logger.Init()
			}
		},
	}
	rootCmd.PersistentFlags().Bool("verbose", false, "log progress as JSON to stdout")
	rootCmd.PersistentFlags().String("rules", "", "cleaning rules YAML (defaults to the built-in rules)")
	rootCmd.PersistentFlags().String("zipcodes", "", "GeoNames postal code file used for travel distance")

	rootCmd.AddCommand(computeCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(horizonCmd())
	return rootCmd
}

// loadConfig starts from the environment and lets explicitly set flags win.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg := config.Load()
	flags := cmd.Flags()
	if flags.Changed("rules") {
		cfg.CleaningRulesPath, _ = flags.GetString("rules")
	}
	if flags.Changed("zipcodes") {
		cfg.ZipCodesPath, _ = flags.GetString("zipcodes")
	}
	if f := flags.Lookup("history-years"); f != nil && f.Changed {
		cfg.HistoryYears, _ = flags.GetInt("history-years")
	}
	if f := flags.Lookup("exclusion-days"); f != nil && f.Changed {
		cfg.ExclusionDays, _ = flags.GetInt("exclusion-days")
	}
	if f := flags.Lookup("workers"); f != nil && f.Changed {
		cfg.FeatureWorkers, _ = flags.GetInt("workers")
	}
	return cfg
}
