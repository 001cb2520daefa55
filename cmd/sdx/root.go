package main

import (
	"github.com/spf13/cobra"

	"github.com/whitewolf2000ani/sdx/internal/api"
	"github.com/whitewolf2000ani/sdx/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "sdx",
	Short: "Structured clinical data extraction with LLM-backed validation",
	Long: `sdx turns free-form clinical source material into schema-validated
structured records.

The pipeline includes:
  - Source normalization (plain text, images, and PDFs via OCR)
  - Deterministic prompt assembly per extraction schema
  - Retried model calls with every raw reply persisted
  - JSON Schema validation with a bounded repair loop
  - Versioned record assembly per patient session`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.sdx/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "sdx home directory (default: ~/.sdx)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
