package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/whitewolf2000ani/sdx/internal/api"
	"github.com/whitewolf2000ani/sdx/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage sdx configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Write a default config.yaml to the sdx home directory.

The generated file enables the OpenAI chat provider (API key read from
$OPENAI_API_KEY) and Tesseract OCR. Edit it to add providers or change
defaults; the running server picks up edits without a restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}

		path := h.ConfigPath()
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}

		if err := config.WriteDefault(path); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}

		fmt.Printf("Wrote default config to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		return api.Output(mgr.Get())
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
