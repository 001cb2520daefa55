package main

import (
	"github.com/spf13/cobra"

	"github.com/whitewolf2000ani/sdx/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running sdx server via HTTP.

These commands require a running server (sdx serve).
Use --server to specify a custom server URL.

Examples:
  sdx api health                     # Check server health
  sdx api artifacts upload note.txt  # Upload a source artifact
  sdx api run --session s1 <id>      # Run the extraction pipeline
  sdx api records get <session>      # Get a session's latest record`,
}

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "Source artifact commands",
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Clinical record commands",
}

var repliesCmd = &cobra.Command{
	Use:   "replies",
	Short: "Raw model reply commands",
}

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "Extraction schema commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8085", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))

	// Pipeline run at top level of api
	apiCmd.AddCommand((&endpoints.RunPipelineEndpoint{}).Command(getServerURL))

	// Swagger spec at top level of api
	apiCmd.AddCommand((&endpoints.SwaggerEndpoint{}).Command(getServerURL))

	for _, ep := range endpoints.ArtifactCommands() {
		artifactsCmd.AddCommand(ep.Command(getServerURL))
	}
	for _, ep := range endpoints.RecordCommands() {
		recordsCmd.AddCommand(ep.Command(getServerURL))
	}
	for _, ep := range endpoints.ReplyCommands() {
		repliesCmd.AddCommand(ep.Command(getServerURL))
	}
	for _, ep := range endpoints.SchemaCommands() {
		schemasCmd.AddCommand(ep.Command(getServerURL))
	}

	apiCmd.AddCommand(artifactsCmd)
	apiCmd.AddCommand(recordsCmd)
	apiCmd.AddCommand(repliesCmd)
	apiCmd.AddCommand(schemasCmd)
	rootCmd.AddCommand(apiCmd)
}
