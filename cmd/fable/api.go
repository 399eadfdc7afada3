package main

import (
	"github.com/spf13/cobra"

	"github.com/fablehouse/fable/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Fable server via HTTP.

These commands require a running server (fable serve).
Use --server to specify a custom server URL. Authentication comes from
FABLE_TOKEN (bearer token) or FABLE_USER (dev mode user ID).

Examples:
  fable api health                  # Check server health
  fable api books list              # List your books
  fable api books illustrate <id>   # Start or retry illustration`,
}

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "Book management commands",
}

var flowsCmd = &cobra.Command{
	Use:   "flows",
	Short: "Illustration flow commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.SwaggerEndpoint{}).Command(getServerURL))

	// Books as subcommand group
	for _, ep := range endpoints.BookCommands() {
		if cmd := ep.Command(getServerURL); cmd != nil {
			booksCmd.AddCommand(cmd)
		}
	}

	// Flows as subcommand group
	for _, ep := range endpoints.FlowCommands() {
		if cmd := ep.Command(getServerURL); cmd != nil {
			flowsCmd.AddCommand(cmd)
		}
	}

	apiCmd.AddCommand(booksCmd)
	apiCmd.AddCommand(flowsCmd)
	rootCmd.AddCommand(apiCmd)
}
