package main

import (
	"github.com/spf13/cobra"

	"github.com/fablehouse/fable/internal/api"
	"github.com/fablehouse/fable/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "fable",
	Short: "Turn family photos into illustrated storybooks",
	Long: `Fable turns uploaded photos into illustrated children's books.

Each book page pairs a photo with story text. Illustration runs as a
per-page job flow against an image model, tracks which pages succeeded,
were flagged by moderation, or failed, and retries only the pages that
still need work.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ~/.fable/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "fable home directory (default: ~/.fable)",
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
