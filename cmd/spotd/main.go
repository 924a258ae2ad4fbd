// Command spotd ingests activation spots from program feeds, answers spot
// queries, and posts accepted spots and daily summaries.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "spotd",
	Short: "Activation spot ingestion and query service",
	Long: `spotd polls activation program feeds (SOTA, POTA, ...), deduplicates
the spots into a local SQLite store, and answers spot list, activation log,
and tweet-rate queries over HTTP and chat. Configuration is read from the
environment; see internal/config.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
