// Package cmd provides the brandloom CLI commands.
//
// Commands:
//   - serve: HTTP API server for vector storage and context retrieval
//   - cleanup: one-shot removal of aged, low-performing vectors
//   - version: build information
//
// Signal handling and graceful shutdown are implemented via context
// cancellation.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "brandloom",
	Short: "Brandloom retrieval-augmented context engine",
	Long: `Brandloom turns a user's content history (profiles, posts, articles,
campaigns, images) into embeddings and assembles retrieval-augmented
context for content generation.

Run "brandloom serve" to start the HTTP API.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute is the main entry point for the brandloom CLI.
func Execute() error {
	// Initialize logger once at entry point. Logs go to stderr so piped
	// command output stays clean.
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	return rootCmd.Execute()
}
