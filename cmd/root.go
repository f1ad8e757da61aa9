// Package cmd provides the mnemo CLI commands.
//
// Commands:
//   - serve: run the HTTP API server
//   - migrate: apply pending database migrations and exit
//   - version: show version and configuration information
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mnemo-ai/mnemo/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "mnemo",
	Short: "mnemo - AI-assisted personal knowledge base",
	Long: `mnemo is a personal knowledge base with an AI assistant.

It stores your notes in PostgreSQL, governs access with a per-user rate
limiter and a Redis read-through cache, and answers questions through an
agentic assistant that searches your entries on its own.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called from main.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the process logger. DEBUG in the environment lowers
// the level; LOG_JSON switches to JSON output for log collectors.
func newLogger() log.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	if os.Getenv("LOG_JSON") != "" {
		cfg.JSON = true
	}
	return log.New(cfg)
}
