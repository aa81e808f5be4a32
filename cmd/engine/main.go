// Package main provides the CLI entry point for the Artificer engine: the
// task-execution-and-orchestration server that drives the router,
// pipeline, and agentic loop against a sqlite store and a background job
// worker.
//
// # Basic Usage
//
// Start the server:
//
//	engine serve --config artificer.yaml
//
// Apply the sqlite schema without starting the server:
//
//	engine migrate
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "engine",
		Short:        "Artificer engine - task execution and orchestration server",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	root.AddCommand(buildServeCmd(), buildMigrateCmd(), buildDeviceCmd())
	return root
}
