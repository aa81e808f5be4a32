// Package main provides the envoy CLI: the terminal client that sends chat
// messages to an Artificer engine, renders its streamed progress events,
// and serves the device's client-side tools back to the engine.
//
// # Basic Usage
//
//	envoy chat --server http://localhost:8787 --device-id <id> --device-key <key> "hello"
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "envoy:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "envoy",
		Short:        "Artificer envoy - terminal chat client",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	root.AddCommand(buildChatCmd(), buildDeviceCmd(), buildServeToolsCmd())
	return root
}
