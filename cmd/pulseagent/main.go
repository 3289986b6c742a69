// Package main is the entry point for the pulseagent CLI.
//
// pulseagent can be embedded as a library (SDK) or run as a standalone
// sidecar with YAML configuration. This CLI provides the sidecar approach,
// plus a small collector for local testing.
//
// Usage:
//
//	pulseagent run -c agent.yaml      # Run the agent until interrupted
//	pulseagent checkin -c agent.yaml  # Send a single check-in and exit
//	pulseagent validate -c agent.yaml # Validate configuration
//	pulseagent collect --port 8080    # Receive documents from agents
//	pulseagent version                # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var logLevel string

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "pulseagent",
	Short: "A lightweight application heartbeat agent",
	Long: `pulseagent reports the identity and health of an application to one or
more collectors.

It sends periodic check-ins describing the host and application, lifecycle
events, goroutine dumps and scrubbed configuration dumps over HTTP, Kafka
or Redis.

Quick start:
  1. Create a config file (agent.yaml)
  2. Run: pulseagent run -c agent.yaml

Example config:
  check_in_interval: 60s
  app:
    id: billing
    version: 1.2.0
  senders:
    - type: http
      url: https://collector.internal`,
	SilenceUsage: true,
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this pulseagent binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "pulseagent %s\n", version)
		_, _ = fmt.Fprintf(out, "  commit: %s\n", commit)
		_, _ = fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(versionCmd)
}

// newLogger creates a JSON logger on stderr for CLI use.
func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	})), nil
}
