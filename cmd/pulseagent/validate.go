package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pulseagent/config"
)

// validateCmd validates a config file without starting the agent.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a pulseagent configuration file without starting the agent.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  pulseagent validate -c agent.yaml
  pulseagent validate --config /etc/pulseagent/agent.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	threadDumps := "disabled"
	if d := cfg.ThreadDumpInterval.Duration(); d > 0 {
		threadDumps = d.String()
	}
	checkIns := "disabled"
	if d := cfg.CheckInInterval.Duration(); d > 0 {
		checkIns = d.String()
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Config is valid!\n")
	_, _ = fmt.Fprintf(out, "  App:           %s\n", orNone(cfg.App.ID))
	_, _ = fmt.Fprintf(out, "  Check-ins:     %s\n", checkIns)
	_, _ = fmt.Fprintf(out, "  Thread dumps:  %s\n", threadDumps)
	_, _ = fmt.Fprintf(out, "  Senders:       %d\n", len(cfg.Senders))
	for i, s := range cfg.Senders {
		_, _ = fmt.Fprintf(out, "    [%d] %s %s\n", i, s.Type, senderTarget(s))
	}

	return nil
}

func senderTarget(s config.SenderConfig) string {
	switch s.Type {
	case config.SenderKafka:
		return s.Brokers + " -> " + s.Topic
	case config.SenderRedis:
		return s.URL + " -> " + s.Topic
	default:
		return s.URL
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
