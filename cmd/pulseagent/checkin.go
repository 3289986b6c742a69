package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// checkinCmd sends a single check-in and exits.
var checkinCmd = &cobra.Command{
	Use:   "checkin",
	Short: "Send a single check-in",
	Long: `Send one check-in to every configured sender and exit.

Useful for verifying connectivity to collectors from a new host. Delivery
failures are logged; the exit code is non-zero if any delivery failed.

Example:
  pulseagent checkin -c agent.yaml`,
	RunE: runCheckIn,
}

func init() {
	rootCmd.AddCommand(checkinCmd)

	checkinCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = checkinCmd.MarkFlagRequired("config")
}

func runCheckIn(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(logLevel)
	if err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	agent, _, err := loadAgent(configFile, logger)
	if err != nil {
		return err
	}
	defer func() { _ = agent.Close() }()

	agent.ReportCheckIn(cmd.Context())

	if n := agent.FailureCount(); n > 0 {
		return fmt.Errorf("check-in failed for %d sender(s)", n)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Check-in sent to %d sender(s)\n", len(agent.Senders()))
	return nil
}
