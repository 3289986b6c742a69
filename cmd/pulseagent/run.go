package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pulseagent"
	"github.com/jpalmerr/pulseagent/config"
)

const (
	// bounds the SHUTDOWN_INITIATED event, which runs after the signal
	// context is already cancelled
	shutdownTimeout = 10 * time.Second
)

// runCmd runs the agent as a sidecar.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent",
	Long: `Run the agent until interrupted.

The agent will:
  - Load configuration from the specified YAML file
  - Send a STARTUP_COMPLETE event and start periodic check-ins
  - Send periodic thread dumps if thread_dump_interval is set
  - Send a SHUTDOWN_INITIATED event on Ctrl+C or SIGTERM

Example:
  pulseagent run -c agent.yaml
  pulseagent run --config /etc/pulseagent/agent.yaml`,
	RunE: runAgent,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = runCmd.MarkFlagRequired("config")
}

func runAgent(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(logLevel)
	if err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	agent, cfg, err := loadAgent(configFile, logger)
	if err != nil {
		return err
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runUntilDone(ctx, agent, cfg.App.ID, logger)
}

// loadAgent loads the config file and creates an agent from it.
func loadAgent(path string, logger *slog.Logger) (*pulseagent.Agent, *config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"senders", len(cfg.Senders),
		"check_in_interval", cfg.CheckInInterval.Duration().String(),
		"thread_dump_interval", cfg.ThreadDumpInterval.Duration().String(),
	)

	opts, err := config.BuildOptions(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build senders: %w", err)
	}

	agent, err := pulseagent.New(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create agent: %w", err)
	}
	return agent, cfg, nil
}

// runUntilDone starts the agent, blocks until ctx is cancelled, then reports
// shutdown and closes the agent.
func runUntilDone(ctx context.Context, agent *pulseagent.Agent, appID string, logger *slog.Logger) error {
	if err := agent.Start(ctx); err != nil {
		_ = agent.Close()
		return fmt.Errorf("failed to start agent: %w", err)
	}

	agent.ReportAppEvent(ctx, lifecycleEvent(pulseagent.EventStartupComplete, appID))

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	agent.ReportAppEvent(shutdownCtx, lifecycleEvent(pulseagent.EventShutdownInitiated, appID))

	if err := agent.Close(); err != nil {
		logger.Warn("problem closing senders", "error", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func lifecycleEvent(t pulseagent.AppEventType, appID string) pulseagent.AppEvent {
	return pulseagent.AppEvent{
		Type:  t,
		AppID: appID,
		Host:  pulseagent.UnqualifiedHostname(),
	}
}
