package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pulseagent/internal/collector"
	"github.com/jpalmerr/pulseagent/internal/store"
)

// collectCmd runs a collector that receives documents from HTTP senders.
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run a collector for HTTP senders",
	Long: `Run a minimal collector that accepts documents from agents using the
HTTP sender and keeps them in memory.

Endpoints:
  POST /api/cmdb/checkIn, /api/cmdb/app-event,
       /api/monitor/thread-dump, /api/monitor/app-config-dump
  GET  /api/status   latest check-in per instance
  GET  /api/sse      live stream of received documents

Example:
  pulseagent collect --port 8080`,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().IntP("port", "p", 8080, "port to listen on")
}

func runCollect(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(logLevel)
	if err != nil {
		return err
	}

	port, _ := cmd.Flags().GetInt("port")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := collector.NewServer(store.NewMemoryStore(), port, logger)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start collector: %w", err)
	}

	<-ctx.Done()
	logger.Info("shutdown complete")
	return nil
}
