package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/pulseagent"
	"github.com/jpalmerr/pulseagent/sender/httpsender"
	"github.com/jpalmerr/pulseagent/sender/memory"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// local collector (see collector.go), outlives the agent so the
	// shutdown event is still received
	collectorCtx, stopCollector := context.WithCancel(context.Background())
	defer stopCollector()
	baseURL, err := startLocalCollector(collectorCtx, 8080, logger)
	if err != nil {
		slog.Error("failed to start collector", "error", err)
		os.Exit(1)
	}

	httpSender, err := httpsender.New(baseURL, httpsender.WithTimeout(5*time.Second))
	if err != nil {
		slog.Error("failed to create http sender", "error", err)
		os.Exit(1)
	}
	recorder := memory.New()

	agent, err := pulseagent.New(
		pulseagent.WithSenders(httpSender, recorder),
		pulseagent.WithCheckInInterval(10*time.Second),
		pulseagent.WithThreadDumpInterval(time.Minute),
		pulseagent.WithAppMetadataProvider(&pulseagent.StaticMetadata{
			App:   "billing",
			Ver:   "1.2.0",
			Env:   "dev",
			Built: time.Now().Add(-time.Hour),
			Extended: map[string]any{
				"team": "payments",
			},
		}),
		pulseagent.WithDecorator(pulseagent.DecoratorFunc(func(doc *pulseagent.Document) error {
			doc.Set("region", "local")
			return nil
		})),
		pulseagent.WithLogger(logger),
	)
	if err != nil {
		slog.Error("failed to create agent", "error", err)
		os.Exit(1)
	}

	if err := agent.Start(ctx); err != nil {
		slog.Error("failed to start agent", "error", err)
		os.Exit(1)
	}

	agent.ReportAppEvent(ctx, pulseagent.AppEvent{
		Type:  pulseagent.EventStartupComplete,
		AppID: "billing",
		Host:  pulseagent.UnqualifiedHostname(),
	})

	if err := agent.ReportAppConfigDump(ctx, []pulseagent.AppConfigEntry{
		{Key: "db_url", Value: "postgres://db.internal/billing"},
		{Key: "db_password", Value: "hunter2"},
		{Key: "stripeApiKey", Value: "sk_live_123"},
	}, ""); err != nil {
		slog.Error("failed to report config dump", "error", err)
	}

	fmt.Println()
	fmt.Println("  pulseagent demo")
	fmt.Println()
	fmt.Printf("  Collector status:  %s/api/status\n", baseURL)
	fmt.Printf("  Live stream:       %s/api/sse\n", baseURL)
	fmt.Println()
	fmt.Println("  Check-ins every 10s, thread dumps every minute.")
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	agent.ReportAppEvent(shutdownCtx, pulseagent.AppEvent{
		Type:  pulseagent.EventShutdownInitiated,
		AppID: "billing",
	})

	if err := agent.Close(); err != nil {
		slog.Error("problem closing agent", "error", err)
	}
	fmt.Printf("  Delivered %d documents\n", len(recorder.Messages()))
}
