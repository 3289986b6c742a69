package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/jpalmerr/pulseagent/internal/collector"
	"github.com/jpalmerr/pulseagent/internal/store"
)

// startLocalCollector runs an in-process collector on port and returns its
// base URL. It shuts down when ctx is cancelled.
func startLocalCollector(ctx context.Context, port int, logger *slog.Logger) (string, error) {
	srv := collector.NewServer(store.NewMemoryStore(), port, logger)
	if err := srv.Start(ctx); err != nil {
		return "", err
	}
	addr, ok := srv.Addr().(*net.TCPAddr)
	if !ok {
		return "", fmt.Errorf("unexpected collector address %v", srv.Addr())
	}
	return fmt.Sprintf("http://127.0.0.1:%d", addr.Port), nil
}
