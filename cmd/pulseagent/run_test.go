package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jpalmerr/pulseagent"
	"github.com/jpalmerr/pulseagent/sender/httpsender"
	"github.com/jpalmerr/pulseagent/sender/memory"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func eventTypes(s *memory.Sender) []string {
	var types []string
	for _, doc := range s.Documents(pulseagent.MessageAppEvent) {
		types = append(types, doc.String("eventType"))
	}
	return types
}

func TestRunUntilDone_LifecycleEvents(t *testing.T) {
	mem := memory.New()
	agent, err := pulseagent.New(
		pulseagent.WithSender(mem),
		pulseagent.WithCheckInInterval(time.Hour),
		pulseagent.WithLogger(testLogger()),
	)
	if err != nil {
		t.Fatalf("pulseagent.New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runUntilDone(ctx, agent, "billing", testLogger())
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(eventTypes(mem)) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("STARTUP_COMPLETE was not sent")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runUntilDone() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runUntilDone() did not return after cancel")
	}

	got := eventTypes(mem)
	want := []string{"STARTUP_COMPLETE", "SHUTDOWN_INITIATED"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", got, want)
	}

	doc := mem.Documents(pulseagent.MessageAppEvent)[0]
	if doc.String("appId") != "billing" {
		t.Errorf("appId = %q, want billing", doc.String("appId"))
	}
	if doc.String("host") == "" {
		t.Error("host should be set on lifecycle events")
	}

	if n := len(mem.Documents(pulseagent.MessageCheckIn)); n != 1 {
		t.Errorf("check-ins = %d, want 1 (sent on start)", n)
	}
}

func TestRunUntilDone_StartError(t *testing.T) {
	agent, err := pulseagent.New(pulseagent.WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("pulseagent.New() error = %v", err)
	}
	if err := agent.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	err = runUntilDone(context.Background(), agent, "", testLogger())
	if err == nil {
		t.Fatal("runUntilDone() expected error for started agent, got nil")
	}
	if !strings.Contains(err.Error(), "failed to start agent") {
		t.Errorf("error = %v", err)
	}
}

func TestRunCheckIn(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == httpsender.CheckInPath {
			hits.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	configPath := writeConfig(t, `
app:
  id: billing
senders:
  - type: http
    url: `+srv.URL+`
`)

	output, err := executeCmd(t, "--log-level", "error", "checkin", "-c", configPath)
	if err != nil {
		t.Fatalf("checkin command error = %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("check-in requests = %d, want 1", hits.Load())
	}
	if !strings.Contains(output, "Check-in sent to 1 sender(s)") {
		t.Errorf("output = %q", output)
	}
}

func TestRunCheckIn_DeliveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	configPath := writeConfig(t, `
senders:
  - type: http
    url: `+srv.URL+`
`)

	_, err := executeCmd(t, "--log-level", "error", "checkin", "-c", configPath)
	if err == nil {
		t.Fatal("checkin command expected error, got nil")
	}
	if !strings.Contains(err.Error(), "check-in failed for 1 sender(s)") {
		t.Errorf("error = %v", err)
	}
}
