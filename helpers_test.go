package pulseagent

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// bufferLogger returns a debug-level logger writing to buf.
func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type delivery struct {
	mt  MessageType
	doc *Document
}

// recordingSender records every delivery and optionally fails or panics.
type recordingSender struct {
	mu         sync.Mutex
	deliveries []delivery
	err        error
	panicMsg   string
}

func (s *recordingSender) record(mt MessageType, doc *Document) error {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.deliveries = append(s.deliveries, delivery{mt: mt, doc: doc})
	return nil
}

func (s *recordingSender) SendCheckIn(_ context.Context, doc *Document) error {
	return s.record(MessageCheckIn, doc)
}

func (s *recordingSender) SendAppEvent(_ context.Context, doc *Document) error {
	return s.record(MessageAppEvent, doc)
}

func (s *recordingSender) SendThreadDump(_ context.Context, doc *Document) error {
	return s.record(MessageThreadDump, doc)
}

func (s *recordingSender) SendAppConfigDump(_ context.Context, doc *Document) error {
	return s.record(MessageAppConfigDump, doc)
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.deliveries)
}

func (s *recordingSender) last() delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deliveries[len(s.deliveries)-1]
}
