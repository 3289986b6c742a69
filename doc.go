// Package pulseagent provides an embeddable heartbeat agent that reports the
// identity and health of a running application to one or more collectors.
//
// pulseagent is designed as an SDK-first library. An [Agent] assembles
// status documents, enriches them through a chain of [Decorator] values and
// fans them out to every registered [Sender]. The same documents can be
// produced by the standalone pulseagent binary from a YAML config file (see
// the config package).
//
// # Quick Start
//
// Create a sender, build an agent and start the periodic check-in:
//
//	sender, _ := httpsender.New("https://collector.internal")
//	agent, _ := pulseagent.New(
//	    pulseagent.WithSender(sender),
//	    pulseagent.WithAppMetadataProvider(&pulseagent.StaticMetadata{App: "billing", Ver: "1.2.0"}),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	_ = agent.Start(ctx) // returns immediately
//	defer agent.Close()
//
// # Reports
//
// Four kinds of documents are delivered, one per [MessageType]:
//
//   - [Agent.ReportCheckIn]: decorated status document, also sent periodically
//   - [Agent.ReportAppEvent]: caller-built lifecycle event, not decorated
//   - [Agent.ReportThreadDump]: goroutine dump, gzip and base64 encoded
//   - [Agent.ReportAppConfigDump]: configuration entries with secrets redacted
//
// Delivery errors are never returned: a failing sender is logged and skipped.
// Only on-demand reports whose payload cannot be formed return an error,
// marked [ErrDataUnavailable].
//
// # Documents
//
// Every delivered [Document] holds top-level names made of letters, digits
// and underscores (starting with a letter) and scalar values only.
// [ScrubNonConforming] enforces this after the decorator chain runs.
//
// # Transports
//
// Senders live in their own packages:
//
//   - sender/httpsender: JSON over HTTP POST to a collector
//   - sender/topic: JSON envelopes published to Kafka or Redis
//   - sender/memory: in-process capture for tests and embedding
//
// # Architecture
//
// The internal packages are not part of the public API and may change
// without notice:
//
//   - internal/schedule: Fixed-rate task scheduling with panic isolation
//   - internal/store: In-memory storage with pub/sub for received documents
//   - internal/collector: HTTP collector with a status API and Server-Sent Events
package pulseagent
