package pulseagent

import "context"

// MessageType identifies the kind of document being delivered.
type MessageType string

const (
	MessageCheckIn       MessageType = "APP_CHECK_IN"
	MessageAppEvent      MessageType = "APP_EVENT"
	MessageThreadDump    MessageType = "THREAD_DUMP"
	MessageAppConfigDump MessageType = "APP_CONFIG_DUMP"
)

// String returns the wire name of the message type.
func (m MessageType) String() string {
	return string(m)
}

// Sender delivers finished documents to one destination (an HTTP endpoint,
// a pub/sub topic, memory).
//
// Each method either completes or returns a transport-specific error. The
// agent treats every error the same way: it is logged and delivery continues
// with the next sender. Nothing is retried within a single report.
//
// The document is shared between all senders and must not be modified.
// Implementations are responsible for bounding their own latency; a sender
// that blocks stalls the report that called it.
type Sender interface {
	SendCheckIn(ctx context.Context, doc *Document) error
	SendAppEvent(ctx context.Context, doc *Document) error
	SendThreadDump(ctx context.Context, doc *Document) error
	SendAppConfigDump(ctx context.Context, doc *Document) error
}

// send routes doc to the method of s matching mt.
func send(ctx context.Context, s Sender, mt MessageType, doc *Document) error {
	switch mt {
	case MessageCheckIn:
		return s.SendCheckIn(ctx, doc)
	case MessageAppEvent:
		return s.SendAppEvent(ctx, doc)
	case MessageThreadDump:
		return s.SendThreadDump(ctx, doc)
	case MessageAppConfigDump:
		return s.SendAppConfigDump(ctx, doc)
	default:
		return errUnknownMessageType(mt)
	}
}
