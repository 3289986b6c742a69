package store

import (
	"time"

	"github.com/jpalmerr/pulseagent"
)

// Record is one document received by the collector.
type Record struct {
	// MessageType is the kind of report (APP_CHECK_IN, APP_EVENT, ...).
	MessageType string `json:"message_type"`

	// Host and AppID identify the reporting instance. Either may be empty
	// when the agent could not determine it.
	Host  string `json:"host"`
	AppID string `json:"app_id"`

	// ReceivedAt is when the collector accepted the document.
	ReceivedAt time.Time `json:"received_at"`

	// Document is the payload exactly as the agent sent it.
	Document *pulseagent.Document `json:"document"`
}

// Key identifies the reporting instance a record belongs to.
func (r Record) Key() string {
	return r.Host + "/" + r.AppID
}

// Store defines the interface for storing and subscribing to received
// documents.
//
// Store implementations must be safe for concurrent access. The pub/sub
// mechanism lets the collector stream incoming documents to clients
// (e.g., via Server-Sent Events).
type Store interface {
	// Add records a document and notifies all subscribers. Check-ins are
	// kept per instance, so a later check-in replaces an earlier one.
	Add(rec Record)

	// CheckIns returns the latest check-in of every known instance, sorted
	// by key. The returned slice is a snapshot.
	CheckIns() []Record

	// Counts returns how many documents of each message type were added.
	Counts() map[string]int

	// Subscribe returns a channel that receives every added record.
	// The returned channel has a buffer; slow consumers may miss records.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Record

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Record)
}
