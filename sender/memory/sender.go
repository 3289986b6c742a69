// Package memory provides an in-process [pulseagent.Sender].
//
// It records a copy of every delivered document and fans deliveries out to
// subscribers. It is used in tests and by applications that want to observe
// their own reports.
package memory

import (
	"context"
	"sync"

	"github.com/jpalmerr/pulseagent"
)

const subscriberBuffer = 100

// Message is one delivered document.
type Message struct {
	Type     pulseagent.MessageType
	Document *pulseagent.Document
}

// Sender is a [pulseagent.Sender] that keeps documents in memory.
//
// Subscribers receive messages via buffered channels (buffer size 100).
// Sends are non-blocking; if a subscriber's buffer is full, the message is
// dropped for that subscriber.
type Sender struct {
	mu       sync.RWMutex
	messages []Message
	err      error

	subMu       sync.RWMutex
	subscribers map[chan Message]struct{}
}

// New creates an empty [Sender].
func New() *Sender {
	return &Sender{
		subscribers: make(map[chan Message]struct{}),
	}
}

// String identifies the sender in agent logs.
func (s *Sender) String() string {
	return "memory"
}

// SendCheckIn implements [pulseagent.Sender].
func (s *Sender) SendCheckIn(ctx context.Context, doc *pulseagent.Document) error {
	return s.record(pulseagent.MessageCheckIn, doc)
}

// SendAppEvent implements [pulseagent.Sender].
func (s *Sender) SendAppEvent(ctx context.Context, doc *pulseagent.Document) error {
	return s.record(pulseagent.MessageAppEvent, doc)
}

// SendThreadDump implements [pulseagent.Sender].
func (s *Sender) SendThreadDump(ctx context.Context, doc *pulseagent.Document) error {
	return s.record(pulseagent.MessageThreadDump, doc)
}

// SendAppConfigDump implements [pulseagent.Sender].
func (s *Sender) SendAppConfigDump(ctx context.Context, doc *pulseagent.Document) error {
	return s.record(pulseagent.MessageAppConfigDump, doc)
}

// SetError makes every following send fail with err without recording.
// A nil err restores normal operation.
func (s *Sender) SetError(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *Sender) record(mt pulseagent.MessageType, doc *pulseagent.Document) error {
	// the agent shares doc between senders
	msg := Message{Type: mt, Document: doc.Clone()}

	s.mu.Lock()
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return err
	}
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	s.notifySubscribers(msg)
	return nil
}

// Messages returns every recorded message in delivery order.
func (s *Sender) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Message(nil), s.messages...)
}

// Documents returns the recorded documents of type mt in delivery order.
func (s *Sender) Documents(mt pulseagent.MessageType) []*pulseagent.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []*pulseagent.Document
	for _, m := range s.messages {
		if m.Type == mt {
			docs = append(docs, m.Document)
		}
	}
	return docs
}

// Reset forgets every recorded message.
func (s *Sender) Reset() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
}

// Subscribe returns a channel that receives every message recorded from now
// on. Caller must call [Sender.Unsubscribe] when done.
func (s *Sender) Subscribe() <-chan Message {
	ch := make(chan Message, subscriberBuffer)

	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel. Safe to call
// multiple times.
func (s *Sender) Unsubscribe(ch <-chan Message) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for subCh := range s.subscribers {
		if subCh == ch {
			delete(s.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// Close unsubscribes everyone.
func (s *Sender) Close() error {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	return nil
}

func (s *Sender) notifySubscribers(msg Message) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for ch := range s.subscribers {
		select {
		case ch <- msg:
		default:
			// subscriber is slow, drop the message
		}
	}
}
