// Package topic delivers agent documents to a pub/sub topic.
//
// Each document is wrapped in an [Envelope] carrying its message type and a
// timestamp, encoded as JSON and handed to a [Publisher]. Publishers exist
// for Kafka ([KafkaPublisher]) and Redis pub/sub ([RedisPublisher]).
package topic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jpalmerr/pulseagent"
)

var (
	// ErrTopicNotSet is returned when no topic is configured for a message type.
	ErrTopicNotSet = errors.New("topic not set")

	// ErrPublisherNotSet is returned when the sender has no publisher.
	ErrPublisherNotSet = errors.New("publisher not set")
)

// Publisher writes one encoded message to a named topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Envelope is the wire format of every published message.
type Envelope struct {
	MessageType string               `json:"messageType"`
	TS          int64                `json:"ts"`
	Data        *pulseagent.Document `json:"data"`
}

// Time returns TS as a [time.Time].
func (e Envelope) Time() time.Time {
	return time.UnixMilli(e.TS)
}

// Sender is a [pulseagent.Sender] that publishes envelopes to a topic.
type Sender struct {
	publisher Publisher
	topic     string
	topics    map[pulseagent.MessageType]string
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a [Sender].
type Option func(*Sender)

// WithTopicFor routes messages of type mt to topic instead of the default.
func WithTopicFor(mt pulseagent.MessageType, topic string) Option {
	return func(s *Sender) {
		s.topics[mt] = topic
	}
}

// WithLogger sets the logger used for per-message debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sender) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a [Sender] publishing to topic through p.
//
// Neither argument is checked here; a missing publisher or topic surfaces as
// a delivery error on every send, which the agent logs.
func New(p Publisher, topic string, opts ...Option) *Sender {
	s := &Sender{
		publisher: p,
		topic:     topic,
		topics:    make(map[pulseagent.MessageType]string),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TopicFor returns the topic messages of type mt are published to.
func (s *Sender) TopicFor(mt pulseagent.MessageType) (string, error) {
	if t := s.topics[mt]; t != "" {
		return t, nil
	}
	if s.topic == "" {
		return "", ErrTopicNotSet
	}
	return s.topic, nil
}

// String identifies the sender in agent logs.
func (s *Sender) String() string {
	return fmt.Sprintf("topic %s (%T)", s.topic, s.publisher)
}

// SendCheckIn implements [pulseagent.Sender].
func (s *Sender) SendCheckIn(ctx context.Context, doc *pulseagent.Document) error {
	return s.send(ctx, pulseagent.MessageCheckIn, doc)
}

// SendAppEvent implements [pulseagent.Sender].
func (s *Sender) SendAppEvent(ctx context.Context, doc *pulseagent.Document) error {
	return s.send(ctx, pulseagent.MessageAppEvent, doc)
}

// SendThreadDump implements [pulseagent.Sender].
func (s *Sender) SendThreadDump(ctx context.Context, doc *pulseagent.Document) error {
	return s.send(ctx, pulseagent.MessageThreadDump, doc)
}

// SendAppConfigDump implements [pulseagent.Sender].
func (s *Sender) SendAppConfigDump(ctx context.Context, doc *pulseagent.Document) error {
	return s.send(ctx, pulseagent.MessageAppConfigDump, doc)
}

func (s *Sender) send(ctx context.Context, mt pulseagent.MessageType, doc *pulseagent.Document) error {
	if s.publisher == nil {
		return ErrPublisherNotSet
	}
	topic, err := s.TopicFor(mt)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(Envelope{
		MessageType: mt.String(),
		TS:          s.now().UnixMilli(),
		Data:        doc,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s envelope: %w", mt, err)
	}

	s.logger.Debug("publishing", "message_type", mt.String(), "topic", topic, "bytes", len(payload))

	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Close closes the publisher if it implements [io.Closer].
func (s *Sender) Close() error {
	if c, ok := s.publisher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
