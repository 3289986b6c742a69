package topic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes to Kafka (or any Kafka-compatible broker such as
// Redpanda). The topic is chosen per message.
type KafkaPublisher struct {
	writer messageWriter
	now    func() time.Time
}

// NewKafkaPublisher creates a publisher for the comma-separated broker list.
// Writes wait for acknowledgement from all in-sync replicas.
func NewKafkaPublisher(brokers string) (*KafkaPublisher, error) {
	var addrs []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}

	return newKafkaPublisher(&kafka.Writer{
		Addr:         kafka.TCP(addrs...),
		RequiredAcks: kafka.RequireAll,
		Balancer:     &kafka.LeastBytes{},
	}), nil
}

func newKafkaPublisher(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w, now: time.Now}
}

// Publish implements [Publisher].
func (p *KafkaPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Value: payload,
		Time:  p.now(),
	})
}

// Close flushes pending writes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
