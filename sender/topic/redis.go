package topic

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// redisClient is the part of *redis.Client the publisher uses.
type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisPublisher publishes to Redis pub/sub; the topic is the channel name.
type RedisPublisher struct {
	client redisClient
}

// NewRedisPublisher creates a publisher from a redis:// URL, for example
// redis://localhost:6379/0.
func NewRedisPublisher(url string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return &RedisPublisher{client: redis.NewClient(opts)}, nil
}

// Publish implements [Publisher]. Having no subscribers is not an error.
func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	return p.client.Publish(ctx, topic, payload).Err()
}

// Close closes the underlying client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
