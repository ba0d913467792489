package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessagePublisher publishes JSON-encoded events to a topic. The wallet
// event producer implements it; the notification sink consumes it.
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher parks messages that cannot be processed so the
// consumer can keep draining its topic
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalValue []byte, reason string) error
	Close() error
}

// KafkaWriter is the subset of kafka.Writer the producers use
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
