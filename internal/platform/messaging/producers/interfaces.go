package producers

import (
	"context"

	"github.com/jit-funding-engine/internal/domain/shared"
	"github.com/segmentio/kafka-go"
)

// ChargeOutcomePublisher hands charge failure events to the reconciler
type ChargeOutcomePublisher interface {
	Publish(ctx context.Context, event *shared.ChargeOutcomeEvent) error
	Close() error
}

// DeadLetterPublisher handles publishing messages to a Dead Letter Queue
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, original kafka.Message, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// topicAdmin is the subset of *kafka.Conn used to provision topics
type topicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}
