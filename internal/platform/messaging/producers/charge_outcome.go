package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jit-funding-engine/internal/config"
	"github.com/jit-funding-engine/internal/domain/shared"
	"github.com/segmentio/kafka-go"
)

// CorrelationHeader carries the inbound request's correlation id across Kafka
const CorrelationHeader = "correlation-id"

// ChargeOutcomeProducer publishes charge failure events keyed by charge reference,
// so every event about one charge lands on the same partition in order.
type ChargeOutcomeProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewChargeOutcomeProducer ensures the reconciliation topic exists and opens a
// synchronous writer. Writes are synchronous so a broker failure is visible to
// the caller, which then reconciles inline.
func NewChargeOutcomeProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*ChargeOutcomeProducer, error) {
	if cfg.ReconciliationTopic == "" {
		return nil, fmt.Errorf("kafka reconciliation topic is not configured")
	}

	spec := topicSpec{
		Name:              cfg.ReconciliationTopic,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if err := dialAndEnsureTopic(cfg.Brokers, spec, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure reconciliation topic %s exists: %w", cfg.ReconciliationTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.ReconciliationTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
		MaxAttempts:  3,
	}

	return &ChargeOutcomeProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.ReconciliationTopic,
	}, nil
}

// Publish writes one event. The charge reference is the message key.
func (p *ChargeOutcomeProducer) Publish(ctx context.Context, event *shared.ChargeOutcomeEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal charge outcome event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.ChargeRef),
		Value: value,
		Headers: []kafka.Header{
			{Key: CorrelationHeader, Value: []byte(event.CorrelationID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish charge outcome event",
			"topic", p.topic,
			"charge_ref", event.ChargeRef,
			"event_id", event.EventID,
			"error", err,
		)
		return fmt.Errorf("failed to publish charge outcome to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published charge outcome event",
		"topic", p.topic,
		"charge_ref", event.ChargeRef,
		"event_id", event.EventID,
	)
	return nil
}

func (p *ChargeOutcomeProducer) Close() error {
	p.logger.Info("Closing charge outcome producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
