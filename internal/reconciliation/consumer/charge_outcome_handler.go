package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jit-funding-engine/internal/domain/shared"
	"github.com/jit-funding-engine/internal/platform/messaging/producers"
	"github.com/jit-funding-engine/internal/reconciliation/service"
	"github.com/segmentio/kafka-go"
)

// ChargeOutcomeHandler handles charge outcome messages from Kafka
type ChargeOutcomeHandler struct {
	reconciliationService service.ReconciliationService
	producer              producers.DeadLetterPublisher
	logger                *slog.Logger
}

// NewChargeOutcomeHandler creates a new handler. producer may be nil when no
// dead letter topic is configured.
func NewChargeOutcomeHandler(
	logger *slog.Logger,
	reconciliationService service.ReconciliationService,
	producer producers.DeadLetterPublisher,
) *ChargeOutcomeHandler {
	return &ChargeOutcomeHandler{
		reconciliationService: reconciliationService,
		producer:              producer,
		logger:                logger,
	}
}

// HandleMessage reconciles one message. Failures are dead-lettered and
// acknowledged; an error is only returned when the dead letter write fails,
// leaving the offset uncommitted.
func (h *ChargeOutcomeHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var event shared.ChargeOutcomeEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return h.deadLetter(ctx, h.logger, msg, fmt.Sprintf("undecodable charge outcome: %s", err.Error()))
	}

	logger := h.logger.With("charge_ref", event.ChargeRef, "event_id", event.EventID)
	if event.CorrelationID != "" {
		logger = logger.With("correlation_id", event.CorrelationID)
	}

	outcome, err := h.reconciliationService.Reconcile(ctx, &event)
	if err != nil {
		return h.deadLetter(ctx, logger, msg, fmt.Sprintf("reconciliation failed: %s", err.Error()))
	}

	logger.Info("Charge outcome reconciled", "outcome", string(outcome))
	return nil
}

func (h *ChargeOutcomeHandler) deadLetter(ctx context.Context, logger *slog.Logger, msg kafka.Message, reason string) error {
	logger.Error("Dead-lettering charge outcome message",
		"partition", msg.Partition,
		"offset", msg.Offset,
		"key", string(msg.Key),
		"reason", reason,
	)

	if h.producer == nil {
		logger.Warn("No dead letter queue configured, dropping message", "offset", msg.Offset)
		return nil
	}

	if err := h.producer.PublishToDLQ(ctx, msg, reason); err != nil {
		if errors.Is(err, producers.ErrDLQDisabled) {
			logger.Warn("Dead letter queue disabled, dropping message", "offset", msg.Offset)
			return nil
		}
		return fmt.Errorf("failed to dead-letter message at offset %d: %w", msg.Offset, err)
	}
	return nil
}
