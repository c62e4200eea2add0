package service

import (
	"context"
	"log/slog"

	"github.com/jit-funding-engine/internal/domain/shared"
	"github.com/jit-funding-engine/internal/platform/messaging/producers"
	reconciliation "github.com/jit-funding-engine/internal/reconciliation/service"
)

// OutcomeDispatcherImpl publishes charge failures to Kafka and reconciles
// inline when the broker is unavailable
type OutcomeDispatcherImpl struct {
	publisher producers.ChargeOutcomePublisher
	fallback  reconciliation.ReconciliationService
	logger    *slog.Logger
}

// NewOutcomeDispatcher creates a dispatcher. publisher may be nil, in which
// case every event is reconciled inline.
func NewOutcomeDispatcher(logger *slog.Logger, publisher producers.ChargeOutcomePublisher, fallback reconciliation.ReconciliationService) OutcomeDispatcher {
	return &OutcomeDispatcherImpl{
		publisher: publisher,
		fallback:  fallback,
		logger:    logger,
	}
}

func (d *OutcomeDispatcherImpl) Dispatch(ctx context.Context, event *shared.ChargeOutcomeEvent) error {
	logger := d.logger.With("charge_ref", event.ChargeRef, "event_id", event.EventID)

	if d.publisher != nil {
		err := d.publisher.Publish(ctx, event)
		if err == nil {
			logger.Info("Charge outcome published", "event_type", event.EventType)
			return nil
		}
		logger.Warn("Failed to publish charge outcome, reconciling inline", "error", err)
	}

	outcome, err := d.fallback.Reconcile(ctx, event)
	if err != nil {
		logger.Error("Inline reconciliation failed", "error", err)
		return err
	}
	logger.Info("Charge outcome reconciled inline", "outcome", string(outcome))
	return nil
}
