package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jit-funding-engine/internal/domain/ledger"
	"github.com/jit-funding-engine/internal/domain/outbox"
	"github.com/jit-funding-engine/internal/domain/shared"
)

// ActivityPublisher projects outbox snapshots into the activity read model
type ActivityPublisher interface {
	PublishToActivity(ctx context.Context, message *outbox.Message) error
}

// ActivityPublisherImpl implements ActivityPublisher
type ActivityPublisherImpl struct {
	outboxRepo   outbox.Repository
	activityRepo ledger.ActivityRepository
	logger       *slog.Logger
}

// NewActivityPublisher creates a new publisher
func NewActivityPublisher(
	outboxRepo outbox.Repository,
	activityRepo ledger.ActivityRepository,
	logger *slog.Logger,
) ActivityPublisher {
	return &ActivityPublisherImpl{
		outboxRepo:   outboxRepo,
		activityRepo: activityRepo,
		logger:       logger,
	}
}

// PublishToActivity upserts the snapshot and marks the message processed.
// Snapshots older than the projected document are ignored by the upsert.
func (p *ActivityPublisherImpl) PublishToActivity(ctx context.Context, message *outbox.Message) error {
	txn, err := message.GetTransaction()
	if err != nil {
		p.logger.Error("Failed to unmarshal transaction snapshot from outbox payload",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger.With("outbox_id", message.ID, "transaction_id", txn.ID.String())

	if err := p.activityRepo.Upsert(ctx, txn); err != nil {
		logger.Error("Failed to project transaction into activity read model", "error", err)
		return fmt.Errorf("failed to project transaction %s: %w", txn.ID.String(), err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED", "error", err)
		return fmt.Errorf("projection of %s OK, but failed to mark outbox %d as PROCESSED: %w", txn.ID.String(), message.ID, err)
	}

	logger.Debug("Outbox message projected and marked as PROCESSED", "status", string(txn.Status))
	return nil
}
