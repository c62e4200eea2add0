package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jit-funding-engine/internal/authorization/service"
	"github.com/jit-funding-engine/internal/domain/ledger"
	"github.com/jit-funding-engine/internal/domain/outbox"
)

// RecorderImpl implements the Recorder interface
type RecorderImpl struct {
	ledgerRepo ledger.Repository
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

// NewRecorder creates a new RecorderImpl
func NewRecorder(ledgerRepo ledger.Repository, outboxRepo outbox.Repository, logger *slog.Logger) service.Recorder {
	return &RecorderImpl{
		ledgerRepo: ledgerRepo,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Record finalizes the claimed row and queues its snapshot for the read model
func (r *RecorderImpl) Record(ctx context.Context, tx pgx.Tx, txn *ledger.Transaction) error {
	if err := r.ledgerRepo.WithTx(tx).Finalize(ctx, txn); err != nil {
		return fmt.Errorf("failed to finalize transaction for %s: %w", txn.AuthorizationID, err)
	}

	message, err := outbox.NewMessage(txn)
	if err != nil {
		r.logger.Error("Failed to create outbox message payload",
			"authorization_id", txn.AuthorizationID,
			"error", err)
		return fmt.Errorf("failed to create outbox message payload for %s: %w", txn.AuthorizationID, err)
	}

	if err := r.outboxRepo.WithTx(tx).Create(ctx, message); err != nil {
		return fmt.Errorf("failed to create outbox message for %s: %w", txn.AuthorizationID, err)
	}

	r.logger.Debug("Recorded transaction",
		"authorization_id", txn.AuthorizationID,
		"transaction_id", txn.ID.String(),
		"outbox_id", message.ID)
	return nil
}
