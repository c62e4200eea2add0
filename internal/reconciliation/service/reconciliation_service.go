package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jit-funding-engine/internal/domain/ledger"
	"github.com/jit-funding-engine/internal/domain/outbox"
	"github.com/jit-funding-engine/internal/domain/shared"
	"github.com/jit-funding-engine/internal/platform/persistence"
)

// ReconciliationServiceImpl implements the ReconciliationService interface
type ReconciliationServiceImpl struct {
	txRunner   persistence.TxRunner
	ledgerRepo ledger.Repository
	outboxRepo outbox.Repository
	cache      CacheInvalidator
	logger     *slog.Logger
}

func NewReconciliationService(
	txRunner persistence.TxRunner,
	ledgerRepo ledger.Repository,
	outboxRepo outbox.Repository,
	cache CacheInvalidator,
	logger *slog.Logger,
) *ReconciliationServiceImpl {
	return &ReconciliationServiceImpl{
		txRunner:   txRunner,
		ledgerRepo: ledgerRepo,
		outboxRepo: outboxRepo,
		cache:      cache,
		logger:     logger,
	}
}

// Reconcile demotes the approved row holding event.ChargeRef. A row that is
// already declined, or no row at all, is acknowledged without change.
func (s *ReconciliationServiceImpl) Reconcile(ctx context.Context, event *shared.ChargeOutcomeEvent) (Outcome, error) {
	if err := event.Validate(); err != nil {
		return "", err
	}

	logger := s.logger.With("charge_ref", event.ChargeRef, "event_type", event.EventType)
	if event.CorrelationID != "" {
		logger = logger.With("correlation_id", event.CorrelationID)
	}

	var (
		outcome Outcome
		demoted *ledger.Transaction
	)
	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		ledgerTx := s.ledgerRepo.WithTx(tx)

		changed, row, err := ledgerTx.DemoteIfApproved(ctx, event.ChargeRef, shared.DeclineReasonChargeFailedLater)
		if err != nil {
			return err
		}
		if changed {
			message, err := outbox.NewMessage(row)
			if err != nil {
				return fmt.Errorf("failed to create outbox message payload: %w", err)
			}
			if err := s.outboxRepo.WithTx(tx).Create(ctx, message); err != nil {
				return fmt.Errorf("failed to create outbox message: %w", err)
			}
			outcome, demoted = OutcomeDemoted, row
			return nil
		}

		_, err = ledgerTx.GetByChargeRef(ctx, event.ChargeRef)
		switch {
		case errors.Is(err, ledger.ErrTransactionNotFound{}):
			outcome = OutcomeOrphan
		case err != nil:
			return err
		default:
			outcome = OutcomeAlreadyDeclined
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to reconcile charge outcome", "error", err)
		return "", fmt.Errorf("failed to reconcile charge %s: %w", event.ChargeRef, err)
	}

	switch outcome {
	case OutcomeDemoted:
		if err := s.cache.Delete(ctx, demoted.AuthorizationID); err != nil {
			logger.Warn("Cached decision not invalidated", "authorization_id", demoted.AuthorizationID, "error", err)
		}
		logger.Info("Demoted approved transaction after charge failure",
			"authorization_id", demoted.AuthorizationID,
			"transaction_id", demoted.ID.String(),
			"failure_reason", event.FailureReason)
	case OutcomeOrphan:
		logger.Warn("Charge outcome matches no transaction, acknowledging")
	default:
		logger.Info("Transaction already declined, nothing to reconcile")
	}
	return outcome, nil
}
