package components

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jit-funding-engine/internal/authorization/service"
	"github.com/jit-funding-engine/internal/domain/card"
	"github.com/jit-funding-engine/internal/domain/funding"
	"github.com/jit-funding-engine/internal/domain/ledger"
	"github.com/jit-funding-engine/internal/domain/shared"
)

// ChargerImpl implements the Charger interface
type ChargerImpl struct {
	instrumentRepo funding.Repository
	processor      funding.Processor
	currency       string
	timeout        time.Duration
	logger         *slog.Logger
}

// NewCharger creates a new ChargerImpl. timeout bounds each processor call.
func NewCharger(instrumentRepo funding.Repository, processor funding.Processor, currency string, timeout time.Duration, logger *slog.Logger) service.Charger {
	return &ChargerImpl{
		instrumentRepo: instrumentRepo,
		processor:      processor,
		currency:       currency,
		timeout:        timeout,
		logger:         logger,
	}
}

// Charge draws txn.UserAmount from the owner's default instrument. The default
// flag is read without a lock. Returns funding.ErrNoDefaultInstrument when
// the owner has none, in which case the processor is not called. A processor
// decline is returned as funding.ChargeDeclinedError and an unconfirmed
// charge as funding.ErrChargeTimeout.
func (c *ChargerImpl) Charge(ctx context.Context, resolved *card.Resolved, txn *ledger.Transaction, req *shared.AuthorizationRequest) (funding.ChargeResult, error) {
	instrument, err := c.instrumentRepo.GetDefault(ctx, resolved.OwnerID)
	if err != nil {
		return funding.ChargeResult{}, err
	}

	chargeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	chargeReq := funding.ChargeRequest{
		CustomerRef:     resolved.CustomerRef,
		InstrumentRef:   instrument.ExternalRef,
		AmountCents:     txn.UserAmount,
		Currency:        c.currency,
		IdempotencyKey:  funding.IdempotencyKey(txn.AuthorizationID),
		Description:     fmt.Sprintf("Purchase at %s", req.MerchantLabel()),
		AuthorizationID: txn.AuthorizationID,
	}

	start := time.Now()
	result, err := c.processor.Charge(chargeCtx, chargeReq)
	if err != nil {
		return funding.ChargeResult{}, fmt.Errorf("failed to charge instrument %s: %w", instrument.ExternalRef, err)
	}

	c.logger.Info("Charge attempted",
		"authorization_id", txn.AuthorizationID,
		"outcome", string(result.Outcome),
		"charge_ref", result.ChargeRef,
		"amount", txn.UserAmount,
		"elapsed_ms", time.Since(start).Milliseconds())

	switch result.Outcome {
	case funding.OutcomeSuccess:
		return result, nil
	case funding.OutcomeTimeout:
		return funding.ChargeResult{}, funding.ErrChargeTimeout{ChargeRef: result.ChargeRef}
	default:
		return funding.ChargeResult{}, funding.ChargeDeclinedError{Reason: result.DeclineReason, ChargeRef: result.ChargeRef}
	}
}
