package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jit-funding-engine/internal/domain/card"
	"github.com/jit-funding-engine/internal/domain/funding"
	"github.com/jit-funding-engine/internal/domain/ledger"
	"github.com/jit-funding-engine/internal/domain/shared"
	"github.com/jit-funding-engine/internal/platform/persistence"
	"github.com/jit-funding-engine/internal/pricing"
)

// Decision is the answer returned to the card network
type Decision struct {
	AuthorizationID string
	Approved        bool
	Reason          shared.DeclineReason
	TransactionID   *uuid.UUID // nil when no ledger row was recorded
	Replayed        bool       // true when an earlier outcome was returned
}

type DecisionServiceImpl struct {
	txRunner persistence.TxRunner
	ledger   ledger.Repository
	cache    DecisionCache
	resolver CardResolver
	policy   CardPolicy
	pricing  *pricing.Engine
	charger  Charger
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time

	// recordTimeout is cut from the charge budget and granted to the write
	// that follows it, past the request deadline if need be
	recordTimeout time.Duration
}

func NewDecisionService(
	txRunner persistence.TxRunner,
	ledgerRepo ledger.Repository,
	cache DecisionCache,
	resolver CardResolver,
	policy CardPolicy,
	pricingEngine *pricing.Engine,
	charger Charger,
	recorder Recorder,
	recordTimeout time.Duration,
	logger *slog.Logger,
) *DecisionServiceImpl {
	return &DecisionServiceImpl{
		txRunner:      txRunner,
		ledger:        ledgerRepo,
		cache:         cache,
		resolver:      resolver,
		policy:        policy,
		pricing:       pricingEngine,
		charger:       charger,
		recorder:      recorder,
		logger:        logger,
		now:           time.Now,
		recordTimeout: recordTimeout,
	}
}

// Decide returns the recorded outcome for req.AuthorizationID, deciding and
// recording it first if this is the first delivery. Only validation failures
// are returned as errors; every other failure becomes a decline.
func (s *DecisionServiceImpl) Decide(ctx context.Context, req *shared.AuthorizationRequest) (*Decision, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	logger := s.logger.With("authorization_id", req.AuthorizationID)
	if req.CorrelationID != "" {
		logger = logger.With("correlation_id", req.CorrelationID)
	}

	// 1. Redelivery fast path
	if stored := s.lookup(ctx, logger, req.AuthorizationID); stored != nil {
		logger.Info("Returning recorded decision", "status", string(stored.Status))
		return fromTransaction(stored, true), nil
	}

	// 2. Resolve the card; unknown or unusable cards record nothing
	resolved, err := s.resolver.Resolve(ctx, req.CardRef)
	if err != nil {
		if errors.Is(err, card.ErrCardNotFound{}) {
			logger.Warn("Declining authorization for unknown card", "card_ref", req.CardRef)
			return declined(req.AuthorizationID, shared.DeclineReasonCardNotFound), nil
		}
		logger.Error("Failed to resolve card", "card_ref", req.CardRef, "error", err)
		return declined(req.AuthorizationID, shared.DeclineReasonInternalError), nil
	}
	if ok, reason := resolved.Card.Fundable(s.now()); !ok {
		logger.Warn("Declining authorization for unfundable card", "card_id", resolved.Card.ID.String(), "reason", string(reason))
		return declined(req.AuthorizationID, reason), nil
	}

	// 3. Price
	quote, err := s.pricing.Price(req.MerchantAmount)
	if err != nil {
		return nil, shared.ValidationError{Field: "amount", Reason: err.Error()}
	}

	claim, err := ledger.NewClaim(req.AuthorizationID, resolved.Card.ID, resolved.OwnerID, quote.MerchantAmount, quote.UserAmount)
	if err != nil {
		return nil, shared.ValidationError{Field: "authorization", Reason: err.Error()}
	}
	claim.MerchantName = req.MerchantName
	claim.MerchantCategory = req.MerchantCategory

	// 4. Claim, check, charge and record in one database transaction. The
	// transaction is detached from request cancellation so that an attempted
	// charge is never followed by a rollback that frees the authorization id.
	txCtx, cancel := s.recordingContext(ctx)
	defer cancel()

	var (
		outcome  *ledger.Transaction
		replayed bool
		charged  bool
	)
	err = s.txRunner.ExecuteTx(txCtx, func(tx pgx.Tx) error {
		inserted, stored, err := s.ledger.WithTx(tx).InsertIfAbsent(txCtx, claim)
		if err != nil {
			return err
		}
		if !inserted {
			outcome, replayed = stored, true
			return nil
		}

		reason, err := s.policy.LockAndCheck(txCtx, tx, resolved.Card.ID, req.MerchantAmount)
		if err != nil {
			return err
		}

		if reason != "" {
			logger.Info("Authorization declined by card policy", "reason", string(reason))
			claim.Decline(reason, "")
		} else {
			charged, err = s.fund(ctx, logger, resolved, claim, req)
			if err != nil {
				return err
			}
		}

		if err := s.recorder.Record(txCtx, tx, claim); err != nil {
			return err
		}
		outcome = claim
		return nil
	})
	if err != nil {
		var notFundable ErrCardNotFundable
		if errors.As(err, &notFundable) {
			logger.Warn("Card became unfundable before lock", "reason", string(notFundable.Reason))
			return declined(req.AuthorizationID, notFundable.Reason), nil
		}
		if !charged {
			logger.Error("Failed to record authorization decision", "error", err)
			return declined(req.AuthorizationID, shared.DeclineReasonInternalError), nil
		}

		logger.Error("Failed to record charged authorization, storing decline",
			"charge_ref", claim.ChargeReference(),
			"charge_approved", claim.Approved(),
			"error", err)
		outcome, replayed = s.recordFallback(ctx, logger, claim)
		if outcome == nil {
			return declined(req.AuthorizationID, shared.DeclineReasonChargeTimeout), nil
		}
	}

	if err := s.cache.Set(txCtx, outcome); err != nil {
		logger.Warn("Failed to cache decision", "error", err)
	}

	logger.Info("Authorization decided",
		"status", string(outcome.Status),
		"reason", string(outcome.DeclineReason),
		"replayed", replayed,
		"merchant_amount", outcome.MerchantAmount,
		"user_amount", outcome.UserAmount,
		"profit", outcome.Profit,
	)
	return fromTransaction(outcome, replayed), nil
}

// fund charges the owner and finalizes claim from the outcome. charged reports
// whether the processor may have been reached.
func (s *DecisionServiceImpl) fund(ctx context.Context, logger *slog.Logger, resolved *card.Resolved, claim *ledger.Transaction, req *shared.AuthorizationRequest) (charged bool, err error) {
	chargeCtx, cancel := s.chargeContext(ctx)
	defer cancel()
	if chargeCtx.Err() != nil {
		logger.Warn("No time left to charge, declining")
		claim.Decline(shared.DeclineReasonChargeTimeout, "")
		return false, nil
	}

	result, err := s.charger.Charge(chargeCtx, resolved, claim, req)
	var declinedErr funding.ChargeDeclinedError
	var timeoutErr funding.ErrChargeTimeout
	switch {
	case err == nil:
		return true, claim.Approve(result.ChargeRef)
	case errors.Is(err, funding.ErrNoDefaultInstrument):
		logger.Warn("Declining authorization without funding instrument", "account_id", resolved.OwnerID.String())
		claim.Decline(shared.DeclineReasonNoFundingInstrument, "")
		return false, nil
	case errors.As(err, &timeoutErr):
		logger.Warn("Charge not confirmed in time, declining", "charge_ref", timeoutErr.ChargeRef)
		claim.Decline(shared.DeclineReasonChargeTimeout, timeoutErr.ChargeRef)
	case errors.As(err, &declinedErr):
		logger.Info("Charge declined", "charge_ref", declinedErr.ChargeRef, "processor_reason", declinedErr.Reason)
		claim.Decline(shared.DeclineReasonChargeDeclined, declinedErr.ChargeRef)
	default:
		logger.Error("Charge attempt failed", "error", err)
		claim.Decline(shared.DeclineReasonChargeDeclined, "")
	}
	return true, nil
}

// recordFallback stores a declined row for a claim whose transaction failed
// after a charge, so redeliveries replay the decline instead of charging again.
// The outbox message is dropped if it cannot be written alongside the row.
// Returns nil when nothing could be stored.
func (s *DecisionServiceImpl) recordFallback(ctx context.Context, logger *slog.Logger, claim *ledger.Transaction) (*ledger.Transaction, bool) {
	fallback := *claim
	if fallback.Approved() || fallback.DeclineReason == shared.DeclineReasonPending {
		fallback.Decline(shared.DeclineReasonChargeTimeout, "")
	}

	var (
		stored   *ledger.Transaction
		replayed bool
	)
	write := func(withOutbox bool) error {
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.recordTimeout)
		defer cancel()

		return s.txRunner.ExecuteTx(recordCtx, func(tx pgx.Tx) error {
			inserted, existing, err := s.ledger.WithTx(tx).InsertIfAbsent(recordCtx, &fallback)
			if err != nil {
				return err
			}
			if !inserted {
				stored, replayed = existing, true
				return nil
			}
			stored, replayed = &fallback, false
			if withOutbox {
				return s.recorder.Record(recordCtx, tx, &fallback)
			}
			return nil
		})
	}

	err := write(true)
	if err != nil {
		logger.Warn("Failed to record decline with outbox message, retrying without", "error", err)
		err = write(false)
	}
	if err != nil {
		logger.Error("Failed to record decline after charge", "charge_ref", claim.ChargeReference(), "error", err)
		return nil, false
	}
	return stored, replayed
}

// recordingContext keeps ctx values but not its cancellation. Its deadline is
// recordTimeout past the request deadline.
func (s *DecisionServiceImpl) recordingContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(detached, deadline.Add(s.recordTimeout))
	}
	return context.WithCancel(detached)
}

// chargeContext ends recordTimeout before the request deadline
func (s *DecisionServiceImpl) chargeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(ctx, deadline.Add(-s.recordTimeout))
	}
	return context.WithCancel(ctx)
}

// lookup returns a finalized row for authorizationID from the cache or the ledger
func (s *DecisionServiceImpl) lookup(ctx context.Context, logger *slog.Logger, authorizationID string) *ledger.Transaction {
	cached, found, err := s.cache.Get(ctx, authorizationID)
	if err != nil {
		logger.Warn("Decision cache unavailable", "error", err)
	}
	if found {
		return cached
	}

	stored, err := s.ledger.GetByAuthorizationID(ctx, authorizationID)
	if err != nil {
		if !errors.Is(err, ledger.ErrTransactionNotFound{}) {
			logger.Warn("Ledger lookup failed, continuing to claim", "error", err)
		}
		return nil
	}
	if err := s.cache.Set(ctx, stored); err != nil {
		logger.Warn("Failed to cache decision", "error", err)
	}
	return stored
}

func fromTransaction(txn *ledger.Transaction, replayed bool) *Decision {
	id := txn.ID
	return &Decision{
		AuthorizationID: txn.AuthorizationID,
		Approved:        txn.Approved(),
		Reason:          txn.DeclineReason,
		TransactionID:   &id,
		Replayed:        replayed,
	}
}

func declined(authorizationID string, reason shared.DeclineReason) *Decision {
	return &Decision{
		AuthorizationID: authorizationID,
		Approved:        false,
		Reason:          reason,
	}
}
