package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jit-funding-engine/internal/authorization/service"
	"github.com/jit-funding-engine/internal/domain/card"
	"github.com/jit-funding-engine/internal/domain/ledger"
	"github.com/jit-funding-engine/internal/domain/shared"
)

// CardPolicyImpl implements the CardPolicy interface
type CardPolicyImpl struct {
	cardRepo   card.Repository
	ledgerRepo ledger.Repository
	logger     *slog.Logger
	now        func() time.Time
}

// NewCardPolicy creates a new CardPolicyImpl
func NewCardPolicy(cardRepo card.Repository, ledgerRepo ledger.Repository, logger *slog.Logger) service.CardPolicy {
	return &CardPolicyImpl{
		cardRepo:   cardRepo,
		ledgerRepo: ledgerRepo,
		logger:     logger,
		now:        time.Now,
	}
}

// LockAndCheck takes the card row lock, which serializes concurrent
// authorizations on one card, then applies single-use and monthly limits
// against approved rows.
func (p *CardPolicyImpl) LockAndCheck(ctx context.Context, tx pgx.Tx, cardID uuid.UUID, merchantAmount int64) (shared.DeclineReason, error) {
	now := p.now()

	locked, err := p.cardRepo.WithTx(tx).LockByID(ctx, cardID)
	if err != nil {
		if errors.Is(err, card.ErrCardNotFound{}) {
			return "", service.ErrCardNotFundable{Reason: shared.DeclineReasonCardNotFound}
		}
		return "", fmt.Errorf("failed to lock card %s: %w", cardID.String(), err)
	}
	if ok, reason := locked.Fundable(now); !ok {
		return "", service.ErrCardNotFundable{Reason: reason}
	}

	ledgerTx := p.ledgerRepo.WithTx(tx)

	if locked.Type == card.TypeSingleUse {
		count, err := ledgerTx.CountApprovedByCard(ctx, cardID)
		if err != nil {
			return "", fmt.Errorf("failed to count approvals for card %s: %w", cardID.String(), err)
		}
		if count > 0 {
			return shared.DeclineReasonSingleUseExhausted, nil
		}
	}

	if locked.SpendingLimit != nil {
		spent, err := ledgerTx.SumApprovedByCardSince(ctx, cardID, card.MonthStart(now))
		if err != nil {
			return "", fmt.Errorf("failed to sum spend for card %s: %w", cardID.String(), err)
		}
		if spent+merchantAmount > *locked.SpendingLimit {
			p.logger.Info("Monthly spending limit reached",
				"card_id", cardID.String(),
				"spent", spent,
				"limit", *locked.SpendingLimit,
				"amount", merchantAmount)
			return shared.DeclineReasonSpendingLimit, nil
		}
	}

	return "", nil
}
