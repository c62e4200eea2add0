package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jit-funding-engine/internal/authorization/service"
	"github.com/jit-funding-engine/internal/domain/card"
)

// CardResolverImpl implements the CardResolver interface
type CardResolverImpl struct {
	cardRepo card.Repository
	logger   *slog.Logger
}

// NewCardResolver creates a new CardResolverImpl
func NewCardResolver(cardRepo card.Repository, logger *slog.Logger) service.CardResolver {
	return &CardResolverImpl{
		cardRepo: cardRepo,
		logger:   logger,
	}
}

// Resolve loads the card and the funding customer of its owner. A card whose
// owning account is missing is reported as not found.
func (r *CardResolverImpl) Resolve(ctx context.Context, externalRef string) (*card.Resolved, error) {
	vc, err := r.cardRepo.GetByExternalRef(ctx, externalRef)
	if err != nil {
		return nil, err
	}

	acc, err := r.cardRepo.GetAccountByID(ctx, vc.AccountID)
	if err != nil {
		if errors.Is(err, card.ErrAccountNotFound{}) {
			r.logger.Error("Card references a missing account",
				"card_id", vc.ID.String(),
				"account_id", vc.AccountID.String())
			return nil, card.ErrCardNotFound{ExternalRef: externalRef}
		}
		return nil, fmt.Errorf("failed to load owner of card %s: %w", vc.ID.String(), err)
	}

	return &card.Resolved{
		Card:        vc,
		OwnerID:     acc.ID,
		CustomerRef: acc.CustomerRef,
	}, nil
}
