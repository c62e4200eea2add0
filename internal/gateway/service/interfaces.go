package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/jit-funding-engine/internal/domain/funding"
	"github.com/jit-funding-engine/internal/domain/ledger"
	"github.com/jit-funding-engine/internal/domain/shared"
)

// ActivityService serves the read API
type ActivityService interface {
	// ListCardTransactions returns one page of the card's activity, newest first,
	// and the total matching count. An empty status matches every row.
	// Returns card.ErrCardNotFound for unknown cards.
	ListCardTransactions(ctx context.Context, cardID uuid.UUID, status shared.TransactionStatus, page, perPage int) ([]*ledger.Transaction, int64, error)

	// TotalSpent sums approved merchant amounts of the account in cents.
	// Returns card.ErrAccountNotFound for unknown accounts.
	TotalSpent(ctx context.Context, accountID uuid.UUID) (int64, error)
}

// InstrumentLinker attaches a payment method to the account owning a processor customer
type InstrumentLinker interface {
	Link(ctx context.Context, customerRef, instrumentRef string) (*funding.Instrument, error)
}

// OutcomeDispatcher hands a charge failure to reconciliation
type OutcomeDispatcher interface {
	Dispatch(ctx context.Context, event *shared.ChargeOutcomeEvent) error
}
