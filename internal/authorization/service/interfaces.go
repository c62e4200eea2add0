package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jit-funding-engine/internal/domain/card"
	"github.com/jit-funding-engine/internal/domain/funding"
	"github.com/jit-funding-engine/internal/domain/ledger"
	"github.com/jit-funding-engine/internal/domain/shared"
)

// DecisionService decides an authorization request exactly once per authorization id
type DecisionService interface {
	Decide(ctx context.Context, req *shared.AuthorizationRequest) (*Decision, error)
}

// CardResolver maps an external card reference to the card and its owner
type CardResolver interface {
	Resolve(ctx context.Context, externalRef string) (*card.Resolved, error)
}

// CardPolicy locks the card inside tx and applies per-card limits.
// A non-empty reason declines the authorization; ErrCardNotFundable aborts it.
type CardPolicy interface {
	LockAndCheck(ctx context.Context, tx pgx.Tx, cardID uuid.UUID, merchantAmount int64) (shared.DeclineReason, error)
}

// Charger draws the user amount from the owner's default instrument
type Charger interface {
	Charge(ctx context.Context, resolved *card.Resolved, txn *ledger.Transaction, req *shared.AuthorizationRequest) (funding.ChargeResult, error)
}

// Recorder persists a finalized row and its outbox message inside tx
type Recorder interface {
	Record(ctx context.Context, tx pgx.Tx, txn *ledger.Transaction) error
}

// DecisionCache is the redelivery fast path in front of the ledger
type DecisionCache interface {
	Get(ctx context.Context, authorizationID string) (*ledger.Transaction, bool, error)
	Set(ctx context.Context, txn *ledger.Transaction) error
}

// ErrCardNotFundable means the card became unusable between resolution and lock.
// The claim is rolled back so no row is recorded.
type ErrCardNotFundable struct {
	Reason shared.DeclineReason
}

func (e ErrCardNotFundable) Error() string {
	return fmt.Sprintf("card not fundable: %s", e.Reason)
}

// Is implements the errors.Is interface for ErrCardNotFundable
func (e ErrCardNotFundable) Is(target error) bool {
	t, ok := target.(ErrCardNotFundable)
	if !ok {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}
