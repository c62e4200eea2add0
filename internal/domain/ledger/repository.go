package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jit-funding-engine/internal/domain/shared"
)

// Repository is the Postgres ledger, the single source of truth for outcomes
type Repository interface {
	// InsertIfAbsent claims txn.AuthorizationID. When another row already holds
	// the id it returns inserted=false and the stored row.
	InsertIfAbsent(ctx context.Context, txn *Transaction) (inserted bool, stored *Transaction, err error)
	// Finalize writes the decision fields of a row claimed in the same database transaction
	Finalize(ctx context.Context, txn *Transaction) error
	// DemoteIfApproved flips an approved row to declined with zero profit.
	// changed is false when no approved row holds the charge reference.
	DemoteIfApproved(ctx context.Context, chargeRef string, reason shared.DeclineReason) (changed bool, demoted *Transaction, err error)
	GetByAuthorizationID(ctx context.Context, authorizationID string) (*Transaction, error)
	GetByChargeRef(ctx context.Context, chargeRef string) (*Transaction, error)
	CountApprovedByCard(ctx context.Context, cardID uuid.UUID) (int64, error)
	SumApprovedByCardSince(ctx context.Context, cardID uuid.UUID, since time.Time) (int64, error)
	SumApprovedByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
	WithTx(tx pgx.Tx) Repository
}

// ActivityRepository is the Mongo read model of ledger rows
type ActivityRepository interface {
	Upsert(ctx context.Context, txn *Transaction) error
	GetByCardID(ctx context.Context, cardID uuid.UUID, status shared.TransactionStatus, limit, offset int) ([]*Transaction, error)
	CountByCardID(ctx context.Context, cardID uuid.UUID, status shared.TransactionStatus) (int64, error)
}

// ErrTransactionNotFound indicates missing ledger row. Exactly one of the fields is set.
type ErrTransactionNotFound struct {
	AuthorizationID string
	ChargeRef       string
}

func (e ErrTransactionNotFound) Error() string {
	if e.ChargeRef != "" {
		return "transaction not found for charge: " + e.ChargeRef
	}
	return "transaction not found for authorization: " + e.AuthorizationID
}

// Is implements the errors.Is interface for ErrTransactionNotFound
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	// An empty target matches any ErrTransactionNotFound
	if t.AuthorizationID == "" && t.ChargeRef == "" {
		return true
	}
	return e.AuthorizationID == t.AuthorizationID && e.ChargeRef == t.ChargeRef
}
