package card

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines virtual card and account lookups
type Repository interface {
	GetByExternalRef(ctx context.Context, externalRef string) (*VirtualCard, error)
	GetByID(ctx context.Context, id uuid.UUID) (*VirtualCard, error)
	// LockByID re-reads the card with a row lock held until the transaction ends
	LockByID(ctx context.Context, id uuid.UUID) (*VirtualCard, error)
	GetAccountByCustomerRef(ctx context.Context, customerRef string) (*Account, error)
	GetAccountByID(ctx context.Context, id uuid.UUID) (*Account, error)
	// LockAccount holds a row lock on the account until the transaction ends
	LockAccount(ctx context.Context, id uuid.UUID) error
	WithTx(tx pgx.Tx) Repository
}

// ErrCardNotFound indicates that no card matches the reference
type ErrCardNotFound struct {
	ExternalRef string
}

func (e ErrCardNotFound) Error() string {
	return "virtual card not found: " + e.ExternalRef
}

// Is implements the errors.Is interface for ErrCardNotFound
func (e ErrCardNotFound) Is(target error) bool {
	t, ok := target.(ErrCardNotFound)
	if !ok {
		return false
	}
	if t.ExternalRef == "" {
		return true
	}
	return e.ExternalRef == t.ExternalRef
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	Ref string
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.Ref
}

// Is implements the errors.Is interface for ErrAccountNotFound
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	return t.Ref == "" || e.Ref == t.Ref
}
