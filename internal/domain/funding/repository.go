package funding

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages funding instrument persistence
type Repository interface {
	// GetDefault returns the account's default instrument or ErrNoDefaultInstrument
	GetDefault(ctx context.Context, accountID uuid.UUID) (*Instrument, error)
	GetByExternalRef(ctx context.Context, externalRef string) (*Instrument, error)
	// ClearDefault unsets the default flag on every instrument of the account
	ClearDefault(ctx context.Context, accountID uuid.UUID) error
	// Upsert stores the instrument, updating the flag and card details if the
	// external reference is already linked
	Upsert(ctx context.Context, instrument *Instrument) error
	WithTx(tx pgx.Tx) Repository
}

// ErrInstrumentNotFound indicates missing funding instrument
type ErrInstrumentNotFound struct {
	ExternalRef string
}

func (e ErrInstrumentNotFound) Error() string {
	return "funding instrument not found: " + e.ExternalRef
}

// ErrInstrumentOwnedElsewhere indicates an external reference already linked to another account
type ErrInstrumentOwnedElsewhere struct {
	ExternalRef string
}

func (e ErrInstrumentOwnedElsewhere) Error() string {
	return "funding instrument belongs to another account: " + e.ExternalRef
}
