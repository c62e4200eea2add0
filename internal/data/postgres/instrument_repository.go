package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jit-funding-engine/internal/domain/funding"
	"github.com/jit-funding-engine/internal/platform/persistence"
)

const instrumentColumns = `id, account_id, external_ref, last4, brand, is_default, created_at`

// InstrumentRepository implements the funding.Repository interface for PostgreSQL
type InstrumentRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewInstrumentRepository creates a new PostgreSQL funding instrument repository
func NewInstrumentRepository(logger *slog.Logger, db *persistence.PostgresDB) funding.Repository {
	return &InstrumentRepository{
		querier: db.Querier(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx. ClearDefault and Upsert must share
// one transaction so the default flag moves atomically.
func (r *InstrumentRepository) WithTx(tx pgx.Tx) funding.Repository {
	return &InstrumentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetDefault returns the default instrument visible at read time
func (r *InstrumentRepository) GetDefault(ctx context.Context, accountID uuid.UUID) (*funding.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM funding_instruments WHERE account_id = $1 AND is_default`

	inst, err := scanInstrument(r.querier.QueryRow(ctx, query, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, funding.ErrNoDefaultInstrument
		}
		r.logger.Error("Failed to get default instrument", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to get default instrument: %w", err)
	}
	return inst, nil
}

// GetByExternalRef retrieves an instrument by the processor's payment method reference
func (r *InstrumentRepository) GetByExternalRef(ctx context.Context, externalRef string) (*funding.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM funding_instruments WHERE external_ref = $1`

	inst, err := scanInstrument(r.querier.QueryRow(ctx, query, externalRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, funding.ErrInstrumentNotFound{ExternalRef: externalRef}
		}
		r.logger.Error("Failed to get instrument", "external_ref", externalRef, "error", err)
		return nil, fmt.Errorf("failed to get instrument: %w", err)
	}
	return inst, nil
}

// ClearDefault unsets the default flag for the account
func (r *InstrumentRepository) ClearDefault(ctx context.Context, accountID uuid.UUID) error {
	query := `UPDATE funding_instruments SET is_default = FALSE WHERE account_id = $1 AND is_default`

	if _, err := r.querier.Exec(ctx, query, accountID); err != nil {
		r.logger.Error("Failed to clear default instrument", "account_id", accountID.String(), "error", err)
		return fmt.Errorf("failed to clear default instrument: %w", err)
	}
	return nil
}

// Upsert links the instrument, refreshing its details when the reference is already
// linked to the same account
func (r *InstrumentRepository) Upsert(ctx context.Context, inst *funding.Instrument) error {
	query := `
		INSERT INTO funding_instruments (id, account_id, external_ref, last4, brand, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (external_ref) DO UPDATE
		SET is_default = EXCLUDED.is_default, last4 = EXCLUDED.last4, brand = EXCLUDED.brand
		WHERE funding_instruments.account_id = EXCLUDED.account_id
		RETURNING id, created_at
	`

	err := r.querier.QueryRow(ctx, query,
		inst.ID,
		inst.AccountID,
		inst.ExternalRef,
		inst.Last4,
		inst.Brand,
		inst.IsDefault,
		inst.CreatedAt,
	).Scan(&inst.ID, &inst.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return funding.ErrInstrumentOwnedElsewhere{ExternalRef: inst.ExternalRef}
		}
		if persistence.IsUniqueViolation(err) {
			r.logger.Warn("Concurrent default instrument change", "account_id", inst.AccountID.String())
		}
		r.logger.Error("Failed to upsert instrument", "external_ref", inst.ExternalRef, "error", err)
		return fmt.Errorf("failed to upsert instrument: %w", err)
	}
	return nil
}

func scanInstrument(row pgx.Row) (*funding.Instrument, error) {
	var inst funding.Instrument
	err := row.Scan(
		&inst.ID,
		&inst.AccountID,
		&inst.ExternalRef,
		&inst.Last4,
		&inst.Brand,
		&inst.IsDefault,
		&inst.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}
