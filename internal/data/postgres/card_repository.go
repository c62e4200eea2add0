// Package postgres provides PostgreSQL implementations of the domain repositories.
// The transactions table is the source of truth for authorization outcomes; its
// unique authorization_id index is the fence that serializes duplicate deliveries.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jit-funding-engine/internal/domain/card"
	"github.com/jit-funding-engine/internal/platform/persistence"
)

const cardColumns = `id, account_id, external_ref, status, card_type, spending_limit, expires_at, created_at, updated_at`

// CardRepository implements the card.Repository interface for PostgreSQL
type CardRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewCardRepository creates a new PostgreSQL card repository
func NewCardRepository(logger *slog.Logger, db *persistence.PostgresDB) card.Repository {
	return &CardRepository{
		querier: db.Querier(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *CardRepository) WithTx(tx pgx.Tx) card.Repository {
	return &CardRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetByExternalRef resolves a card by the issuer's card reference
func (r *CardRepository) GetByExternalRef(ctx context.Context, externalRef string) (*card.VirtualCard, error) {
	query := `SELECT ` + cardColumns + ` FROM virtual_cards WHERE external_ref = $1`

	c, err := scanCard(r.querier.QueryRow(ctx, query, externalRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, card.ErrCardNotFound{ExternalRef: externalRef}
		}
		r.logger.Error("Failed to get card by external ref", "external_ref", externalRef, "error", err)
		return nil, fmt.Errorf("failed to get card by external ref: %w", err)
	}
	return c, nil
}

// GetByID retrieves a card by its internal ID
func (r *CardRepository) GetByID(ctx context.Context, id uuid.UUID) (*card.VirtualCard, error) {
	query := `SELECT ` + cardColumns + ` FROM virtual_cards WHERE id = $1`

	c, err := scanCard(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, card.ErrCardNotFound{ExternalRef: id.String()}
		}
		r.logger.Error("Failed to get card", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	return c, nil
}

// LockByID acquires a row lock on the card. Authorizations on the same card
// serialize on it so single-use and spending-limit checks see committed totals.
func (r *CardRepository) LockByID(ctx context.Context, id uuid.UUID) (*card.VirtualCard, error) {
	query := `SELECT ` + cardColumns + ` FROM virtual_cards WHERE id = $1 FOR UPDATE`

	c, err := scanCard(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, card.ErrCardNotFound{ExternalRef: id.String()}
		}
		r.logger.Error("Failed to lock card", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock card: %w", err)
	}
	return c, nil
}

// GetAccountByCustomerRef retrieves the account owning a funding processor customer
func (r *CardRepository) GetAccountByCustomerRef(ctx context.Context, customerRef string) (*card.Account, error) {
	query := `SELECT id, customer_ref, created_at FROM accounts WHERE customer_ref = $1`

	var acc card.Account
	err := r.querier.QueryRow(ctx, query, customerRef).Scan(&acc.ID, &acc.CustomerRef, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, card.ErrAccountNotFound{Ref: customerRef}
		}
		r.logger.Error("Failed to get account by customer ref", "customer_ref", customerRef, "error", err)
		return nil, fmt.Errorf("failed to get account by customer ref: %w", err)
	}
	return &acc, nil
}

// GetAccountByID retrieves an account by its ID
func (r *CardRepository) GetAccountByID(ctx context.Context, id uuid.UUID) (*card.Account, error) {
	query := `SELECT id, customer_ref, created_at FROM accounts WHERE id = $1`

	var acc card.Account
	err := r.querier.QueryRow(ctx, query, id).Scan(&acc.ID, &acc.CustomerRef, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, card.ErrAccountNotFound{Ref: id.String()}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &acc, nil
}

// LockAccount serializes default-instrument swaps of one account
func (r *CardRepository) LockAccount(ctx context.Context, id uuid.UUID) error {
	query := `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`

	var locked uuid.UUID
	if err := r.querier.QueryRow(ctx, query, id).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return card.ErrAccountNotFound{Ref: id.String()}
		}
		r.logger.Error("Failed to lock account", "id", id.String(), "error", err)
		return fmt.Errorf("failed to lock account: %w", err)
	}
	return nil
}

func scanCard(row pgx.Row) (*card.VirtualCard, error) {
	var (
		c        card.VirtualCard
		status   string
		cardType string
	)
	err := row.Scan(
		&c.ID,
		&c.AccountID,
		&c.ExternalRef,
		&status,
		&cardType,
		&c.SpendingLimit,
		&c.ExpiresAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Status = card.Status(status)
	c.Type = card.Type(cardType)
	return &c, nil
}
