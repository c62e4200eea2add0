package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jit-funding-engine/internal/domain/ledger"
	"github.com/jit-funding-engine/internal/domain/shared"
	"github.com/jit-funding-engine/internal/platform/persistence"
)

const transactionColumns = `id, authorization_id, card_id, account_id, merchant_amount, user_amount, profit,
		status, charge_ref, decline_reason, merchant_name, merchant_category, created_at, updated_at`

// TransactionRepository implements the ledger.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL ledger repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &TransactionRepository{
		querier: db.Querier(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *TransactionRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// InsertIfAbsent claims the authorization id. A concurrent claimer of the same id
// blocks on the unique index until the first transaction ends; if that one
// committed, the conflict path reads its row.
func (r *TransactionRepository) InsertIfAbsent(ctx context.Context, txn *ledger.Transaction) (bool, *ledger.Transaction, error) {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (authorization_id) DO NOTHING
		RETURNING id
	`

	var id uuid.UUID
	err := r.querier.QueryRow(ctx, query,
		txn.ID,
		txn.AuthorizationID,
		txn.CardID,
		txn.AccountID,
		txn.MerchantAmount,
		txn.UserAmount,
		txn.Profit,
		string(txn.Status),
		txn.ChargeRef,
		nullableReason(txn.DeclineReason),
		txn.MerchantName,
		txn.MerchantCategory,
		txn.CreatedAt,
		txn.UpdatedAt,
	).Scan(&id)
	if err == nil {
		return true, txn, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to claim authorization", "authorization_id", txn.AuthorizationID, "error", err)
		return false, nil, fmt.Errorf("failed to claim authorization: %w", err)
	}

	stored, err := r.GetByAuthorizationID(ctx, txn.AuthorizationID)
	if err != nil {
		return false, nil, err
	}
	return false, stored, nil
}

// Finalize writes the decision fields of a claimed row
func (r *TransactionRepository) Finalize(ctx context.Context, txn *ledger.Transaction) error {
	query := `
		UPDATE transactions
		SET status = $1, profit = $2, charge_ref = $3, decline_reason = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := r.querier.Exec(ctx, query,
		string(txn.Status),
		txn.Profit,
		txn.ChargeRef,
		nullableReason(txn.DeclineReason),
		txn.UpdatedAt,
		txn.ID,
	)
	if err != nil {
		r.logger.Error("Failed to finalize transaction", "authorization_id", txn.AuthorizationID, "error", err)
		return fmt.Errorf("failed to finalize transaction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ledger.ErrTransactionNotFound{AuthorizationID: txn.AuthorizationID}
	}
	return nil
}

// DemoteIfApproved is a compare-and-set on status. Concurrent duplicates race on
// the row lock; the loser re-evaluates the WHERE clause and matches nothing.
func (r *TransactionRepository) DemoteIfApproved(ctx context.Context, chargeRef string, reason shared.DeclineReason) (bool, *ledger.Transaction, error) {
	query := `
		UPDATE transactions
		SET status = 'declined', profit = 0, decline_reason = $2, updated_at = $3
		WHERE charge_ref = $1 AND status = 'approved'
		RETURNING ` + transactionColumns

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, chargeRef, string(reason), time.Now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil, nil
		}
		r.logger.Error("Failed to demote transaction", "charge_ref", chargeRef, "error", err)
		return false, nil, fmt.Errorf("failed to demote transaction: %w", err)
	}
	return true, txn, nil
}

// GetByAuthorizationID retrieves the row recorded for an authorization
func (r *TransactionRepository) GetByAuthorizationID(ctx context.Context, authorizationID string) (*ledger.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE authorization_id = $1`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, authorizationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrTransactionNotFound{AuthorizationID: authorizationID}
		}
		r.logger.Error("Failed to get transaction", "authorization_id", authorizationID, "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// GetByChargeRef retrieves the row holding a charge reference
func (r *TransactionRepository) GetByChargeRef(ctx context.Context, chargeRef string) (*ledger.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE charge_ref = $1 ORDER BY created_at DESC LIMIT 1`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, chargeRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrTransactionNotFound{ChargeRef: chargeRef}
		}
		r.logger.Error("Failed to get transaction by charge ref", "charge_ref", chargeRef, "error", err)
		return nil, fmt.Errorf("failed to get transaction by charge ref: %w", err)
	}
	return txn, nil
}

// CountApprovedByCard counts approved rows for a card
func (r *TransactionRepository) CountApprovedByCard(ctx context.Context, cardID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM transactions WHERE card_id = $1 AND status = 'approved'`

	var count int64
	if err := r.querier.QueryRow(ctx, query, cardID).Scan(&count); err != nil {
		r.logger.Error("Failed to count approved transactions", "card_id", cardID.String(), "error", err)
		return 0, fmt.Errorf("failed to count approved transactions: %w", err)
	}
	return count, nil
}

// SumApprovedByCardSince sums approved merchant amounts for a card created at or after since
func (r *TransactionRepository) SumApprovedByCardSince(ctx context.Context, cardID uuid.UUID, since time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(merchant_amount), 0)::BIGINT
		FROM transactions
		WHERE card_id = $1 AND status = 'approved' AND created_at >= $2
	`

	var total int64
	if err := r.querier.QueryRow(ctx, query, cardID, since).Scan(&total); err != nil {
		r.logger.Error("Failed to sum card spend", "card_id", cardID.String(), "error", err)
		return 0, fmt.Errorf("failed to sum card spend: %w", err)
	}
	return total, nil
}

// SumApprovedByAccount sums approved merchant amounts across an account's cards
func (r *TransactionRepository) SumApprovedByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(merchant_amount), 0)::BIGINT
		FROM transactions
		WHERE account_id = $1 AND status = 'approved'
	`

	var total int64
	if err := r.querier.QueryRow(ctx, query, accountID).Scan(&total); err != nil {
		r.logger.Error("Failed to sum account spend", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to sum account spend: %w", err)
	}
	return total, nil
}

func scanTransaction(row pgx.Row) (*ledger.Transaction, error) {
	var (
		txn           ledger.Transaction
		status        string
		declineReason *string
	)
	err := row.Scan(
		&txn.ID,
		&txn.AuthorizationID,
		&txn.CardID,
		&txn.AccountID,
		&txn.MerchantAmount,
		&txn.UserAmount,
		&txn.Profit,
		&status,
		&txn.ChargeRef,
		&declineReason,
		&txn.MerchantName,
		&txn.MerchantCategory,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	txn.Status = shared.TransactionStatus(status)
	if declineReason != nil {
		txn.DeclineReason = shared.DeclineReason(*declineReason)
	}
	return &txn, nil
}

func nullableReason(reason shared.DeclineReason) *string {
	if reason == "" {
		return nil
	}
	s := string(reason)
	return &s
}
