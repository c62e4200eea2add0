package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jit-funding-engine/internal/domain/outbox"
	"github.com/jit-funding-engine/internal/domain/shared"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOutboxRepo(t *testing.T) (*OutboxRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &OutboxRepository{querier: mock, logger: newTestLogger()}, mock
}

func TestOutboxRepository_WithTx(t *testing.T) {
	repo := &OutboxRepository{logger: newTestLogger()}

	mockTx := pgx.Tx(nil)
	txRepo := repo.WithTx(mockTx)

	outboxRepo, ok := txRepo.(*OutboxRepository)
	require.True(t, ok)
	assert.Equal(t, mockTx, outboxRepo.querier)
}

func TestOutboxRepository_Create(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta("INSERT INTO transaction_outbox (transaction_id, card_id, payload, status, attempts, created_at)")

	message := &outbox.Message{
		TransactionID: uuid.New(),
		CardID:        uuid.New(),
		Payload:       json.RawMessage(`{"status":"approved"}`),
		Status:        shared.OutboxStatusPending,
		CreatedAt:     time.Now(),
	}

	t.Run("success", func(t *testing.T) {
		repo, mock := newOutboxRepo(t)
		defer mock.Close()

		mock.ExpectQuery(query).
			WithArgs(message.TransactionID, message.CardID, []byte(message.Payload), "PENDING", 0, message.CreatedAt).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

		require.NoError(t, repo.Create(ctx, message))
		assert.Equal(t, int64(42), message.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		repo, mock := newOutboxRepo(t)
		defer mock.Close()
		dbErr := errors.New("db error")

		mock.ExpectQuery(query).
			WithArgs(message.TransactionID, message.CardID, []byte(message.Payload), "PENDING", 0, message.CreatedAt).
			WillReturnError(dbErr)

		err := repo.Create(ctx, message)
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to create outbox message")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_GetPending(t *testing.T) {
	ctx := context.Background()
	repo, mock := newOutboxRepo(t)
	defer mock.Close()

	txnID, cardID := uuid.New(), uuid.New()
	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "transaction_id", "card_id", "payload", "status", "attempts", "created_at", "last_attempt_at"}).
		AddRow(int64(1), txnID, cardID, []byte(`{"status":"approved"}`), "PENDING", 0, now, nil).
		AddRow(int64(2), txnID, cardID, []byte(`{"status":"declined"}`), "PENDING", 1, now, &now)

	mock.ExpectQuery(regexp.QuoteMeta("FROM transaction_outbox WHERE status = $1 ORDER BY id ASC LIMIT $2")).
		WithArgs("PENDING", 10).
		WillReturnRows(rows)

	messages, err := repo.GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, int64(1), messages[0].ID)
	assert.Equal(t, shared.OutboxStatusPending, messages[0].Status)
	assert.Nil(t, messages[0].LastAttemptAt)
	assert.JSONEq(t, `{"status":"declined"}`, string(messages[1].Payload))
	require.NotNil(t, messages[1].LastAttemptAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta("UPDATE transaction_outbox SET status = $1, last_attempt_at = $2 WHERE id = $3")

	t.Run("success", func(t *testing.T) {
		repo, mock := newOutboxRepo(t)
		defer mock.Close()

		mock.ExpectExec(query).
			WithArgs("PROCESSED", pgxmock.AnyArg(), int64(7)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.UpdateStatus(ctx, 7, shared.OutboxStatusProcessed))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newOutboxRepo(t)
		defer mock.Close()

		mock.ExpectExec(query).
			WithArgs("PROCESSED", pgxmock.AnyArg(), int64(7)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatus(ctx, 7, shared.OutboxStatusProcessed)
		assert.ErrorIs(t, err, outbox.ErrMessageNotFound{ID: 7})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_IncrementAttempts(t *testing.T) {
	ctx := context.Background()
	repo, mock := newOutboxRepo(t)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta("SET attempts = attempts + 1, last_attempt_at = $1")).
		WithArgs(pgxmock.AnyArg(), int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.IncrementAttempts(ctx, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}
