package components

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/jit-funding-engine/internal/domain/card"
	"github.com/jit-funding-engine/internal/domain/funding"
	"github.com/jit-funding-engine/internal/domain/ledger"
	"github.com/jit-funding-engine/internal/domain/outbox"
	"github.com/jit-funding-engine/internal/domain/shared"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockCardRepo struct {
	mock.Mock
}

func (m *MockCardRepo) GetByExternalRef(ctx context.Context, externalRef string) (*card.VirtualCard, error) {
	args := m.Called(ctx, externalRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*card.VirtualCard), args.Error(1)
}

func (m *MockCardRepo) GetByID(ctx context.Context, id uuid.UUID) (*card.VirtualCard, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*card.VirtualCard), args.Error(1)
}

func (m *MockCardRepo) LockAccount(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCardRepo) LockByID(ctx context.Context, id uuid.UUID) (*card.VirtualCard, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*card.VirtualCard), args.Error(1)
}

func (m *MockCardRepo) GetAccountByCustomerRef(ctx context.Context, customerRef string) (*card.Account, error) {
	args := m.Called(ctx, customerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*card.Account), args.Error(1)
}

func (m *MockCardRepo) GetAccountByID(ctx context.Context, id uuid.UUID) (*card.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*card.Account), args.Error(1)
}

func (m *MockCardRepo) WithTx(tx pgx.Tx) card.Repository {
	return m
}

type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) InsertIfAbsent(ctx context.Context, txn *ledger.Transaction) (bool, *ledger.Transaction, error) {
	args := m.Called(ctx, txn)
	var stored *ledger.Transaction
	if args.Get(1) != nil {
		stored = args.Get(1).(*ledger.Transaction)
	}
	return args.Bool(0), stored, args.Error(2)
}

func (m *MockLedgerRepo) Finalize(ctx context.Context, txn *ledger.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockLedgerRepo) DemoteIfApproved(ctx context.Context, chargeRef string, reason shared.DeclineReason) (bool, *ledger.Transaction, error) {
	args := m.Called(ctx, chargeRef, reason)
	var demoted *ledger.Transaction
	if args.Get(1) != nil {
		demoted = args.Get(1).(*ledger.Transaction)
	}
	return args.Bool(0), demoted, args.Error(2)
}

func (m *MockLedgerRepo) GetByAuthorizationID(ctx context.Context, authorizationID string) (*ledger.Transaction, error) {
	args := m.Called(ctx, authorizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockLedgerRepo) GetByChargeRef(ctx context.Context, chargeRef string) (*ledger.Transaction, error) {
	args := m.Called(ctx, chargeRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockLedgerRepo) CountApprovedByCard(ctx context.Context, cardID uuid.UUID) (int64, error) {
	args := m.Called(ctx, cardID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) SumApprovedByCardSince(ctx context.Context, cardID uuid.UUID, since time.Time) (int64, error) {
	args := m.Called(ctx, cardID, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) SumApprovedByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) WithTx(tx pgx.Tx) ledger.Repository {
	return m
}

type MockInstrumentRepo struct {
	mock.Mock
}

func (m *MockInstrumentRepo) GetDefault(ctx context.Context, accountID uuid.UUID) (*funding.Instrument, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*funding.Instrument), args.Error(1)
}

func (m *MockInstrumentRepo) GetByExternalRef(ctx context.Context, externalRef string) (*funding.Instrument, error) {
	args := m.Called(ctx, externalRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*funding.Instrument), args.Error(1)
}

func (m *MockInstrumentRepo) ClearDefault(ctx context.Context, accountID uuid.UUID) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockInstrumentRepo) Upsert(ctx context.Context, instrument *funding.Instrument) error {
	args := m.Called(ctx, instrument)
	return args.Error(0)
}

func (m *MockInstrumentRepo) WithTx(tx pgx.Tx) funding.Repository {
	return m
}

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) Charge(ctx context.Context, req funding.ChargeRequest) (funding.ChargeResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(funding.ChargeResult), args.Error(1)
}
