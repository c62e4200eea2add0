package service

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
	"github.com/jit-funding-engine/internal/domain/shared"
	reconciliation "github.com/jit-funding-engine/internal/reconciliation/service"
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

// MockLedgerRepo only stubs the read used by the activity service
type MockLedgerRepo struct {
	ledger.Repository
	mock.Mock
}

func (m *MockLedgerRepo) SumApprovedByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

type MockActivityRepo struct {
	mock.Mock
}

func (m *MockActivityRepo) Upsert(ctx context.Context, txn *ledger.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockActivityRepo) GetByCardID(ctx context.Context, cardID uuid.UUID, status shared.TransactionStatus, limit, offset int) ([]*ledger.Transaction, error) {
	args := m.Called(ctx, cardID, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Transaction), args.Error(1)
}

func (m *MockActivityRepo) CountByCardID(ctx context.Context, cardID uuid.UUID, status shared.TransactionStatus) (int64, error) {
	args := m.Called(ctx, cardID, status)
	return args.Get(0).(int64), args.Error(1)
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

type MockInstrumentLookup struct {
	mock.Mock
}

func (m *MockInstrumentLookup) LookupInstrument(ctx context.Context, instrumentRef string) (funding.InstrumentDetails, error) {
	args := m.Called(ctx, instrumentRef)
	return args.Get(0).(funding.InstrumentDetails), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event *shared.ChargeOutcomeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	return nil
}

type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) Reconcile(ctx context.Context, event *shared.ChargeOutcomeEvent) (reconciliation.Outcome, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(reconciliation.Outcome), args.Error(1)
}

// stubTxRunner runs fn with a nil tx and records whether the work committed
type stubTxRunner struct {
	committed bool
}

func (r *stubTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if err := fn(nil); err != nil {
		return err
	}
	r.committed = true
	return nil
}

func testCard(accountID uuid.UUID) *card.VirtualCard {
	now := time.Now().UTC()
	return &card.VirtualCard{
		ID:          uuid.New(),
		AccountID:   accountID,
		ExternalRef: "ic_1",
		Status:      card.StatusActive,
		Type:        card.TypePermanent,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
