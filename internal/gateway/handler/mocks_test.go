package handler

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	authorization "github.com/jit-funding-engine/internal/authorization/service"
	"github.com/jit-funding-engine/internal/domain/funding"
	"github.com/jit-funding-engine/internal/domain/ledger"
	"github.com/jit-funding-engine/internal/domain/shared"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockDecisionService struct {
	mock.Mock
}

func (m *MockDecisionService) Decide(ctx context.Context, req *shared.AuthorizationRequest) (*authorization.Decision, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authorization.Decision), args.Error(1)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, event *shared.ChargeOutcomeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockLinker struct {
	mock.Mock
}

func (m *MockLinker) Link(ctx context.Context, customerRef, instrumentRef string) (*funding.Instrument, error) {
	args := m.Called(ctx, customerRef, instrumentRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*funding.Instrument), args.Error(1)
}

type MockActivityService struct {
	mock.Mock
}

func (m *MockActivityService) ListCardTransactions(ctx context.Context, cardID uuid.UUID, status shared.TransactionStatus, page, perPage int) ([]*ledger.Transaction, int64, error) {
	args := m.Called(ctx, cardID, status, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*ledger.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockActivityService) TotalSpent(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}
