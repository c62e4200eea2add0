package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jit-funding-engine/internal/domain/shared"
)

// MockReconciliationService mocks the ReconciliationService interface
type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) Reconcile(ctx context.Context, event *shared.ChargeOutcomeEvent) (Outcome, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(Outcome), args.Error(1)
}

func TestWorkerPoolReconciliationService_Reconcile(t *testing.T) {
	tests := []struct {
		name        string
		outcome     Outcome
		err         error
		wantOutcome Outcome
	}{
		{name: "demoted", outcome: OutcomeDemoted, wantOutcome: OutcomeDemoted},
		{name: "orphan", outcome: OutcomeOrphan, wantOutcome: OutcomeOrphan},
		{name: "failure", outcome: "", err: errors.New("db down"), wantOutcome: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := new(MockReconciliationService)
			base.On("Reconcile", mock.Anything, mock.MatchedBy(func(e *shared.ChargeOutcomeEvent) bool {
				return e.ChargeRef == "pi_1"
			})).Return(tt.outcome, tt.err).Once()

			svc, err := NewWorkerPoolReconciliationService(base, WorkerPoolConfig{Size: 2}, newTestLogger())
			require.NoError(t, err)
			defer svc.Shutdown()

			outcome, err := svc.Reconcile(context.Background(), failureEvent("pi_1"))
			assert.Equal(t, tt.wantOutcome, outcome)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
			base.AssertExpectations(t)
		})
	}
}

func TestWorkerPoolReconciliationService_Concurrent(t *testing.T) {
	base := new(MockReconciliationService)
	base.On("Reconcile", mock.Anything, mock.Anything).Return(OutcomeAlreadyDeclined, nil)

	svc, err := NewWorkerPoolReconciliationService(base, WorkerPoolConfig{Size: 3}, newTestLogger())
	require.NoError(t, err)
	defer svc.Shutdown()
	assert.Equal(t, 3, svc.Capacity())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := svc.Reconcile(context.Background(), failureEvent("pi_1"))
			assert.NoError(t, err)
			assert.Equal(t, OutcomeAlreadyDeclined, outcome)
		}()
	}
	wg.Wait()

	base.AssertNumberOfCalls(t, "Reconcile", 10)
}
