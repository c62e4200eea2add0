package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jit-funding-engine/internal/domain/shared"
	"github.com/jit-funding-engine/internal/platform/messaging/producers"
	"github.com/jit-funding-engine/internal/reconciliation/service"
)

// MockReconciliationService for testing
type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) Reconcile(ctx context.Context, event *shared.ChargeOutcomeEvent) (service.Outcome, error) {
	args := m.Called(ctx, event)
	return args.Get(0).(service.Outcome), args.Error(1)
}

// MockDeadLetterPublisher for testing
type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, original kafka.Message, reason string) error {
	args := m.Called(ctx, original, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func outcomeMessage(t *testing.T) kafka.Message {
	t.Helper()
	value, err := json.Marshal(shared.ChargeOutcomeEvent{
		EventID:       "evt_1",
		EventType:     shared.EventTypeChargeFailed,
		ChargeRef:     "pi_1",
		CorrelationID: "corr-1",
		Timestamp:     time.Now(),
	})
	require.NoError(t, err)
	return kafka.Message{Key: []byte("pi_1"), Value: value, Offset: 7}
}

func reasonContains(fragment string) interface{} {
	return mock.MatchedBy(func(reason string) bool {
		return strings.Contains(reason, fragment)
	})
}

func TestChargeOutcomeHandler_HandleMessage(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("reconciles event", func(t *testing.T) {
		svc := new(MockReconciliationService)
		dlq := new(MockDeadLetterPublisher)
		svc.On("Reconcile", mock.Anything, mock.MatchedBy(func(e *shared.ChargeOutcomeEvent) bool {
			return e.ChargeRef == "pi_1" && e.EventID == "evt_1"
		})).Return(service.OutcomeDemoted, nil)

		err := NewChargeOutcomeHandler(logger, svc, dlq).HandleMessage(ctx, outcomeMessage(t))
		assert.NoError(t, err)
		svc.AssertExpectations(t)
		dlq.AssertNotCalled(t, "PublishToDLQ", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("undecodable message is dead-lettered", func(t *testing.T) {
		svc := new(MockReconciliationService)
		dlq := new(MockDeadLetterPublisher)
		msg := kafka.Message{Key: []byte("k"), Value: []byte("{broken"), Offset: 3}
		dlq.On("PublishToDLQ", mock.Anything, msg, reasonContains("undecodable")).Return(nil)

		err := NewChargeOutcomeHandler(logger, svc, dlq).HandleMessage(ctx, msg)
		assert.NoError(t, err)
		svc.AssertNotCalled(t, "Reconcile", mock.Anything, mock.Anything)
		dlq.AssertExpectations(t)
	})

	t.Run("reconciliation failure is dead-lettered", func(t *testing.T) {
		svc := new(MockReconciliationService)
		dlq := new(MockDeadLetterPublisher)
		msg := outcomeMessage(t)
		svc.On("Reconcile", mock.Anything, mock.Anything).Return(service.Outcome(""), errors.New("db down"))
		dlq.On("PublishToDLQ", mock.Anything, msg, reasonContains("db down")).Return(nil)

		err := NewChargeOutcomeHandler(logger, svc, dlq).HandleMessage(ctx, msg)
		assert.NoError(t, err)
		dlq.AssertExpectations(t)
	})

	t.Run("dead letter failure keeps offset", func(t *testing.T) {
		svc := new(MockReconciliationService)
		dlq := new(MockDeadLetterPublisher)
		svc.On("Reconcile", mock.Anything, mock.Anything).Return(service.Outcome(""), errors.New("db down"))
		dlq.On("PublishToDLQ", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

		err := NewChargeOutcomeHandler(logger, svc, dlq).HandleMessage(ctx, outcomeMessage(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "offset 7")
	})

	t.Run("disabled dead letter queue acknowledges", func(t *testing.T) {
		svc := new(MockReconciliationService)
		dlq := new(MockDeadLetterPublisher)
		svc.On("Reconcile", mock.Anything, mock.Anything).Return(service.Outcome(""), errors.New("db down"))
		dlq.On("PublishToDLQ", mock.Anything, mock.Anything, mock.Anything).Return(producers.ErrDLQDisabled)

		err := NewChargeOutcomeHandler(logger, svc, dlq).HandleMessage(ctx, outcomeMessage(t))
		assert.NoError(t, err)
	})

	t.Run("no dead letter queue acknowledges", func(t *testing.T) {
		svc := new(MockReconciliationService)
		svc.On("Reconcile", mock.Anything, mock.Anything).Return(service.Outcome(""), errors.New("db down"))

		err := NewChargeOutcomeHandler(logger, svc, nil).HandleMessage(ctx, outcomeMessage(t))
		assert.NoError(t, err)
	})
}
