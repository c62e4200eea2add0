package producers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jit-funding-engine/internal/config"
	"github.com/jit-funding-engine/internal/domain/shared"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockKafkaWriter mocks KafkaWriter interface
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChargeOutcomeProducer_Publish(t *testing.T) {
	ctx := context.Background()
	event := &shared.ChargeOutcomeEvent{
		EventID:       "evt_1",
		EventType:     shared.EventTypeChargeFailed,
		ChargeRef:     "pi_123",
		FailureReason: "card_declined",
		CorrelationID: "corr-1",
		Timestamp:     time.Now().UTC(),
	}

	t.Run("keys by charge reference", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &ChargeOutcomeProducer{logger: newTestLogger(), writer: mockWriter, topic: "charge_outcomes"}

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 {
				return false
			}
			var decoded shared.ChargeOutcomeEvent
			if err := json.Unmarshal(msgs[0].Value, &decoded); err != nil {
				return false
			}
			return string(msgs[0].Key) == "pi_123" &&
				decoded.EventID == "evt_1" &&
				len(msgs[0].Headers) == 1 &&
				msgs[0].Headers[0].Key == CorrelationHeader &&
				string(msgs[0].Headers[0].Value) == "corr-1"
		})).Return(nil).Once()

		require.NoError(t, producer.Publish(ctx, event))
		mockWriter.AssertExpectations(t)
	})

	t.Run("writer error", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &ChargeOutcomeProducer{logger: newTestLogger(), writer: mockWriter, topic: "charge_outcomes"}
		writerErr := errors.New("broker unavailable")

		mockWriter.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(writerErr).Once()

		err := producer.Publish(ctx, event)
		require.Error(t, err)
		assert.ErrorIs(t, err, writerErr)
		mockWriter.AssertExpectations(t)
	})
}

func TestChargeOutcomeProducer_Close(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	producer := &ChargeOutcomeProducer{logger: newTestLogger(), writer: mockWriter, topic: "charge_outcomes"}
	closeErr := errors.New("close failed")

	mockWriter.On("Close").Return(closeErr).Once()

	err := producer.Close()
	assert.ErrorIs(t, err, closeErr)
	mockWriter.AssertExpectations(t)
}

func TestNewChargeOutcomeProducer_RequiresTopic(t *testing.T) {
	_, err := NewChargeOutcomeProducer(context.Background(), newTestLogger(), &config.KafkaConfig{Brokers: "localhost:9092"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reconciliation topic is not configured")
}

var _ KafkaWriter = (*MockKafkaWriter)(nil)
