package shared

import (
	"errors"
	"time"
)

// Inbound webhook event types
const (
	EventTypeAuthorizationRequest = "issuing_authorization.request"
	EventTypeChargeFailed         = "charge.failed"
	EventTypePaymentFailed        = "payment_intent.payment_failed"
	EventTypeSetupSucceeded       = "setup_intent.succeeded"
)

var (
	ErrMissingChargeRef = errors.New("charge outcome event carries no charge reference")
	ErrUnsupportedEvent = errors.New("unsupported charge outcome event type")
)

// ChargeOutcomeEvent defines a Kafka message carrying an asynchronous charge failure
// from the gateway to the reconciler. ChargeRef is also the message key.
type ChargeOutcomeEvent struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	ChargeRef     string    `json:"charge_ref"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// Validate checks that the event can be reconciled
func (e *ChargeOutcomeEvent) Validate() error {
	if e.EventType != EventTypeChargeFailed && e.EventType != EventTypePaymentFailed {
		return ErrUnsupportedEvent
	}
	if e.ChargeRef == "" {
		return ErrMissingChargeRef
	}
	return nil
}
