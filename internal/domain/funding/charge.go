package funding

import (
	"context"
	"fmt"
)

// Outcome classifies a charge attempt
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeDeclined Outcome = "declined"
	OutcomeTimeout  Outcome = "timeout"
)

// ChargeRequest describes a draw against an instrument. IdempotencyKey is
// derived from the authorization id so redeliveries never charge twice.
type ChargeRequest struct {
	CustomerRef     string
	InstrumentRef   string
	AmountCents     int64
	Currency        string
	IdempotencyKey  string
	Description     string
	AuthorizationID string
}

// ChargeResult is the classified outcome of a charge attempt
type ChargeResult struct {
	Outcome       Outcome
	ChargeRef     string // may be set on declines when the processor returned one
	DeclineReason string
}

// Processor performs charges against the funding processor
type Processor interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// InstrumentDetails are the display fields of a saved payment method
type InstrumentDetails struct {
	Last4 string
	Brand string
}

// InstrumentLookup reads saved payment methods from the funding processor
type InstrumentLookup interface {
	LookupInstrument(ctx context.Context, instrumentRef string) (InstrumentDetails, error)
}

// IdempotencyKey derives the processor idempotency key for an authorization
func IdempotencyKey(authorizationID string) string {
	return "jit_auth_" + authorizationID
}

// ChargeDeclinedError indicates the instrument rejected the draw. ChargeRef
// is set when the processor created an intent before declining.
type ChargeDeclinedError struct {
	Reason    string
	ChargeRef string
}

func (e ChargeDeclinedError) Error() string {
	return fmt.Sprintf("charge declined: %s", e.Reason)
}

// Is implements the errors.Is interface for ChargeDeclinedError
func (e ChargeDeclinedError) Is(target error) bool {
	t, ok := target.(ChargeDeclinedError)
	if !ok {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// ErrChargeTimeout indicates the charge outcome was not confirmed in time.
// The processor may still settle the intent named by ChargeRef.
type ErrChargeTimeout struct {
	ChargeRef string
}

func (e ErrChargeTimeout) Error() string {
	if e.ChargeRef == "" {
		return "charge not confirmed before timeout"
	}
	return "charge not confirmed before timeout: " + e.ChargeRef
}

// Is implements the errors.Is interface for ErrChargeTimeout
func (e ErrChargeTimeout) Is(target error) bool {
	_, ok := target.(ErrChargeTimeout)
	return ok
}
