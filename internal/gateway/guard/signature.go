// Package guard authenticates inbound webhook events. A signature header has
// the form "t=<unix seconds>,v1=<hex>[,v1=<hex>...]" where each v1 value is
// HMAC-SHA256 over "<t>.<raw body>" keyed with the shared signing secret.
// Verification is delegated to stripe-go's webhook package.
package guard

import (
	"errors"
	"time"

	"github.com/stripe/stripe-go/v76/webhook"
)

// SignatureHeader carries the event signature
const SignatureHeader = "Webhook-Signature"

var (
	ErrMissingSignature   = errors.New("missing webhook signature")
	ErrMalformedSignature = errors.New("malformed webhook signature header")
	ErrStaleTimestamp     = errors.New("webhook timestamp outside tolerance")
	ErrSignatureMismatch  = errors.New("no webhook signature matches the payload")
)

// Verifier checks signatures against one shared secret
type Verifier struct {
	secret    string
	tolerance time.Duration
}

// NewVerifier creates a verifier rejecting timestamps older than tolerance
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{
		secret:    secret,
		tolerance: tolerance,
	}
}

// Verify returns nil when any v1 signature in header matches payload
func (v *Verifier) Verify(payload []byte, header string) error {
	err := webhook.ValidatePayloadWithTolerance(payload, header, v.secret, v.tolerance)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, webhook.ErrNotSigned):
		return ErrMissingSignature
	case errors.Is(err, webhook.ErrInvalidHeader):
		return ErrMalformedSignature
	case errors.Is(err, webhook.ErrTooOld):
		return ErrStaleTimestamp
	default:
		return ErrSignatureMismatch
	}
}

// Sign produces a header value for payload at ts
func Sign(secret string, ts time.Time, payload []byte) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: ts,
	})
	return signed.Header
}
