package shared

import "fmt"

// AuthorizationRequest is a card network's real-time request to approve a purchase.
// MerchantAmount is in minor units.
type AuthorizationRequest struct {
	AuthorizationID  string
	CardRef          string
	MerchantAmount   int64
	MerchantName     string
	MerchantCategory string
	CorrelationID    string
}

// ValidationError reports a malformed inbound payload
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is implements the errors.Is interface for ValidationError
func (e ValidationError) Is(target error) bool {
	t, ok := target.(ValidationError)
	if !ok {
		return false
	}
	return t.Field == "" || t.Field == e.Field
}

// Validate checks the fields required to reach a decision
func (r *AuthorizationRequest) Validate() error {
	if r.AuthorizationID == "" {
		return ValidationError{Field: "authorization_id", Reason: "is required"}
	}
	if r.CardRef == "" {
		return ValidationError{Field: "card", Reason: "is required"}
	}
	if r.MerchantAmount <= 0 {
		return ValidationError{Field: "amount", Reason: "must be positive"}
	}
	return nil
}

// MerchantLabel returns the merchant name used in charge descriptions
func (r *AuthorizationRequest) MerchantLabel() string {
	if r.MerchantName == "" {
		return "merchant"
	}
	return r.MerchantName
}
