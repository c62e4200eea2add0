package handler

import "encoding/json"

// WebhookEvent is the signed envelope of every issuer event
type WebhookEvent struct {
	ID      string `json:"id" validate:"required"`
	Type    string `json:"type" validate:"required"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object" validate:"required"`
	} `json:"data"`
}

// AuthorizationObject is the payload of issuing_authorization.request
type AuthorizationObject struct {
	ID             string `json:"id" validate:"required"`
	Amount         int64  `json:"amount"`
	PendingRequest *struct {
		Amount int64 `json:"amount"`
	} `json:"pending_request"`
	Card struct {
		ID string `json:"id" validate:"required"`
	} `json:"card"`
	MerchantData struct {
		Name     string `json:"name"`
		Category string `json:"category"`
	} `json:"merchant_data"`
}

// MerchantAmount prefers the amount still pending approval
func (o *AuthorizationObject) MerchantAmount() int64 {
	if o.PendingRequest != nil && o.PendingRequest.Amount != 0 {
		return o.PendingRequest.Amount
	}
	return o.Amount
}

// ChargeObject is the payload of charge.failed
type ChargeObject struct {
	ID             string `json:"id"`
	PaymentIntent  string `json:"payment_intent"`
	FailureCode    string `json:"failure_code"`
	FailureMessage string `json:"failure_message"`
}

// PaymentIntentObject is the payload of payment_intent.payment_failed
type PaymentIntentObject struct {
	ID               string `json:"id" validate:"required"`
	LastPaymentError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

// SetupIntentObject is the payload of setup_intent.succeeded
type SetupIntentObject struct {
	ID            string `json:"id"`
	Customer      string `json:"customer"`
	PaymentMethod string `json:"payment_method"`
}

// DecisionResponse answers an authorization request
type DecisionResponse struct {
	Approved bool `json:"approved"`
}

// ReceivedResponse acknowledges every other event
type ReceivedResponse struct {
	Received bool `json:"received"`
}

// TransactionResponse represents a ledger row in API responses
type TransactionResponse struct {
	ID               string `json:"id"`
	AuthorizationID  string `json:"authorization_id"`
	CardID           string `json:"card_id"`
	MerchantAmount   int64  `json:"merchant_amount"`
	UserAmount       int64  `json:"user_amount"`
	Profit           int64  `json:"profit"`
	Status           string `json:"status"`
	DeclineReason    string `json:"decline_reason,omitempty"`
	ChargeRef        string `json:"charge_ref,omitempty"`
	MerchantName     string `json:"merchant_name,omitempty"`
	MerchantCategory string `json:"merchant_category,omitempty"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// SpendResponse reports approved spend of an account in cents
type SpendResponse struct {
	AccountID  string `json:"account_id"`
	TotalSpent int64  `json:"total_spent"`
}

// ActivityQuery holds pagination and filter parameters for activity listings
type ActivityQuery struct {
	Page    int    `form:"page,default=1" binding:"min=1"`
	PerPage int    `form:"per_page,default=10" binding:"min=1,max=100"`
	Status  string `form:"status" binding:"omitempty,oneof=approved declined"`
}
