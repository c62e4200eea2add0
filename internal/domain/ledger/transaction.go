package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jit-funding-engine/internal/domain/shared"
)

var (
	ErrEmptyAuthorizationID = errors.New("authorization id cannot be empty")
	ErrInvalidAmount        = errors.New("merchant amount must be positive")
	ErrPromotionForbidden   = errors.New("a declined transaction cannot be approved")
)

// Transaction is a ledger row recording one authorization outcome. Amounts are in cents.
type Transaction struct {
	ID               uuid.UUID                `json:"id" bson:"transaction_id"`
	AuthorizationID  string                   `json:"authorization_id" bson:"authorization_id"`
	CardID           uuid.UUID                `json:"card_id" bson:"card_id"`
	AccountID        uuid.UUID                `json:"account_id" bson:"account_id"`
	MerchantAmount   int64                    `json:"merchant_amount" bson:"merchant_amount"`
	UserAmount       int64                    `json:"user_amount" bson:"user_amount"`
	Profit           int64                    `json:"profit" bson:"profit"`
	Status           shared.TransactionStatus `json:"status" bson:"status"`
	ChargeRef        *string                  `json:"charge_ref,omitempty" bson:"charge_ref,omitempty"`
	DeclineReason    shared.DeclineReason     `json:"decline_reason,omitempty" bson:"decline_reason,omitempty"`
	MerchantName     string                   `json:"merchant_name,omitempty" bson:"merchant_name,omitempty"`
	MerchantCategory string                   `json:"merchant_category,omitempty" bson:"merchant_category,omitempty"`
	CreatedAt        time.Time                `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at" bson:"updated_at"`
}

// NewClaim creates the fail-closed row that claims an authorization id.
// It stays declined with zero profit until Approve or Decline finalizes it.
func NewClaim(authorizationID string, cardID, accountID uuid.UUID, merchantAmount, userAmount int64) (*Transaction, error) {
	if authorizationID == "" {
		return nil, ErrEmptyAuthorizationID
	}
	if merchantAmount <= 0 {
		return nil, ErrInvalidAmount
	}
	now := time.Now().UTC()
	return &Transaction{
		ID:              uuid.New(),
		AuthorizationID: authorizationID,
		CardID:          cardID,
		AccountID:       accountID,
		MerchantAmount:  merchantAmount,
		UserAmount:      userAmount,
		Profit:          0,
		Status:          shared.TransactionStatusDeclined,
		DeclineReason:   shared.DeclineReasonPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Approve finalizes a claimed row after a confirmed charge
func (t *Transaction) Approve(chargeRef string) error {
	if t.DeclineReason != shared.DeclineReasonPending {
		return ErrPromotionForbidden
	}
	t.Status = shared.TransactionStatusApproved
	t.Profit = t.UserAmount - t.MerchantAmount
	t.ChargeRef = &chargeRef
	t.DeclineReason = ""
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Decline finalizes a claimed row as declined. chargeRef may be empty.
func (t *Transaction) Decline(reason shared.DeclineReason, chargeRef string) {
	t.Status = shared.TransactionStatusDeclined
	t.Profit = 0
	t.DeclineReason = reason
	if chargeRef != "" {
		t.ChargeRef = &chargeRef
	}
	t.UpdatedAt = time.Now().UTC()
}

// Approved reports whether the row currently records an approval
func (t *Transaction) Approved() bool {
	return t.Status == shared.TransactionStatusApproved
}

// ChargeReference returns the charge reference or an empty string
func (t *Transaction) ChargeReference() string {
	if t.ChargeRef == nil {
		return ""
	}
	return *t.ChargeRef
}
