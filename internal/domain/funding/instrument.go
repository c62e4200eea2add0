package funding

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyInstrumentRef  = errors.New("instrument reference cannot be empty")
	ErrNoDefaultInstrument = errors.New("account has no default funding instrument")
	ErrMissingCardDetails  = errors.New("payment method carries no card details")
)

// Instrument represents a real payment method linked to an account
type Instrument struct {
	ID          uuid.UUID `json:"id"`
	AccountID   uuid.UUID `json:"account_id"`
	ExternalRef string    `json:"external_ref"`
	Last4       string    `json:"last4,omitempty"`
	Brand       string    `json:"brand,omitempty"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewInstrument creates a default instrument for the account
func NewInstrument(accountID uuid.UUID, externalRef, last4, brand string) (*Instrument, error) {
	if strings.TrimSpace(externalRef) == "" {
		return nil, ErrEmptyInstrumentRef
	}
	return &Instrument{
		ID:          uuid.New(),
		AccountID:   accountID,
		ExternalRef: externalRef,
		Last4:       last4,
		Brand:       strings.ToLower(brand),
		IsDefault:   true,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
