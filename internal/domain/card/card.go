package card

import (
	"time"

	"github.com/google/uuid"
	"github.com/jit-funding-engine/internal/domain/shared"
)

// Status defines the lifecycle state of a virtual card
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusCanceled Status = "canceled" // terminal
)

// Type defines how many purchases a card may fund
type Type string

const (
	TypePermanent Type = "permanent"
	TypeSingleUse Type = "single_use"
)

// VirtualCard represents an issued card funded at authorization time
type VirtualCard struct {
	ID            uuid.UUID  `json:"id"`
	AccountID     uuid.UUID  `json:"account_id"`
	ExternalRef   string     `json:"external_ref"`
	Status        Status     `json:"status"`
	Type          Type       `json:"card_type"`
	SpendingLimit *int64     `json:"spending_limit,omitempty"` // cents per calendar month
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Account represents a cardholder account and its funding processor customer
type Account struct {
	ID          uuid.UUID `json:"id"`
	CustomerRef string    `json:"customer_ref"`
	CreatedAt   time.Time `json:"created_at"`
}

// Resolved is the outcome of resolving an external card reference
type Resolved struct {
	Card        *VirtualCard
	OwnerID     uuid.UUID
	CustomerRef string // funding processor customer of the owner
}

// Fundable reports whether the card may be funded at now. A false result
// carries the decline reason.
func (c *VirtualCard) Fundable(now time.Time) (bool, shared.DeclineReason) {
	switch c.Status {
	case StatusActive:
	case StatusCanceled:
		return false, shared.DeclineReasonCardCanceled
	default:
		return false, shared.DeclineReasonCardInactive
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return false, shared.DeclineReasonCardExpired
	}
	return true, ""
}

// MonthStart returns the first instant of the calendar month containing t, in UTC
func MonthStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}
