package service

import (
	"context"

	"github.com/jit-funding-engine/internal/domain/shared"
)

// Outcome reports what reconciling one charge outcome event did to the ledger
type Outcome string

const (
	OutcomeDemoted         Outcome = "demoted"
	OutcomeAlreadyDeclined Outcome = "already_declined"
	OutcomeOrphan          Outcome = "orphan" // no row holds the charge reference
)

// ReconciliationService applies asynchronous charge failures to the ledger.
// Applying the same event any number of times leaves the same row state.
type ReconciliationService interface {
	Reconcile(ctx context.Context, event *shared.ChargeOutcomeEvent) (Outcome, error)
}

// CacheInvalidator drops a cached decision after its row changed
type CacheInvalidator interface {
	Delete(ctx context.Context, authorizationID string) error
}
