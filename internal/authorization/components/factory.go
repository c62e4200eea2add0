package components

import (
	"log/slog"

	"github.com/jit-funding-engine/internal/authorization/service"
	"github.com/jit-funding-engine/internal/config"
	"github.com/jit-funding-engine/internal/domain/card"
	"github.com/jit-funding-engine/internal/domain/funding"
	"github.com/jit-funding-engine/internal/domain/ledger"
	"github.com/jit-funding-engine/internal/domain/outbox"
	"github.com/jit-funding-engine/internal/platform/persistence"
	"github.com/jit-funding-engine/internal/pricing"
)

// Repositories groups the stores the decision path reads and writes
type Repositories struct {
	Cards       card.Repository
	Instruments funding.Repository
	Ledger      ledger.Repository
	Outbox      outbox.Repository
}

// CreateDecisionService wires the decision service with all its dependencies
func CreateDecisionService(
	txRunner persistence.TxRunner,
	repos Repositories,
	processor funding.Processor,
	cache service.DecisionCache,
	logger *slog.Logger,
	cfg *config.Config,
) (service.DecisionService, error) {
	pricingEngine, err := pricing.NewEngineFromConfig(cfg.Pricing)
	if err != nil {
		return nil, err
	}

	resolver := NewCardResolver(repos.Cards, logger)
	policy := NewCardPolicy(repos.Cards, repos.Ledger, logger)
	charger := NewCharger(repos.Instruments, processor, cfg.Funding.Currency, cfg.Decision.ChargeTimeout, logger)
	recorder := NewRecorder(repos.Ledger, repos.Outbox, logger)

	logger.Info("Created decision service",
		"fee_rate", cfg.Pricing.FeeRate,
		"fixed_fee_cents", cfg.Pricing.FixedFeeCents,
		"charge_timeout", cfg.Decision.ChargeTimeout.String(),
		"record_timeout", cfg.Decision.RecordTimeout.String())

	return service.NewDecisionService(
		txRunner,
		repos.Ledger,
		cache,
		resolver,
		policy,
		pricingEngine,
		charger,
		recorder,
		cfg.Decision.RecordTimeout,
		logger,
	), nil
}
