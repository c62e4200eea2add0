// Package pricing computes the amount charged to a cardholder for a merchant amount.
package pricing

import (
	"errors"
	"fmt"

	"github.com/jit-funding-engine/internal/config"
	"github.com/shopspring/decimal"
)

var (
	ErrNonPositiveAmount = errors.New("merchant amount must be positive")
	ErrNegativeFeeRate   = errors.New("fee rate must not be negative")
	ErrNegativeFixedFee  = errors.New("fixed fee must not be negative")
)

// Quote is the priced outcome for one merchant amount, in cents
type Quote struct {
	MerchantAmount int64
	UserAmount     int64
	Profit         int64
}

// Engine applies a percentage markup plus a fixed fee
type Engine struct {
	multiplier    decimal.Decimal
	fixedFeeCents int64
}

// NewEngine creates an engine for feeRate (e.g. 0.05) and fixedFeeCents
func NewEngine(feeRate decimal.Decimal, fixedFeeCents int64) (*Engine, error) {
	if feeRate.IsNegative() {
		return nil, ErrNegativeFeeRate
	}
	if fixedFeeCents < 0 {
		return nil, ErrNegativeFixedFee
	}
	return &Engine{
		multiplier:    decimal.NewFromInt(1).Add(feeRate),
		fixedFeeCents: fixedFeeCents,
	}, nil
}

// NewEngineFromConfig parses the configured fee rate
func NewEngineFromConfig(cfg config.PricingConfig) (*Engine, error) {
	rate, err := decimal.NewFromString(cfg.FeeRate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fee rate %q: %w", cfg.FeeRate, err)
	}
	return NewEngine(rate, cfg.FixedFeeCents)
}

// Price returns userAmount = round_half_up(merchantAmount * (1 + feeRate)) + fixedFee
// and profit = userAmount - merchantAmount.
func (e *Engine) Price(merchantAmount int64) (Quote, error) {
	if merchantAmount <= 0 {
		return Quote{}, ErrNonPositiveAmount
	}

	// Round(0) rounds half away from zero, which is half-up for positive amounts.
	marked := decimal.NewFromInt(merchantAmount).Mul(e.multiplier).Round(0)
	userAmount := marked.IntPart() + e.fixedFeeCents

	return Quote{
		MerchantAmount: merchantAmount,
		UserAmount:     userAmount,
		Profit:         userAmount - merchantAmount,
	}, nil
}
