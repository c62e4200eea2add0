package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/jit-funding-engine/internal/domain/card"
	"github.com/jit-funding-engine/internal/domain/funding"
	"github.com/jit-funding-engine/internal/platform/persistence"
)

// InstrumentLinkerImpl implements the InstrumentLinker interface
type InstrumentLinkerImpl struct {
	txRunner       persistence.TxRunner
	cardRepo       card.Repository
	instrumentRepo funding.Repository
	lookup         funding.InstrumentLookup
	logger         *slog.Logger
}

// NewInstrumentLinker creates a new instrument linker
func NewInstrumentLinker(
	logger *slog.Logger,
	txRunner persistence.TxRunner,
	cardRepo card.Repository,
	instrumentRepo funding.Repository,
	lookup funding.InstrumentLookup,
) InstrumentLinker {
	return &InstrumentLinkerImpl{
		txRunner:       txRunner,
		cardRepo:       cardRepo,
		instrumentRepo: instrumentRepo,
		lookup:         lookup,
		logger:         logger,
	}
}

// Link makes instrumentRef the account's only default instrument. The old
// default is cleared and the new one stored in one database transaction, so
// a concurrent charge sees either the old or the new default. Concurrent links
// for one account serialize on the account row, and the last one wins.
func (l *InstrumentLinkerImpl) Link(ctx context.Context, customerRef, instrumentRef string) (*funding.Instrument, error) {
	account, err := l.cardRepo.GetAccountByCustomerRef(ctx, customerRef)
	if err != nil {
		return nil, err
	}

	details, err := l.lookup.LookupInstrument(ctx, instrumentRef)
	if err != nil {
		return nil, fmt.Errorf("failed to look up instrument %s: %w", instrumentRef, err)
	}

	instrument, err := funding.NewInstrument(account.ID, instrumentRef, details.Last4, details.Brand)
	if err != nil {
		return nil, err
	}

	err = l.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := l.cardRepo.WithTx(tx).LockAccount(ctx, account.ID); err != nil {
			return err
		}
		repo := l.instrumentRepo.WithTx(tx)
		if err := repo.ClearDefault(ctx, account.ID); err != nil {
			return err
		}
		return repo.Upsert(ctx, instrument)
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("Linked default funding instrument",
		"account_id", account.ID.String(),
		"instrument_ref", instrumentRef,
		"brand", instrument.Brand,
		"last4", instrument.Last4,
	)
	return instrument, nil
}
