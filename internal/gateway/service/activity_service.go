package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jit-funding-engine/internal/domain/card"
	"github.com/jit-funding-engine/internal/domain/ledger"
	"github.com/jit-funding-engine/internal/domain/shared"
)

// ActivityServiceImpl implements the ActivityService interface
type ActivityServiceImpl struct {
	cardRepo     card.Repository
	ledgerRepo   ledger.Repository
	activityRepo ledger.ActivityRepository
	logger       *slog.Logger
}

// NewActivityService creates a new activity service. Listings come from the
// Mongo read model; totals come from the Postgres ledger.
func NewActivityService(logger *slog.Logger, cardRepo card.Repository, ledgerRepo ledger.Repository, activityRepo ledger.ActivityRepository) ActivityService {
	return &ActivityServiceImpl{
		cardRepo:     cardRepo,
		ledgerRepo:   ledgerRepo,
		activityRepo: activityRepo,
		logger:       logger,
	}
}

func (s *ActivityServiceImpl) ListCardTransactions(ctx context.Context, cardID uuid.UUID, status shared.TransactionStatus, page, perPage int) ([]*ledger.Transaction, int64, error) {
	if _, err := s.cardRepo.GetByID(ctx, cardID); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	txns, err := s.activityRepo.GetByCardID(ctx, cardID, status, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list card activity: %w", err)
	}

	total, err := s.activityRepo.CountByCardID(ctx, cardID, status)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count card activity: %w", err)
	}

	return txns, total, nil
}

func (s *ActivityServiceImpl) TotalSpent(ctx context.Context, accountID uuid.UUID) (int64, error) {
	if _, err := s.cardRepo.GetAccountByID(ctx, accountID); err != nil {
		return 0, err
	}

	total, err := s.ledgerRepo.SumApprovedByAccount(ctx, accountID)
	if err != nil {
		s.logger.Error("Failed to sum approved spend", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to sum approved spend: %w", err)
	}
	return total, nil
}
