package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jit-funding-engine/internal/domain/card"
	"github.com/jit-funding-engine/internal/domain/ledger"
	"github.com/jit-funding-engine/internal/domain/shared"
	"github.com/jit-funding-engine/internal/gateway/service"
)

// TransactionHandler serves card activity and account spend
type TransactionHandler struct {
	activityService service.ActivityService
	logger          *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, activityService service.ActivityService) *TransactionHandler {
	return &TransactionHandler{
		activityService: activityService,
		logger:          logger,
	}
}

// GetByCardID lists a card's transactions, optionally filtered by status
func (h *TransactionHandler) GetByCardID(c *gin.Context) {
	idParam := c.Param("id")
	cardID, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid card ID")
		return
	}

	var query ActivityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.logger.Warn("Invalid activity query", "error", err)
		RespondBadRequest(c, "Invalid query parameters")
		return
	}

	txns, total, err := h.activityService.ListCardTransactions(
		c.Request.Context(),
		cardID,
		shared.TransactionStatus(query.Status),
		query.Page,
		query.PerPage,
	)
	if err != nil {
		if errors.Is(err, card.ErrCardNotFound{}) {
			RespondNotFound(c, "Card not found")
			return
		}
		h.logger.Error("Failed to list card transactions", "card_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	transactions := make([]TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		transactions = append(transactions, mapTransactionToResponse(txn))
	}

	RespondWithPaginatedData(c, transactions, query.Page, query.PerPage, total)
}

// GetAccountSpend returns the approved merchant total of an account
func (h *TransactionHandler) GetAccountSpend(c *gin.Context) {
	idParam := c.Param("id")
	accountID, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	total, err := h.activityService.TotalSpent(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, card.ErrAccountNotFound{}) {
			RespondNotFound(c, "Account not found")
			return
		}
		h.logger.Error("Failed to compute account spend", "account_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, SpendResponse{AccountID: accountID.String(), TotalSpent: total})
}

func mapTransactionToResponse(txn *ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:               txn.ID.String(),
		AuthorizationID:  txn.AuthorizationID,
		CardID:           txn.CardID.String(),
		MerchantAmount:   txn.MerchantAmount,
		UserAmount:       txn.UserAmount,
		Profit:           txn.Profit,
		Status:           string(txn.Status),
		DeclineReason:    string(txn.DeclineReason),
		ChargeRef:        txn.ChargeReference(),
		MerchantName:     txn.MerchantName,
		MerchantCategory: txn.MerchantCategory,
		CreatedAt:        txn.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        txn.UpdatedAt.Format(time.RFC3339),
	}
}
