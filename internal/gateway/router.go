package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jit-funding-engine/internal/config"
	"github.com/jit-funding-engine/internal/gateway/guard"
	"github.com/jit-funding-engine/internal/gateway/handler"
	"github.com/jit-funding-engine/internal/gateway/middleware"
)

// setupRouter configures the webhook endpoint, the read API and health checks
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	cfg *config.Config,
	webhookHandler *handler.WebhookHandler,
	transactionHandler *handler.TransactionHandler,
) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))

	verifier := guard.NewVerifier(cfg.Webhook.SigningSecret, cfg.Webhook.Tolerance)
	r.POST("/webhooks/issuing",
		middleware.VerifySignature(verifier, cfg.Webhook.MaxBodyBytes, logger),
		middleware.Deadline(cfg.Decision.Deadline),
		webhookHandler.Handle,
	)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/cards/:id/transactions", transactionHandler.GetByCardID)
		v1.GET("/accounts/:id/spend", transactionHandler.GetAccountSpend)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
