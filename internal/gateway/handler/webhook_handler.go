package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	authorization "github.com/jit-funding-engine/internal/authorization/service"
	"github.com/jit-funding-engine/internal/domain/card"
	"github.com/jit-funding-engine/internal/domain/shared"
	"github.com/jit-funding-engine/internal/gateway/middleware"
	"github.com/jit-funding-engine/internal/gateway/service"
)

// APIVersionHeader is echoed on authorization decisions
const APIVersionHeader = "Api-Version"

// WebhookHandler routes verified issuer events by type
type WebhookHandler struct {
	decisions  authorization.DecisionService
	dispatcher service.OutcomeDispatcher
	linker     service.InstrumentLinker
	validate   *validator.Validate
	apiVersion string
	logger     *slog.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(
	logger *slog.Logger,
	decisions authorization.DecisionService,
	dispatcher service.OutcomeDispatcher,
	linker service.InstrumentLinker,
	apiVersion string,
) *WebhookHandler {
	return &WebhookHandler{
		decisions:  decisions,
		dispatcher: dispatcher,
		linker:     linker,
		validate:   validator.New(),
		apiVersion: apiVersion,
		logger:     logger,
	}
}

// Handle expects the body stored by middleware.VerifySignature
func (h *WebhookHandler) Handle(c *gin.Context) {
	var event WebhookEvent
	if err := json.Unmarshal(middleware.GetRawBody(c), &event); err != nil {
		RespondBadRequest(c, "Invalid event payload")
		return
	}
	if err := h.validate.Struct(&event); err != nil {
		RespondBadRequest(c, "Invalid event envelope: "+err.Error())
		return
	}

	logger := h.logger.With(
		"event_id", event.ID,
		"event_type", event.Type,
		"correlation_id", middleware.GetCorrelationID(c),
	)

	switch event.Type {
	case shared.EventTypeAuthorizationRequest:
		h.handleAuthorization(c, logger, &event)
	case shared.EventTypeChargeFailed, shared.EventTypePaymentFailed:
		h.handleChargeFailure(c, logger, &event)
	case shared.EventTypeSetupSucceeded:
		h.handleSetupSucceeded(c, logger, &event)
	default:
		logger.Debug("Ignoring unhandled event type")
		c.JSON(http.StatusOK, ReceivedResponse{Received: true})
	}
}

func (h *WebhookHandler) handleAuthorization(c *gin.Context, logger *slog.Logger, event *WebhookEvent) {
	c.Set(middleware.PanicResponseKey, DecisionResponse{Approved: false})
	if h.apiVersion != "" {
		c.Header(APIVersionHeader, h.apiVersion)
	}

	var object AuthorizationObject
	if err := h.decodeObject(event, &object); err != nil {
		logger.Warn("Rejecting malformed authorization request", "error", err)
		RespondBadRequest(c, "Invalid authorization payload")
		return
	}

	req := &shared.AuthorizationRequest{
		AuthorizationID:  object.ID,
		CardRef:          object.Card.ID,
		MerchantAmount:   object.MerchantAmount(),
		MerchantName:     object.MerchantData.Name,
		MerchantCategory: object.MerchantData.Category,
		CorrelationID:    middleware.GetCorrelationID(c),
	}

	decision, err := h.decisions.Decide(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, shared.ValidationError{}) {
			logger.Warn("Rejecting invalid authorization request", "authorization_id", object.ID, "error", err)
			RespondBadRequest(c, err.Error())
			return
		}
		logger.Error("Decision failed, declining", "authorization_id", object.ID, "error", err)
		c.JSON(http.StatusOK, DecisionResponse{Approved: false})
		return
	}

	c.JSON(http.StatusOK, DecisionResponse{Approved: decision.Approved})
}

func (h *WebhookHandler) handleChargeFailure(c *gin.Context, logger *slog.Logger, event *WebhookEvent) {
	outcome := &shared.ChargeOutcomeEvent{
		EventID:       event.ID,
		EventType:     event.Type,
		CorrelationID: middleware.GetCorrelationID(c),
		Timestamp:     eventTime(event.Created),
	}

	if event.Type == shared.EventTypeChargeFailed {
		var object ChargeObject
		if err := h.decodeObject(event, &object); err != nil {
			RespondBadRequest(c, "Invalid charge payload")
			return
		}
		outcome.ChargeRef = object.PaymentIntent
		outcome.FailureReason = firstNonEmpty(object.FailureCode, object.FailureMessage)
	} else {
		var object PaymentIntentObject
		if err := h.decodeObject(event, &object); err != nil {
			RespondBadRequest(c, "Invalid payment intent payload")
			return
		}
		outcome.ChargeRef = object.ID
		if object.LastPaymentError != nil {
			outcome.FailureReason = firstNonEmpty(object.LastPaymentError.Code, object.LastPaymentError.Message)
		}
	}

	if outcome.ChargeRef == "" {
		logger.Info("Ignoring charge failure without a payment reference")
		c.JSON(http.StatusOK, ReceivedResponse{Received: true})
		return
	}

	if err := h.dispatcher.Dispatch(c.Request.Context(), outcome); err != nil {
		logger.Error("Failed to dispatch charge failure", "charge_ref", outcome.ChargeRef, "error", err)
	}
	c.JSON(http.StatusOK, ReceivedResponse{Received: true})
}

func (h *WebhookHandler) handleSetupSucceeded(c *gin.Context, logger *slog.Logger, event *WebhookEvent) {
	var object SetupIntentObject
	if err := h.decodeObject(event, &object); err != nil {
		RespondBadRequest(c, "Invalid setup intent payload")
		return
	}

	if object.Customer == "" || object.PaymentMethod == "" {
		logger.Info("Ignoring setup intent without customer or payment method")
		c.JSON(http.StatusOK, ReceivedResponse{Received: true})
		return
	}

	_, err := h.linker.Link(c.Request.Context(), object.Customer, object.PaymentMethod)
	switch {
	case err == nil:
	case errors.Is(err, card.ErrAccountNotFound{}):
		logger.Warn("Ignoring setup intent for unknown customer", "customer_ref", object.Customer)
	default:
		logger.Error("Failed to link funding instrument",
			"customer_ref", object.Customer,
			"instrument_ref", object.PaymentMethod,
			"error", err,
		)
	}
	c.JSON(http.StatusOK, ReceivedResponse{Received: true})
}

func (h *WebhookHandler) decodeObject(event *WebhookEvent, target interface{}) error {
	if err := json.Unmarshal(event.Data.Object, target); err != nil {
		return err
	}
	return h.validate.Struct(target)
}

func eventTime(created int64) time.Time {
	if created <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(created, 0).UTC()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
