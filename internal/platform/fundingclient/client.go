// Package fundingclient talks to the funding processor through stripe-go.
// Every charge confirms off-session against a saved instrument and is
// classified into a funding.ChargeResult; only requests that cannot be built
// are errors.
package fundingclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/jit-funding-engine/internal/config"
	"github.com/jit-funding-engine/internal/domain/funding"
)

// ReasonProcessorUnavailable is reported when the request never reached the processor
const ReasonProcessorUnavailable = "processor_unavailable"

// Client implements funding.Processor over the Stripe API
type Client struct {
	api      *client.API
	currency string
	logger   *slog.Logger
}

// Client implements both processor interfaces
var (
	_ funding.Processor        = (*Client)(nil)
	_ funding.InstrumentLookup = (*Client)(nil)
)

// NewClient creates a processor client. The per-call bound comes from the
// caller's context, so the http.Client carries no timeout and the SDK never
// retries on its own.
func NewClient(logger *slog.Logger, cfg *config.FundingConfig) (*Client, error) {
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid funding base URL %q: %w", cfg.BaseURL, err)
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(strings.TrimRight(cfg.BaseURL, "/")),
		HTTPClient:        &http.Client{},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &leveledLogger{logger: logger},
	})

	return &Client{
		api: client.New(cfg.APIKey, &stripe.Backends{
			API:     backend,
			Connect: backend,
			Uploads: backend,
		}),
		currency: strings.ToLower(cfg.Currency),
		logger:   logger,
	}, nil
}

// Charge creates and confirms a payment intent for req
func (c *Client) Charge(ctx context.Context, req funding.ChargeRequest) (funding.ChargeResult, error) {
	if req.CustomerRef == "" || req.InstrumentRef == "" {
		return funding.ChargeResult{}, fmt.Errorf("charge for %s needs a customer and an instrument", req.AuthorizationID)
	}

	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = c.currency
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.AmountCents),
		Currency:      stripe.String(currency),
		Customer:      stripe.String(req.CustomerRef),
		PaymentMethod: stripe.String(req.InstrumentRef),
		Confirm:       stripe.Bool(true),
		OffSession:    stripe.Bool(true),
		Description:   stripe.String(req.Description),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.AddMetadata("authorization_id", req.AuthorizationID)

	intent, err := c.api.PaymentIntents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return c.classifyAPIError(req, stripeErr), nil
		}
		return c.classifyTransportError(ctx, req, err), nil
	}
	return classifyIntent(intent), nil
}

// LookupInstrument retrieves the card details of a saved payment method.
// Unlike Charge, every failure is returned as an error.
func (c *Client) LookupInstrument(ctx context.Context, instrumentRef string) (funding.InstrumentDetails, error) {
	params := &stripe.PaymentMethodParams{}
	params.Context = ctx

	pm, err := c.api.PaymentMethods.Get(instrumentRef, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			if stripeErr.HTTPStatusCode == http.StatusNotFound {
				return funding.InstrumentDetails{}, funding.ErrInstrumentNotFound{ExternalRef: instrumentRef}
			}
			return funding.InstrumentDetails{}, fmt.Errorf("failed to retrieve payment method %s: status %d: %w", instrumentRef, stripeErr.HTTPStatusCode, err)
		}
		return funding.InstrumentDetails{}, fmt.Errorf("failed to retrieve payment method %s: %w", instrumentRef, err)
	}

	if pm.Card == nil || pm.Card.Last4 == "" || pm.Card.Brand == "" {
		return funding.InstrumentDetails{}, funding.ErrMissingCardDetails
	}
	return funding.InstrumentDetails{Last4: pm.Card.Last4, Brand: string(pm.Card.Brand)}, nil
}

// classifyAPIError maps an error response. A 5xx leaves the intent's fate unknown.
func (c *Client) classifyAPIError(req funding.ChargeRequest, stripeErr *stripe.Error) funding.ChargeResult {
	var chargeRef string
	if stripeErr.PaymentIntent != nil {
		chargeRef = stripeErr.PaymentIntent.ID
	}

	if stripeErr.HTTPStatusCode >= 500 {
		c.logger.Warn("Funding processor returned server error",
			"authorization_id", req.AuthorizationID,
			"status", stripeErr.HTTPStatusCode,
			"request_id", stripeErr.RequestID)
		return funding.ChargeResult{Outcome: funding.OutcomeTimeout, ChargeRef: chargeRef}
	}

	return funding.ChargeResult{
		Outcome:   funding.OutcomeDeclined,
		ChargeRef: chargeRef,
		DeclineReason: firstNonEmpty(
			string(stripeErr.DeclineCode),
			string(stripeErr.Code),
			string(stripeErr.Type),
			"http_"+strconv.Itoa(stripeErr.HTTPStatusCode),
		),
	}
}

// classifyTransportError separates requests that never left this process from
// ones whose fate at the processor is unknown.
func (c *Client) classifyTransportError(ctx context.Context, req funding.ChargeRequest, err error) funding.ChargeResult {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), ctx.Err() != nil,
		errors.As(err, &netErr) && netErr.Timeout():
		c.logger.Warn("Charge timed out", "authorization_id", req.AuthorizationID, "error", err)
		return funding.ChargeResult{Outcome: funding.OutcomeTimeout}
	case isDialError(err):
		c.logger.Error("Funding processor unreachable", "authorization_id", req.AuthorizationID, "error", err)
		return funding.ChargeResult{Outcome: funding.OutcomeDeclined, DeclineReason: ReasonProcessorUnavailable}
	default:
		c.logger.Warn("Charge failed after send", "authorization_id", req.AuthorizationID, "error", err)
		return funding.ChargeResult{Outcome: funding.OutcomeTimeout}
	}
}

func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func classifyIntent(intent *stripe.PaymentIntent) funding.ChargeResult {
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return funding.ChargeResult{Outcome: funding.OutcomeSuccess, ChargeRef: intent.ID}
	case stripe.PaymentIntentStatusProcessing:
		return funding.ChargeResult{Outcome: funding.OutcomeTimeout, ChargeRef: intent.ID}
	}

	reason := "charge_" + string(intent.Status)
	if intent.LastPaymentError != nil {
		reason = firstNonEmpty(string(intent.LastPaymentError.DeclineCode), string(intent.LastPaymentError.Code), reason)
	}
	return funding.ChargeResult{Outcome: funding.OutcomeDeclined, ChargeRef: intent.ID, DeclineReason: reason}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
