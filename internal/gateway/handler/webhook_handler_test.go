package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	authorization "github.com/jit-funding-engine/internal/authorization/service"
	"github.com/jit-funding-engine/internal/domain/card"
	"github.com/jit-funding-engine/internal/domain/shared"
	"github.com/jit-funding-engine/internal/gateway/guard"
	"github.com/jit-funding-engine/internal/gateway/middleware"
)

const testSecret = "whsec_test"

type webhookFixture struct {
	decisions  *MockDecisionService
	dispatcher *MockDispatcher
	linker     *MockLinker
	router     *gin.Engine
}

func newWebhookFixture() *webhookFixture {
	gin.SetMode(gin.TestMode)
	f := &webhookFixture{
		decisions:  new(MockDecisionService),
		dispatcher: new(MockDispatcher),
		linker:     new(MockLinker),
	}
	logger := newTestLogger()
	h := NewWebhookHandler(logger, f.decisions, f.dispatcher, f.linker, "2024-06-20")

	f.router = gin.New()
	f.router.Use(middleware.CorrelationID(), middleware.Recovery(logger))
	f.router.POST("/webhooks/issuing",
		middleware.VerifySignature(guard.NewVerifier(testSecret, 5*time.Minute), 1<<20, logger),
		h.Handle,
	)
	return f
}

func (f *webhookFixture) post(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/issuing", bytes.NewBufferString(body))
	req.Header.Set(guard.SignatureHeader, guard.Sign(testSecret, time.Now(), []byte(body)))
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

const authorizationEvent = `{
	"id": "evt_1",
	"type": "issuing_authorization.request",
	"created": 1760000000,
	"data": {"object": {
		"id": "iauth_1",
		"amount": 0,
		"pending_request": {"amount": 1000},
		"card": {"id": "ic_1"},
		"merchant_data": {"name": "Coffee Shop", "category": "eating_places"}
	}}
}`

func authorizationFor(id string, amount int64) interface{} {
	return mock.MatchedBy(func(req *shared.AuthorizationRequest) bool {
		return req.AuthorizationID == id && req.CardRef == "ic_1" && req.MerchantAmount == amount
	})
}

func TestWebhookHandler_Authorization(t *testing.T) {
	t.Run("approved with api version header", func(t *testing.T) {
		f := newWebhookFixture()
		f.decisions.On("Decide", mock.Anything, mock.MatchedBy(func(req *shared.AuthorizationRequest) bool {
			return req.AuthorizationID == "iauth_1" &&
				req.CardRef == "ic_1" &&
				req.MerchantAmount == 1000 &&
				req.MerchantName == "Coffee Shop" &&
				req.MerchantCategory == "eating_places" &&
				req.CorrelationID != ""
		})).Return(&authorization.Decision{AuthorizationID: "iauth_1", Approved: true}, nil).Once()

		rr := f.post(authorizationEvent)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"approved":true}`, rr.Body.String())
		assert.Equal(t, "2024-06-20", rr.Header().Get(APIVersionHeader))
		f.decisions.AssertExpectations(t)
	})

	t.Run("falls back to amount without pending request", func(t *testing.T) {
		f := newWebhookFixture()
		f.decisions.On("Decide", mock.Anything, authorizationFor("iauth_2", 2500)).
			Return(&authorization.Decision{AuthorizationID: "iauth_2", Reason: shared.DeclineReasonNoFundingInstrument}, nil).Once()

		rr := f.post(`{"id":"evt_2","type":"issuing_authorization.request","data":{"object":{"id":"iauth_2","amount":2500,"card":{"id":"ic_1"}}}}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"approved":false}`, rr.Body.String())
		f.decisions.AssertExpectations(t)
	})

	t.Run("validation error answers 400", func(t *testing.T) {
		f := newWebhookFixture()
		f.decisions.On("Decide", mock.Anything, authorizationFor("iauth_3", 0)).
			Return(nil, shared.ValidationError{Field: "amount", Reason: "must be positive"}).Once()

		rr := f.post(`{"id":"evt_3","type":"issuing_authorization.request","data":{"object":{"id":"iauth_3","card":{"id":"ic_1"}}}}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unexpected error declines", func(t *testing.T) {
		f := newWebhookFixture()
		f.decisions.On("Decide", mock.Anything, authorizationFor("iauth_1", 1000)).Return(nil, errors.New("boom")).Once()

		rr := f.post(authorizationEvent)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"approved":false}`, rr.Body.String())
	})

	t.Run("panic declines", func(t *testing.T) {
		f := newWebhookFixture()
		f.decisions.On("Decide", mock.Anything, authorizationFor("iauth_1", 1000)).Panic("nil map").Once()

		rr := f.post(authorizationEvent)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"approved":false}`, rr.Body.String())
	})

	t.Run("missing card answers 400 without deciding", func(t *testing.T) {
		f := newWebhookFixture()

		rr := f.post(`{"id":"evt_4","type":"issuing_authorization.request","data":{"object":{"id":"iauth_4","amount":100}}}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		f.decisions.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything)
	})
}

func TestWebhookHandler_ChargeFailures(t *testing.T) {
	outcomeFor := func(eventType, ref, reason string) interface{} {
		return mock.MatchedBy(func(e *shared.ChargeOutcomeEvent) bool {
			return e.EventType == eventType && e.ChargeRef == ref && e.FailureReason == reason && !e.Timestamp.IsZero()
		})
	}

	tests := []struct {
		name     string
		body     string
		setup    func(d *MockDispatcher)
		dispatch bool
	}{
		{
			name: "charge failed",
			body: `{"id":"evt_5","type":"charge.failed","created":1760000000,"data":{"object":{"id":"ch_1","payment_intent":"pi_1","failure_code":"card_declined"}}}`,
			setup: func(d *MockDispatcher) {
				d.On("Dispatch", mock.Anything, outcomeFor(shared.EventTypeChargeFailed, "pi_1", "card_declined")).Return(nil).Once()
			},
			dispatch: true,
		},
		{
			name: "payment intent failed",
			body: `{"id":"evt_6","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_2","last_payment_error":{"code":"insufficient_funds"}}}}`,
			setup: func(d *MockDispatcher) {
				d.On("Dispatch", mock.Anything, outcomeFor(shared.EventTypePaymentFailed, "pi_2", "insufficient_funds")).Return(nil).Once()
			},
			dispatch: true,
		},
		{
			name: "dispatch failure still acknowledged",
			body: `{"id":"evt_7","type":"charge.failed","data":{"object":{"id":"ch_2","payment_intent":"pi_3"}}}`,
			setup: func(d *MockDispatcher) {
				d.On("Dispatch", mock.Anything, outcomeFor(shared.EventTypeChargeFailed, "pi_3", "")).Return(errors.New("db down")).Once()
			},
			dispatch: true,
		},
		{
			name:  "charge without payment intent ignored",
			body:  `{"id":"evt_8","type":"charge.failed","data":{"object":{"id":"ch_3"}}}`,
			setup: func(d *MockDispatcher) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWebhookFixture()
			tt.setup(f.dispatcher)

			rr := f.post(tt.body)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.JSONEq(t, `{"received":true}`, rr.Body.String())
			if tt.dispatch {
				f.dispatcher.AssertExpectations(t)
			} else {
				f.dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestWebhookHandler_SetupIntent(t *testing.T) {
	body := `{"id":"evt_9","type":"setup_intent.succeeded","data":{"object":{"id":"seti_1","customer":"cus_1","payment_method":"pm_1"}}}`

	linkResults := map[string]error{
		"linked":           nil,
		"unknown customer": card.ErrAccountNotFound{Ref: "cus_1"},
		"lookup failure":   errors.New("lookup failed"),
	}
	for name, linkErr := range linkResults {
		t.Run(name, func(t *testing.T) {
			f := newWebhookFixture()
			f.linker.On("Link", mock.Anything, "cus_1", "pm_1").Return(nil, linkErr).Once()

			rr := f.post(body)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.JSONEq(t, `{"received":true}`, rr.Body.String())
			f.linker.AssertExpectations(t)
		})
	}

	t.Run("missing payment method ignored", func(t *testing.T) {
		f := newWebhookFixture()

		rr := f.post(`{"id":"evt_10","type":"setup_intent.succeeded","data":{"object":{"id":"seti_2","customer":"cus_1"}}}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		f.linker.AssertNotCalled(t, "Link", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestWebhookHandler_Envelope(t *testing.T) {
	t.Run("unknown type acknowledged", func(t *testing.T) {
		f := newWebhookFixture()

		rr := f.post(`{"id":"evt_11","type":"customer.created","data":{"object":{"id":"cus_1"}}}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"received":true}`, rr.Body.String())
	})

	t.Run("malformed json", func(t *testing.T) {
		f := newWebhookFixture()
		assert.Equal(t, http.StatusBadRequest, f.post(`{"id":`).Code)
	})

	t.Run("missing object", func(t *testing.T) {
		f := newWebhookFixture()
		assert.Equal(t, http.StatusBadRequest, f.post(`{"id":"evt_12","type":"charge.failed","data":{}}`).Code)
	})

	t.Run("bad signature has no side effects", func(t *testing.T) {
		f := newWebhookFixture()
		req := httptest.NewRequest(http.MethodPost, "/webhooks/issuing", bytes.NewBufferString(authorizationEvent))
		req.Header.Set(guard.SignatureHeader, guard.Sign("whsec_wrong", time.Now(), []byte(authorizationEvent)))
		rr := httptest.NewRecorder()
		f.router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		f.decisions.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything)
	})
}
