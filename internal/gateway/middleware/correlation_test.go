package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func serveCorrelated(headers map[string]string) (*httptest.ResponseRecorder, string) {
	router := gin.New()
	router.Use(CorrelationID())
	var captured string
	router.POST("/webhooks/issuing", func(c *gin.Context) {
		captured = GetCorrelationID(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/issuing", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr, captured
}

func TestCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("generated when absent", func(t *testing.T) {
		rr, captured := serveCorrelated(nil)

		header := rr.Header().Get(CorrelationIDHeader)
		_, err := uuid.Parse(header)
		assert.NoError(t, err)
		assert.Equal(t, header, captured)
	})

	t.Run("explicit header wins", func(t *testing.T) {
		rr, captured := serveCorrelated(map[string]string{
			CorrelationIDHeader:  "corr-1",
			IdempotencyKeyHeader: "delivery-1",
		})

		assert.Equal(t, "corr-1", rr.Header().Get(CorrelationIDHeader))
		assert.Equal(t, "corr-1", captured)
	})

	t.Run("falls back to delivery key", func(t *testing.T) {
		rr, captured := serveCorrelated(map[string]string{IdempotencyKeyHeader: "delivery-1"})

		assert.Equal(t, "delivery-1", rr.Header().Get(CorrelationIDHeader))
		assert.Equal(t, "delivery-1", captured)
	})
}

func TestGetCorrelationID_Missing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, GetCorrelationID(c))

	c.Set(CorrelationIDKey, 12345)
	assert.Empty(t, GetCorrelationID(c))
}
