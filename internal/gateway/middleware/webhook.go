package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jit-funding-engine/internal/gateway/guard"
)

// RawBodyKey stores the verified request body in the gin context
const RawBodyKey = "raw_body"

// VerifySignature reads the body once, authenticates it and hands the exact
// bytes to the handler. Unauthenticated requests never reach a handler.
func VerifySignature(verifier *guard.Verifier, maxBodyBytes int64, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				abortWithError(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
				return
			}
			abortWithError(c, http.StatusBadRequest, "INVALID_BODY", "Could not read request body")
			return
		}

		if err := verifier.Verify(body, c.GetHeader(guard.SignatureHeader)); err != nil {
			logger.Warn("Rejected webhook with invalid signature",
				"correlation_id", GetCorrelationID(c),
				"client_ip", c.ClientIP(),
				"error", err,
			)
			abortWithError(c, http.StatusBadRequest, "INVALID_SIGNATURE", "Webhook signature verification failed")
			return
		}

		c.Set(RawBodyKey, body)
		c.Next()
	}
}

// GetRawBody returns the verified body or nil
func GetRawBody(c *gin.Context) []byte {
	if v, ok := c.Get(RawBodyKey); ok {
		if body, ok := v.([]byte); ok {
			return body
		}
	}
	return nil
}

// Deadline bounds the request context
func Deadline(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
