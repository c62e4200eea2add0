package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// PanicResponseKey holds a body a handler wants written with 200 if it
// panics. The authorization webhook sets {"approved": false} so the issuer
// never falls back to its own default on a crash.
const PanicResponseKey = "panic_response"

// Recovery catches panics, logs them with the stack and answers with either
// the handler's registered fallback or a 500.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			logger.Error("Panic recovered",
				"error", r,
				"stack", string(debug.Stack()),
				"route", c.FullPath(),
				"method", c.Request.Method,
				"correlation_id", GetCorrelationID(c),
			)

			if fallback, ok := c.Get(PanicResponseKey); ok {
				c.AbortWithStatusJSON(http.StatusOK, fallback)
				return
			}

			response := gin.H{
				"error": gin.H{
					"code":    "INTERNAL_SERVER_ERROR",
					"message": "An internal server error occurred",
				},
			}
			if correlationID := GetCorrelationID(c); correlationID != "" {
				response["correlation_id"] = correlationID
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, response)
		}()

		c.Next()
	}
}
