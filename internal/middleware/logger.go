package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lorahealth/lora/backend/internal/logger"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

// Logger assigns a request ID, stores a request-scoped logger in the request
// context and logs each request once it completes.
func Logger(base logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		ctx := logger.WithRequestID(c.Request.Context(), c.GetHeader(RequestIDHeader))
		requestID := logger.RequestIDFromContext(ctx)
		ctx = logger.WithLogger(ctx, base)
		c.Request = c.Request.WithContext(ctx)

		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", status),
			logger.Duration("latency", time.Since(start)),
			logger.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logger.String("errors", c.Errors.String()))
		}

		// The auth middleware replaces the request context, so read IDs from it here
		log := logger.Ctx(c.Request.Context())
		switch {
		case status >= 500:
			log.Error("request completed", fields...)
		case status >= 400:
			log.Warn("request completed", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}
