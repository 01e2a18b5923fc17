package middleware

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lorahealth/lora/backend/internal/apierror"
	"github.com/lorahealth/lora/backend/internal/logger"
	"github.com/lorahealth/lora/backend/internal/repository"
)

const (
	// IdempotencyKeyHeader is the HTTP header name for idempotency keys
	IdempotencyKeyHeader = "Idempotency-Key"

	// maxIdempotencyKeyLength bounds the client-supplied key stored in the KV store
	maxIdempotencyKeyLength = 255
)

// idempotencyBodyWriter wraps gin.ResponseWriter to capture the response body for idempotency caching
type idempotencyBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *idempotencyBodyWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the cached 2xx response for a repeated Idempotency-Key on
// the same route and user. Requests without the header, and non-POST/PUT
// requests, pass through. Must run after Auth.
func Idempotency(repo repository.IdempotencyRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != http.MethodPost && method != http.MethodPut {
			c.Next()
			return
		}

		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}

		log := logger.Ctx(c.Request.Context())

		if len(key) > maxIdempotencyKeyLength {
			apierror.WriteProblem(c, apierror.NewBadRequestError(
				apierror.GetRequestID(c),
				"Idempotency-Key must be at most 255 characters",
				"The request could not be processed.",
			))
			return
		}

		userID, ok := UserID(c)
		if !ok {
			log.Warn("idempotency check failed: no user_id in context")
			apierror.WriteProblem(c, apierror.NewUnauthorizedError(apierror.GetRequestID(c)))
			return
		}

		route := method + " " + c.FullPath()

		existing, err := repo.Get(c.Request.Context(), key, route, userID)
		if err != nil {
			// Proceed without idempotency rather than blocking a valid request
			log.Error("failed to check idempotency key",
				logger.Err(err),
				logger.String("key", key),
			)
			c.Next()
			return
		}

		if existing != nil {
			log.Info("replaying idempotent response",
				logger.String("key", key),
				logger.String("route", route),
				logger.Int("status_code", existing.StatusCode),
			)

			c.Header("X-Idempotency-Replayed", "true")
			c.Data(existing.StatusCode, "application/json; charset=utf-8", existing.ResponseBody)
			c.Abort()
			return
		}

		blw := &idempotencyBodyWriter{
			body:           bytes.NewBuffer(nil),
			ResponseWriter: c.Writer,
		}
		c.Writer = blw

		c.Next()

		statusCode := c.Writer.Status()
		if statusCode < 200 || statusCode >= 300 {
			return
		}
		if err := repo.Store(c.Request.Context(), key, route, userID, blw.body.Bytes(), statusCode); err != nil {
			log.Warn("failed to store idempotency key",
				logger.Err(err),
				logger.String("key", key),
			)
			return
		}
		log.Debug("stored idempotency key",
			logger.String("key", key),
			logger.String("route", route),
			logger.Int("status_code", statusCode),
		)
	}
}
