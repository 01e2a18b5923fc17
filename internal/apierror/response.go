package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ContentTypeProblemJSON is the MIME type for RFC 9457 Problem Details.
const ContentTypeProblemJSON = "application/problem+json"

// WriteProblem writes a ProblemDetails response to the gin context and aborts the chain.
// Instance defaults to the request path. If RetryAfter is set, the Retry-After header is set too.
func WriteProblem(c *gin.Context, problem *ProblemDetails) {
	if problem.Instance == "" && c.Request != nil {
		problem.Instance = c.Request.URL.Path
	}

	c.Header("Content-Type", ContentTypeProblemJSON)
	if problem.RetryAfter != nil {
		c.Header("Retry-After", strconv.Itoa(*problem.RetryAfter))
	}

	c.AbortWithStatusJSON(problem.Status, problem)
}

// GetRequestID extracts the request ID from the gin context.
// Returns empty string if not found.
func GetRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// NewValidationError creates a 400 Bad Request response for validation failures.
func NewValidationError(requestID string, errors []FieldError) *ProblemDetails {
	return &ProblemDetails{
		Type:        TypeValidation,
		Title:       TitleValidation,
		Status:      http.StatusBadRequest,
		Detail:      "One or more fields failed validation",
		RequestID:   requestID,
		UserMessage: "Please check your input and try again",
		Errors:      errors,
	}
}

// FromBindError converts a gin binding error into a problem. Validator failures
// become per-field errors; anything else (malformed JSON, wrong types) is a bad request.
func FromBindError(requestID string, err error) *ProblemDetails {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewBadRequestError(requestID, err.Error(), "The request body could not be read")
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field:   fieldPath(fe),
			Message: validationMessage(fe),
			Code:    fe.Tag(),
		})
	}
	return NewValidationError(requestID, fields)
}

// fieldPath drops the top-level struct name from the namespace: IngestSamplesRequest.Samples[2].Kind -> Samples[2].Kind
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "sample_kind":
		return "must be one of steps, heart_rate, sleep, active_energy, distance"
	case "gtefield":
		return fmt.Sprintf("must not be before %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	case "min":
		return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// NewBadRequestError creates a 400 Bad Request response for malformed requests.
func NewBadRequestError(requestID, detail, userMessage string) *ProblemDetails {
	return &ProblemDetails{
		Type:        TypeBadRequest,
		Title:       TitleBadRequest,
		Status:      http.StatusBadRequest,
		Detail:      detail,
		RequestID:   requestID,
		UserMessage: userMessage,
	}
}

// NewUnauthorizedError creates a 401 Unauthorized response.
func NewUnauthorizedError(requestID string) *ProblemDetails {
	return &ProblemDetails{
		Type:        TypeUnauthorized,
		Title:       TitleUnauthorized,
		Status:      http.StatusUnauthorized,
		Detail:      "Authentication is required to access this resource",
		RequestID:   requestID,
		UserMessage: "Please sign in to continue",
		Action:      "authenticate",
	}
}

// NewConsentRequiredError creates a 403 response for cloud AI use without consent.
func NewConsentRequiredError(requestID string) *ProblemDetails {
	return &ProblemDetails{
		Type:        TypeConsentRequired,
		Title:       TitleConsentRequired,
		Status:      http.StatusForbidden,
		Detail:      "AI privacy consent is required before selecting a cloud provider",
		RequestID:   requestID,
		UserMessage: "Allow AI processing in your privacy settings to use this assistant",
		Action:      "grant_ai_consent",
	}
}

// NewNotFoundError creates a 404 Not Found response.
func NewNotFoundError(requestID, resource string) *ProblemDetails {
	return &ProblemDetails{
		Type:        TypeNotFound,
		Title:       TitleNotFound,
		Status:      http.StatusNotFound,
		Detail:      fmt.Sprintf("%s was not found", resource),
		RequestID:   requestID,
		UserMessage: "The requested resource could not be found",
	}
}

// NewRateLimitError creates a 429 Too Many Requests response.
// retryAfter specifies seconds until the client should retry.
func NewRateLimitError(requestID string, retryAfter int) *ProblemDetails {
	return &ProblemDetails{
		Type:        TypeRateLimit,
		Title:       TitleRateLimit,
		Status:      http.StatusTooManyRequests,
		Detail:      fmt.Sprintf("Rate limit exceeded. Please retry after %d seconds", retryAfter),
		RequestID:   requestID,
		UserMessage: "Too many requests. Please wait before trying again.",
		RetryAfter:  &retryAfter,
	}
}

// NewInternalError creates a 500 Internal Server Error response.
// Internal details are never sent to the client; log them server-side.
func NewInternalError(requestID string) *ProblemDetails {
	return &ProblemDetails{
		Type:        TypeInternal,
		Title:       TitleInternal,
		Status:      http.StatusInternalServerError,
		Detail:      "An unexpected error occurred",
		RequestID:   requestID,
		UserMessage: "Something went wrong. Please try again later.",
	}
}

// NewDataUnavailableError creates a 503 response for a total health data failure.
// detail carries the "Failed to fetch: ..." message naming every failed metric.
func NewDataUnavailableError(requestID, detail string, failed []string) *ProblemDetails {
	retryAfter := 30
	return &ProblemDetails{
		Type:          TypeDataUnavailable,
		Title:         TitleDataUnavailable,
		Status:        http.StatusServiceUnavailable,
		Detail:        detail,
		RequestID:     requestID,
		UserMessage:   "Make sure Lora has access to your health data and try again.",
		RetryAfter:    &retryAfter,
		Action:        "grant_health_access",
		FailedMetrics: failed,
	}
}
