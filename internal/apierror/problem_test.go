package apierror

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func init() {
	// Set gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

func TestProblemDetailsJSON(t *testing.T) {
	retryAfter := 30
	problem := &ProblemDetails{
		Type:          TypeDataUnavailable,
		Title:         TitleDataUnavailable,
		Status:        http.StatusServiceUnavailable,
		Detail:        "Failed to fetch: steps, heart rate",
		Instance:      "/api/v1/health/today",
		RequestID:     "req-abc123",
		UserMessage:   "Try again",
		RetryAfter:    &retryAfter,
		Action:        "grant_health_access",
		FailedMetrics: []string{"steps", "heart rate"},
	}

	data, err := json.Marshal(problem)
	if err != nil {
		t.Fatalf("Failed to marshal ProblemDetails: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}

	// Check standard RFC 9457 fields
	if result["type"] != TypeDataUnavailable {
		t.Errorf("Expected type=%q, got %q", TypeDataUnavailable, result["type"])
	}
	if result["status"] != float64(http.StatusServiceUnavailable) {
		t.Errorf("Expected status=%d, got %v", http.StatusServiceUnavailable, result["status"])
	}
	if result["instance"] != "/api/v1/health/today" {
		t.Errorf("Expected instance, got %v", result["instance"])
	}

	// Check extension fields
	if result["request_id"] != "req-abc123" {
		t.Errorf("Expected request_id=%q, got %q", "req-abc123", result["request_id"])
	}
	if result["retry_after"] != float64(30) {
		t.Errorf("Expected retry_after=30, got %v", result["retry_after"])
	}
	failed, ok := result["failed_metrics"].([]interface{})
	if !ok || len(failed) != 2 {
		t.Errorf("Expected 2 failed metrics, got %v", result["failed_metrics"])
	}
}

func TestProblemDetailsJSONOmitsEmpty(t *testing.T) {
	problem := &ProblemDetails{
		Type:   TypeInternal,
		Title:  TitleInternal,
		Status: http.StatusInternalServerError,
	}

	data, err := json.Marshal(problem)
	if err != nil {
		t.Fatalf("Failed to marshal ProblemDetails: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}

	omittedFields := []string{"detail", "instance", "request_id", "user_message", "retry_after", "action", "errors", "failed_metrics"}
	for _, field := range omittedFields {
		if _, exists := result[field]; exists {
			t.Errorf("Expected field %q to be omitted when empty, but it was present", field)
		}
	}

	for _, field := range []string{"type", "title", "status"} {
		if _, exists := result[field]; !exists {
			t.Errorf("Expected required field %q to be present", field)
		}
	}
}

func TestWriteProblem(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/api/v1/trends/weekly", nil)

	WriteProblem(c, NewInternalError("req-123"))

	if ct := w.Header().Get("Content-Type"); ct != ContentTypeProblemJSON {
		t.Errorf("Expected Content-Type=%q, got %q", ContentTypeProblemJSON, ct)
	}
	if w.Header().Get("Retry-After") != "" {
		t.Error("Expected no Retry-After header")
	}
	if !c.IsAborted() {
		t.Error("Expected the handler chain to be aborted")
	}

	var result map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to unmarshal response body: %v", err)
	}
	if result["instance"] != "/api/v1/trends/weekly" {
		t.Errorf("Expected instance to default to the path, got %v", result["instance"])
	}
}

func TestWriteProblemRetryAfter(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/api/v1/chat", nil)

	WriteProblem(c, NewRateLimitError("req-456", 120))

	if got := w.Header().Get("Retry-After"); got != "120" {
		t.Errorf("Expected Retry-After header=%q, got %q", "120", got)
	}
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status 429, got %d", w.Code)
	}
}

func TestNewInternalErrorHidesDetails(t *testing.T) {
	problem := NewInternalError("req-xyz")

	if problem.Detail != "An unexpected error occurred" {
		t.Errorf("Expected generic detail, got %q", problem.Detail)
	}
	if problem.UserMessage == "" {
		t.Error("Expected user_message to be set")
	}
}

func TestNewDataUnavailableError(t *testing.T) {
	problem := NewDataUnavailableError("req-1", "Failed to fetch: steps, sleep", []string{"steps", "sleep"})

	if problem.Status != http.StatusServiceUnavailable || problem.Type != TypeDataUnavailable {
		t.Errorf("Unexpected problem %+v", problem)
	}
	if problem.RetryAfter == nil {
		t.Error("Expected retry_after to be set")
	}
	if problem.Error() != "Failed to fetch: steps, sleep" {
		t.Errorf("Error() = %q", problem.Error())
	}
}

func TestNewUnauthorizedAndConsentErrors(t *testing.T) {
	unauthorized := NewUnauthorizedError("req-abc")
	if unauthorized.Status != http.StatusUnauthorized || unauthorized.Action != "authenticate" {
		t.Errorf("Unexpected unauthorized problem %+v", unauthorized)
	}

	consent := NewConsentRequiredError("req-def")
	if consent.Status != http.StatusForbidden || consent.Type != TypeConsentRequired {
		t.Errorf("Unexpected consent problem %+v", consent)
	}
}

type bindTarget struct {
	Kind  string    `json:"kind" validate:"required,oneof=steps sleep"`
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required,gtefield=Start"`
}

func TestFromBindError(t *testing.T) {
	v := validator.New()
	err := v.Struct(bindTarget{
		Kind:  "weight",
		Start: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	})
	if err == nil {
		t.Fatal("Expected validation to fail")
	}

	problem := FromBindError("req-1", err)
	if problem.Type != TypeValidation {
		t.Fatalf("Expected validation problem, got %q", problem.Type)
	}
	if len(problem.Errors) != 2 {
		t.Fatalf("Expected 2 field errors, got %+v", problem.Errors)
	}

	byField := make(map[string]FieldError)
	for _, fe := range problem.Errors {
		byField[fe.Field] = fe
	}
	if byField["Kind"].Code != "oneof" {
		t.Errorf("Expected oneof error on Kind, got %+v", byField["Kind"])
	}
	if byField["End"].Message != "must not be before Start" {
		t.Errorf("Unexpected End message %q", byField["End"].Message)
	}

	malformed := FromBindError("req-2", errors.New("unexpected EOF"))
	if malformed.Type != TypeBadRequest || malformed.Detail != "unexpected EOF" {
		t.Errorf("Expected bad request for non-validation error, got %+v", malformed)
	}
}

func TestGetRequestID(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set("request_id", "ctx-req-123")
	if got := GetRequestID(c); got != "ctx-req-123" {
		t.Errorf("Expected request_id=%q, got %q", "ctx-req-123", got)
	}

	c2, _ := gin.CreateTestContext(httptest.NewRecorder())
	c2.Request = httptest.NewRequest("GET", "/test", nil)
	c2.Request.Header.Set("X-Request-ID", "header-req-456")
	if got := GetRequestID(c2); got != "header-req-456" {
		t.Errorf("Expected request_id from header=%q, got %q", "header-req-456", got)
	}

	c3, _ := gin.CreateTestContext(httptest.NewRecorder())
	c3.Request = httptest.NewRequest("GET", "/test", nil)
	if got := GetRequestID(c3); got != "" {
		t.Errorf("Expected empty request_id, got %q", got)
	}
}
