package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lorahealth/lora/backend/internal/apierror"
	"github.com/lorahealth/lora/backend/internal/logger"
	"github.com/lorahealth/lora/backend/internal/models"
	"github.com/lorahealth/lora/backend/internal/service"
)

// defaultAggregateDays is used when ?days= is omitted
const defaultAggregateDays = 7

// HealthHandler serves the dashboard, aggregate and trend endpoints
type HealthHandler struct {
	healthService service.HealthService
	trendService  service.TrendService
	loc           *time.Location
}

// NewHealthHandler creates a new health handler. Dates in queries are
// interpreted in loc.
func NewHealthHandler(healthService service.HealthService, trendService service.TrendService, loc *time.Location) *HealthHandler {
	if loc == nil {
		loc = time.Local
	}
	return &HealthHandler{
		healthService: healthService,
		trendService:  trendService,
		loc:           loc,
	}
}

// GetToday handles GET /api/v1/health/today?date=YYYY-MM-DD
func (h *HealthHandler) GetToday(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	date := time.Now().In(h.loc)
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation(models.DayKeyLayout, raw, h.loc)
		if err != nil {
			apierror.WriteProblem(c, apierror.NewValidationError(apierror.GetRequestID(c), []apierror.FieldError{{
				Field:   "date",
				Message: "must be a date in YYYY-MM-DD format",
				Code:    "invalid_format",
			}}))
			return
		}
		date = parsed
	}

	summary, err := h.healthService.GetToday(c.Request.Context(), userID, date)
	if err != nil {
		h.writeFetchError(c, err, "failed to load today summary")
		return
	}

	c.JSON(http.StatusOK, summary)
}

type aggregateParams struct {
	Kind string `uri:"kind" binding:"required,sample_kind"`
}

// GetAggregate handles GET /api/v1/aggregates/:kind?days=N
func (h *HealthHandler) GetAggregate(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var params aggregateParams
	if err := c.ShouldBindUri(&params); err != nil {
		apierror.WriteProblem(c, apierror.NewNotFoundError(apierror.GetRequestID(c), "sample kind"))
		return
	}
	kind := models.SampleKind(params.Kind)

	days := defaultAggregateDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			n = -1
		}
		days = n
	}

	agg, err := h.healthService.GetDailyAggregate(c.Request.Context(), userID, kind, days)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDays) {
			apierror.WriteProblem(c, apierror.NewValidationError(apierror.GetRequestID(c), []apierror.FieldError{{
				Field:   "days",
				Message: "must be an integer between 1 and 90",
				Code:    "range",
			}}))
			return
		}
		h.writeFetchError(c, err, "failed to load daily aggregate")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"kind":  kind,
		"unit":  kind.Unit(),
		"days":  days,
		"total": agg.Total(),
		"daily": agg,
	})
}

// GetWeeklyTrends handles GET /api/v1/trends/weekly
func (h *HealthHandler) GetWeeklyTrends(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	summary, err := h.trendService.ComputeWeeklyTrends(c.Request.Context(), userID)
	if err != nil {
		h.writeFetchError(c, err, "failed to compute weekly trends")
		return
	}

	c.JSON(http.StatusOK, summary)
}

// writeFetchError maps a total fetch failure to 503 and anything else to 500
func (h *HealthHandler) writeFetchError(c *gin.Context, err error, msg string) {
	requestID := apierror.GetRequestID(c)

	var fetchErr *service.FetchError
	if errors.As(err, &fetchErr) {
		logger.Ctx(c.Request.Context()).Warn(msg, logger.Err(err))
		apierror.WriteProblem(c, apierror.NewDataUnavailableError(requestID, fetchErr.Error(), fetchErr.Failed))
		return
	}

	logger.Ctx(c.Request.Context()).Error(msg, logger.Err(err))
	apierror.WriteProblem(c, apierror.NewInternalError(requestID))
}
