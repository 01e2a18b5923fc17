package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lorahealth/lora/backend/internal/apierror"
	"github.com/lorahealth/lora/backend/internal/logger"
	"github.com/lorahealth/lora/backend/internal/models"
	"github.com/lorahealth/lora/backend/internal/service"
)

// SampleHandler handles health sample uploads
type SampleHandler struct {
	sampleService service.SampleService
}

// NewSampleHandler creates a new sample handler
func NewSampleHandler(sampleService service.SampleService) *SampleHandler {
	return &SampleHandler{sampleService: sampleService}
}

// IngestSamples handles POST /api/v1/samples.
// Responds 201 when anything new was stored, 200 for a duplicate upload and
// 422 when every sample was rejected.
func (h *SampleHandler) IngestSamples(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.IngestSamplesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.WriteProblem(c, apierror.FromBindError(apierror.GetRequestID(c), err))
		return
	}

	result, err := h.sampleService.IngestSamples(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrEmptyBatch) {
			apierror.WriteProblem(c, apierror.NewBadRequestError(apierror.GetRequestID(c), err.Error(), "No samples were uploaded."))
			return
		}
		logger.Ctx(c.Request.Context()).Error("failed to ingest samples", logger.Err(err))
		apierror.WriteProblem(c, apierror.NewInternalError(apierror.GetRequestID(c)))
		return
	}

	switch {
	case result.Accepted == 0:
		c.JSON(http.StatusUnprocessableEntity, result)
	case result.Inserted > 0:
		c.JSON(http.StatusCreated, result)
	default:
		c.JSON(http.StatusOK, result)
	}
}

// DeleteSamples handles DELETE /api/v1/samples
func (h *SampleHandler) DeleteSamples(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.sampleService.DeleteSamples(c.Request.Context(), userID); err != nil {
		logger.Ctx(c.Request.Context()).Error("failed to delete samples", logger.Err(err))
		apierror.WriteProblem(c, apierror.NewInternalError(apierror.GetRequestID(c)))
		return
	}

	c.Status(http.StatusNoContent)
}
