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

// PreferenceHandler handles onboarding preferences and LLM provider selection
type PreferenceHandler struct {
	preferenceService service.PreferenceService
}

// NewPreferenceHandler creates a new preference handler
func NewPreferenceHandler(preferenceService service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{preferenceService: preferenceService}
}

// GetPreferences handles GET /api/v1/preferences
func (h *PreferenceHandler) GetPreferences(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	prefs, err := h.preferenceService.GetPreferences(c.Request.Context(), userID)
	if err != nil {
		logger.Ctx(c.Request.Context()).Error("failed to load preferences", logger.Err(err))
		apierror.WriteProblem(c, apierror.NewInternalError(apierror.GetRequestID(c)))
		return
	}

	c.JSON(http.StatusOK, prefs)
}

// UpdatePreferences handles PUT /api/v1/preferences
func (h *PreferenceHandler) UpdatePreferences(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var prefs models.UserPreferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		apierror.WriteProblem(c, apierror.FromBindError(apierror.GetRequestID(c), err))
		return
	}

	saved, err := h.preferenceService.SavePreferences(c.Request.Context(), userID, &prefs)
	if err != nil {
		logger.Ctx(c.Request.Context()).Error("failed to save preferences", logger.Err(err))
		apierror.WriteProblem(c, apierror.NewInternalError(apierror.GetRequestID(c)))
		return
	}

	c.JSON(http.StatusOK, saved)
}

// GetProvider handles GET /api/v1/llm/provider
func (h *PreferenceHandler) GetProvider(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	provider, err := h.preferenceService.GetProvider(c.Request.Context(), userID)
	if err != nil {
		logger.Ctx(c.Request.Context()).Error("failed to load llm provider", logger.Err(err))
		apierror.WriteProblem(c, apierror.NewInternalError(apierror.GetRequestID(c)))
		return
	}

	c.JSON(http.StatusOK, gin.H{"provider": provider})
}

// SetProvider handles PUT /api/v1/llm/provider
func (h *PreferenceHandler) SetProvider(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.SetProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.WriteProblem(c, apierror.FromBindError(apierror.GetRequestID(c), err))
		return
	}

	err := h.preferenceService.SetProvider(c.Request.Context(), userID, req.Provider)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"provider": req.Provider})
	case errors.Is(err, service.ErrConsentRequired):
		apierror.WriteProblem(c, apierror.NewConsentRequiredError(apierror.GetRequestID(c)))
	case errors.Is(err, service.ErrInvalidProvider):
		apierror.WriteProblem(c, apierror.NewValidationError(apierror.GetRequestID(c), []apierror.FieldError{{
			Field:   "provider",
			Message: "must be one of gemini none",
			Code:    "oneof",
		}}))
	default:
		logger.Ctx(c.Request.Context()).Error("failed to save llm provider", logger.Err(err))
		apierror.WriteProblem(c, apierror.NewInternalError(apierror.GetRequestID(c)))
	}
}
