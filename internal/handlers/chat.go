package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lorahealth/lora/backend/internal/apierror"
	"github.com/lorahealth/lora/backend/internal/logger"
	"github.com/lorahealth/lora/backend/internal/models"
	"github.com/lorahealth/lora/backend/internal/service"
)

// ChatHandler handles the health assistant conversation
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// SendMessage handles POST /api/v1/chat
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.WriteProblem(c, apierror.FromBindError(apierror.GetRequestID(c), err))
		return
	}

	resp, err := h.chatService.ProcessQuery(c.Request.Context(), userID, req.Query)
	if err != nil {
		logger.Ctx(c.Request.Context()).Error("failed to process health query", logger.Err(err))
		apierror.WriteProblem(c, apierror.NewInternalError(apierror.GetRequestID(c)))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetHistory handles GET /api/v1/chat/history
func (h *ChatHandler) GetHistory(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	history, err := h.chatService.GetHistory(c.Request.Context(), userID)
	if err != nil {
		logger.Ctx(c.Request.Context()).Error("failed to load chat history", logger.Err(err))
		apierror.WriteProblem(c, apierror.NewInternalError(apierror.GetRequestID(c)))
		return
	}
	if history == nil {
		history = []models.ChatMessage{}
	}

	c.JSON(http.StatusOK, gin.H{"messages": history})
}

// ClearHistory handles DELETE /api/v1/chat/history
func (h *ChatHandler) ClearHistory(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.chatService.ClearHistory(c.Request.Context(), userID); err != nil {
		logger.Ctx(c.Request.Context()).Error("failed to clear chat history", logger.Err(err))
		apierror.WriteProblem(c, apierror.NewInternalError(apierror.GetRequestID(c)))
		return
	}

	c.Status(http.StatusNoContent)
}
