package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lorahealth/lora/backend/internal/apierror"
	"github.com/lorahealth/lora/backend/internal/logger"
	"github.com/lorahealth/lora/backend/internal/middleware"
	"github.com/lorahealth/lora/backend/internal/repository"
	"github.com/lorahealth/lora/backend/internal/service"
)

// RouterConfig wires services and middleware into the HTTP API
type RouterConfig struct {
	Env         string
	CORSOrigins []string
	Logger      logger.Logger
	Location    *time.Location

	// Auth authenticates protected routes (middleware.Auth or middleware.DevAuth)
	Auth gin.HandlerFunc
	// ChatRateLimit is the per-user limit on POST /chat per minute; 0 disables it
	ChatRateLimit int

	Idempotency repository.IdempotencyRepository

	Samples     service.SampleService
	Health      service.HealthService
	Trends      service.TrendService
	Chat        service.ChatService
	Preferences service.PreferenceService
}

// NewRouter builds the gin engine with every API route registered
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.SecurityHeaders(cfg.Env == "production"))
	router.Use(middleware.CORS(cfg.CORSOrigins))
	router.Use(middleware.RateLimit())

	router.NoRoute(func(c *gin.Context) {
		apierror.WriteProblem(c, apierror.NewNotFoundError(apierror.GetRequestID(c), "route"))
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"env":    cfg.Env,
		})
	})

	sampleHandler := NewSampleHandler(cfg.Samples)
	healthHandler := NewHealthHandler(cfg.Health, cfg.Trends, cfg.Location)
	chatHandler := NewChatHandler(cfg.Chat)
	preferenceHandler := NewPreferenceHandler(cfg.Preferences)

	v1 := router.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(cfg.Auth)
	if cfg.Idempotency != nil {
		protected.Use(middleware.Idempotency(cfg.Idempotency))
	}
	{
		protected.POST("/samples", sampleHandler.IngestSamples)
		protected.DELETE("/samples", sampleHandler.DeleteSamples)

		protected.GET("/health/today", healthHandler.GetToday)
		protected.GET("/aggregates/:kind", healthHandler.GetAggregate)
		protected.GET("/trends/weekly", healthHandler.GetWeeklyTrends)

		chatRoutes := []gin.HandlerFunc{chatHandler.SendMessage}
		if cfg.ChatRateLimit > 0 {
			chatRoutes = append([]gin.HandlerFunc{middleware.RateLimitPerUser(cfg.ChatRateLimit, time.Minute, "chat")}, chatRoutes...)
		}
		protected.POST("/chat", chatRoutes...)
		protected.GET("/chat/history", chatHandler.GetHistory)
		protected.DELETE("/chat/history", chatHandler.ClearHistory)

		protected.GET("/preferences", preferenceHandler.GetPreferences)
		protected.PUT("/preferences", preferenceHandler.UpdatePreferences)
		protected.GET("/llm/provider", preferenceHandler.GetProvider)
		protected.PUT("/llm/provider", preferenceHandler.SetProvider)
	}

	return router
}
