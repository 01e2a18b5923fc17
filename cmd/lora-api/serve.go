package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/lorahealth/lora/backend/internal/config"
	"github.com/lorahealth/lora/backend/internal/events"
	"github.com/lorahealth/lora/backend/internal/handlers"
	"github.com/lorahealth/lora/backend/internal/logger"
	"github.com/lorahealth/lora/backend/internal/middleware"
	"github.com/lorahealth/lora/backend/internal/models"
	"github.com/lorahealth/lora/backend/internal/repository"
	"github.com/lorahealth/lora/backend/internal/service"
	"github.com/lorahealth/lora/backend/pkg/gemini"
	"github.com/lorahealth/lora/backend/pkg/supabase"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  `Start the HTTP API server and listen for requests.`,
	RunE:  runServe,
}

var (
	port string
)

func init() {
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides config)")
}

func newLogger(cfg *config.Config) logger.Logger {
	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.ParseLevel(cfg.Log.Level)
	logCfg.Format = cfg.Log.Format
	logCfg.AddSource = !cfg.IsProduction()
	log := logger.NewSlogLogger(logCfg)
	logger.SetDefault(log)
	return log
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if port != "" {
		cfg.Server.Port = port
	}

	log := newLogger(cfg)
	log.Info("starting lora api server",
		logger.String("env", cfg.Server.Env),
		logger.String("auth", cfg.Auth.Provider),
		logger.String("database", cfg.Database.Driver),
		logger.String("llm", cfg.LLM.Provider),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Health.Location()
	if err != nil {
		return fmt.Errorf("invalid health.timezone: %w", err)
	}

	// Sample store
	db, err := repository.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	// Key-value store for preferences, chat history and idempotency keys
	var kv repository.KVStore
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		kv = repository.NewRedisKVStore(rdb, cfg.Redis.KeyPrefix)
	} else {
		log.Warn("redis.addr not set, using in-memory key-value store")
		kv = repository.NewMemoryKVStore()
	}

	// Domain events
	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}
	defer publisher.Close()

	// Repositories
	sampleRepo := repository.NewSampleRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(kv)

	// Services
	defaultProvider := models.LLMProvider(cfg.LLM.Provider)
	preferenceService := service.NewPreferenceService(kv, defaultProvider)

	llmCfg := service.LLMConfig{Resolver: preferenceService, DefaultProvider: defaultProvider}
	if cfg.LLM.APIKey != "" {
		llmCfg.Gemini = gemini.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout)
	} else if defaultProvider == models.LLMProviderGemini {
		log.Warn("llm.api_key not set, insights and chat will use fallbacks")
	}
	llmService := service.NewLLMService(llmCfg)

	aggregator := service.NewAggregator(loc)
	provider := service.NewStoredSampleProvider(sampleRepo)

	sampleService := service.NewSampleService(sampleRepo, publisher)
	healthService := service.NewHealthService(provider, aggregator)
	trendService := service.NewTrendService(provider, aggregator, llmService, publisher)
	chatService := service.NewChatService(provider, aggregator, llmService, kv)

	// Authentication
	var auth gin.HandlerFunc
	switch cfg.Auth.Provider {
	case "supabase":
		auth = middleware.Auth(supabase.NewClient(cfg.Auth.SupabaseURL, cfg.Auth.SupabaseAnonKey))
	default:
		log.Warn("authentication disabled, all requests use the dev user",
			logger.String("user_id", cfg.Auth.DevUserID),
		)
		auth = middleware.DevAuth(cfg.Auth.DevUserID)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := handlers.RegisterValidators(); err != nil {
		return err
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Env:           cfg.Server.Env,
		CORSOrigins:   cfg.Server.CORSOrigins,
		Logger:        log,
		Location:      loc,
		Auth:          auth,
		ChatRateLimit: cfg.Server.ChatRateLimit,
		Idempotency:   idempotencyRepo,
		Samples:       sampleService,
		Health:        healthService,
		Trends:        trendService,
		Chat:          chatService,
		Preferences:   preferenceService,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", logger.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
