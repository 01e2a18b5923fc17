package service

import (
	"context"
	"time"

	"github.com/lorahealth/lora/backend/internal/models"
)

// HealthDataProvider returns raw samples of one kind for a user.
// Failures are per call; a failure for one kind must not affect the others.
type HealthDataProvider interface {
	FetchSamples(ctx context.Context, userID string, kind models.SampleKind, start, end time.Time) ([]models.HealthSample, error)
}

// TextGenerator produces text from a prompt. Callers treat it as unreliable.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SampleService defines the interface for sample ingestion
type SampleService interface {
	IngestSamples(ctx context.Context, userID string, req *models.IngestSamplesRequest) (*models.IngestResult, error)
	DeleteSamples(ctx context.Context, userID string) error
}

// HealthService defines the interface for dashboard and aggregate queries
type HealthService interface {
	GetToday(ctx context.Context, userID string, date time.Time) (*models.TodaySummary, error)
	GetDailyAggregate(ctx context.Context, userID string, kind models.SampleKind, days int) (models.DailyAggregate, error)
}

// TrendService defines the interface for weekly trend computation
type TrendService interface {
	ComputeWeeklyTrends(ctx context.Context, userID string) (*models.WeeklyTrendsSummary, error)
	BuildWeeklyTrends(ctx context.Context, steps, sleep, heartRate models.DailyAggregate, reference time.Time) *models.WeeklyTrendsSummary
}

// ChatService defines the interface for the health question pipeline
type ChatService interface {
	ProcessQuery(ctx context.Context, userID, query string) (*models.HealthQueryResponse, error)
	GetHistory(ctx context.Context, userID string) ([]models.ChatMessage, error)
	ClearHistory(ctx context.Context, userID string) error
}

// PreferenceService defines the interface for per-user preferences
type PreferenceService interface {
	GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error)
	SavePreferences(ctx context.Context, userID string, prefs *models.UserPreferences) (*models.UserPreferences, error)
	GetProvider(ctx context.Context, userID string) (models.LLMProvider, error)
	SetProvider(ctx context.Context, userID string, provider models.LLMProvider) error
}

// LLMService routes prompts to the provider selected by the request's user
type LLMService interface {
	TextGenerator
	Chat(ctx context.Context, messages []models.ChatMessage) (string, error)
}
