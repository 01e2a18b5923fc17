package repository

import (
	"context"
	"time"

	"github.com/lorahealth/lora/backend/internal/models"
)

// SampleRepository defines the interface for raw health sample storage
type SampleRepository interface {
	// UpsertBatch stores samples, ignoring exact duplicates and IDs the user already
	// stored. IDs are scoped per user. Returns how many were new.
	UpsertBatch(ctx context.Context, samples []models.HealthSample) (int, error)
	// GetByUserAndKind returns samples of kind that overlap [start, end), ordered by start
	GetByUserAndKind(ctx context.Context, userID string, kind models.SampleKind, start, end time.Time) ([]models.HealthSample, error)
	CountByUser(ctx context.Context, userID string) (map[models.SampleKind]int64, error)
	DeleteByUserID(ctx context.Context, userID string) error
}

// KVStore is an opaque string key-value store for preferences and chat history
type KVStore interface {
	// Get returns the value and whether the key exists
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// SetWithTTL stores value and lets the store drop it once ttl elapses
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
	// Clear removes every key owned by this store
	Clear(ctx context.Context) error
}
