package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lorahealth/lora/backend/internal/models"
)

// IdempotencyTTL is how long a cached response can be replayed
const IdempotencyTTL = 24 * time.Hour

// IdempotencyRepository defines the interface for idempotency key operations
type IdempotencyRepository interface {
	// Get returns the live record for key, or nil when there is none
	Get(ctx context.Context, key, route, userID string) (*models.IdempotencyRecord, error)
	Store(ctx context.Context, key, route, userID string, responseBody []byte, statusCode int) error
}

type idempotencyRepository struct {
	kv  KVStore
	now func() time.Time
}

// NewIdempotencyRepository creates an idempotency repository on top of kv
func NewIdempotencyRepository(kv KVStore) IdempotencyRepository {
	return &idempotencyRepository{kv: kv, now: time.Now}
}

func idempotencyKey(key, route, userID string) string {
	return fmt.Sprintf("@idempotency:%s:%s:%s", userID, route, key)
}

func (r *idempotencyRepository) Get(ctx context.Context, key, route, userID string) (*models.IdempotencyRecord, error) {
	k := idempotencyKey(key, route, userID)
	raw, ok, err := r.kv.Get(ctx, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query idempotency key: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var record models.IdempotencyRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal idempotency record: %w", err)
	}

	if r.now().Sub(record.CreatedAt) > IdempotencyTTL {
		if err := r.kv.Remove(ctx, k); err != nil {
			return nil, fmt.Errorf("failed to expire idempotency key: %w", err)
		}
		return nil, nil
	}
	return &record, nil
}

func (r *idempotencyRepository) Store(ctx context.Context, key, route, userID string, responseBody []byte, statusCode int) error {
	record := models.IdempotencyRecord{
		Key:          key,
		Route:        route,
		UserID:       userID,
		StatusCode:   statusCode,
		ResponseBody: json.RawMessage(responseBody),
		CreatedAt:    r.now().UTC(),
	}
	if !json.Valid(responseBody) {
		return fmt.Errorf("response body for idempotency key %s is not JSON", key)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal idempotency record: %w", err)
	}
	if err := r.kv.SetWithTTL(ctx, idempotencyKey(key, route, userID), string(data), IdempotencyTTL); err != nil {
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return nil
}
