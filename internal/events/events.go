// Package events publishes domain events about ingested samples and computed
// trends so downstream consumers (notifications, analytics) can react to them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type identifies the kind of domain event
type Type string

const (
	TypeSamplesIngested Type = "samples.ingested"
	TypeTrendsComputed  Type = "trends.computed"
)

// Event is the envelope written to the event stream
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

// New creates an event with a fresh ID stamped with the current time
func New(eventType Type, userID string, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Encode serializes the event for the wire
func (e Event) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", e.Type, err)
	}
	return data, nil
}

// Publisher sends events to a broker
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher discards every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }
func (NopPublisher) Close() error                                   { return nil }
