package models

import (
	"encoding/json"
	"time"
)

// IdempotencyRecord is a cached response replayed for a repeated Idempotency-Key
type IdempotencyRecord struct {
	Key          string          `json:"key"`
	Route        string          `json:"route"`
	UserID       string          `json:"user_id"`
	StatusCode   int             `json:"status_code"`
	ResponseBody json.RawMessage `json:"response_body"`
	CreatedAt    time.Time       `json:"created_at"`
}
