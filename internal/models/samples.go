package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SampleInput is the wire shape of a sample uploaded by the mobile client.
// Value is a number for quantity kinds and a stage label for sleep.
// Inputs carry no binding tags: ToSample validates each one so a bad sample
// only rejects its own index.
type SampleInput struct {
	// ID is an optional client-generated UUIDv7; the server assigns one when empty
	ID        string          `json:"id,omitempty"`
	Kind      string          `json:"kind"`
	Value     json.RawMessage `json:"value"`
	StartDate time.Time       `json:"startDate"`
	EndDate   time.Time       `json:"endDate"`
	Source    string          `json:"sourceName"`
}

// ToSample decodes the discriminated value and validates the result
func (in SampleInput) ToSample(userID string) (HealthSample, error) {
	kind, err := ParseSampleKind(in.Kind)
	if err != nil {
		return HealthSample{}, err
	}

	sample := HealthSample{
		ID:        in.ID,
		UserID:    userID,
		Kind:      kind,
		StartTime: in.StartDate,
		EndTime:   in.EndDate,
		Source:    in.Source,
	}

	raw := bytes.TrimSpace(in.Value)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return HealthSample{}, fmt.Errorf("value is required")
	}
	if kind.IsInterval() {
		var label string
		if err := json.Unmarshal(raw, &label); err != nil {
			return HealthSample{}, fmt.Errorf("sleep value must be a stage label: %w", err)
		}
		sample.Stage = SleepStage(strings.ToUpper(strings.TrimSpace(label)))
	} else {
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return HealthSample{}, fmt.Errorf("%s value must be numeric: %w", kind, err)
		}
		sample.Value = v
	}

	if err := sample.Validate(); err != nil {
		return HealthSample{}, err
	}
	return sample, nil
}

// IngestSamplesRequest is the body of POST /api/v1/samples
type IngestSamplesRequest struct {
	Samples []SampleInput `json:"samples" binding:"required,min=1,max=5000"`
}

// SampleRejection describes one sample that failed boundary validation
type SampleRejection struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// IngestResult summarizes a sample upload
type IngestResult struct {
	Received int               `json:"received"`
	Accepted int               `json:"accepted"`
	Inserted int               `json:"inserted"`
	Rejected []SampleRejection `json:"rejected,omitempty"`
}

// HeartRateSummary holds the statistics shown on the today dashboard
type HeartRateSummary struct {
	Average float64        `json:"average"`
	Min     float64        `json:"min"`
	Max     float64        `json:"max"`
	Samples []HealthSample `json:"samples"`
}

// TodaySummary is the dashboard payload for a single local day.
// Pointer fields are nil when that metric's fetch failed, which clients
// render as "--" rather than zero. Success holds whenever any metric loaded;
// Error then names the ones that did not.
type TodaySummary struct {
	Date          string            `json:"date"`
	Steps         *float64          `json:"steps"`
	Calories      *float64          `json:"calories"`
	HeartRate     *HeartRateSummary `json:"heart_rate"`
	SleepHours    *float64          `json:"sleep_hours"`
	Success       bool              `json:"success"`
	FailedMetrics []string          `json:"failed_metrics,omitempty"`
	Error         string            `json:"error,omitempty"`
	DataTimestamp time.Time         `json:"data_timestamp"`
}
