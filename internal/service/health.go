package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/lorahealth/lora/backend/internal/models"
)

// MaxAggregateDays bounds the history a single aggregate query may cover
const MaxAggregateDays = 90

// ErrInvalidDays is returned for an out-of-range day count
var ErrInvalidDays = errors.New("days must be between 1 and 90")

// todayKinds are the metrics shown on the dashboard
var todayKinds = []models.SampleKind{
	models.SampleKindSteps,
	models.SampleKindActiveEnergy,
	models.SampleKindHeartRate,
	models.SampleKindSleep,
}

type healthService struct {
	provider   HealthDataProvider
	aggregator *Aggregator
	now        func() time.Time
}

// NewHealthService creates a new health dashboard service
func NewHealthService(provider HealthDataProvider, aggregator *Aggregator) HealthService {
	return &healthService{
		provider:   provider,
		aggregator: aggregator,
		now:        time.Now,
	}
}

// GetToday loads every dashboard metric for the local day of date concurrently.
// A failed metric is left nil and named in FailedMetrics; only a total failure is an error.
func (s *healthService) GetToday(ctx context.Context, userID string, date time.Time) (*models.TodaySummary, error) {
	loc := s.aggregator.Location()
	window := models.DayWindow(date, loc)

	// Sleep ending today usually starts the evening before
	fetchStart := window.Start.AddDate(0, 0, -1)

	outcome, err := fetchKinds(ctx, s.provider, userID, todayKinds, fetchStart, window.End)
	if err != nil {
		return nil, err
	}

	summary := &models.TodaySummary{
		Date:          window.Start.Format(models.DayKeyLayout),
		Success:       true,
		FailedMetrics: outcome.FailedLabels(),
		DataTimestamp: s.now(),
	}
	if len(outcome.Failed) > 0 {
		summary.Error = (&FetchError{Failed: summary.FailedMetrics}).Error()
	}

	if samples, ok := outcome.Samples[models.SampleKindSteps]; ok {
		steps := s.aggregator.SumByDay(samples, window).Total()
		summary.Steps = &steps
	}
	if samples, ok := outcome.Samples[models.SampleKindActiveEnergy]; ok {
		calories := s.aggregator.SumByDay(samples, window).Total()
		summary.Calories = &calories
	}
	if samples, ok := outcome.Samples[models.SampleKindHeartRate]; ok {
		summary.HeartRate = SummarizeHeartRate(samples, window)
	}
	if samples, ok := outcome.Samples[models.SampleKindSleep]; ok {
		hours := roundTo(s.aggregator.TotalHours(samples, window), 2)
		summary.SleepHours = &hours
	}

	return summary, nil
}

// GetDailyAggregate aggregates the last `days` local days of one kind
func (s *healthService) GetDailyAggregate(ctx context.Context, userID string, kind models.SampleKind, days int) (models.DailyAggregate, error) {
	if days < 1 || days > MaxAggregateDays {
		return nil, ErrInvalidDays
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("unknown sample kind %q", kind)
	}

	window := models.DaysWindow(s.now(), days, s.aggregator.Location())
	fetchStart := window.Start
	if kind.IsInterval() {
		fetchStart = fetchStart.AddDate(0, 0, -1)
	}

	samples, err := s.provider.FetchSamples(ctx, userID, kind, fetchStart, window.End)
	if err != nil {
		return nil, &FetchError{Failed: []string{kind.Label()}}
	}

	return s.aggregator.ComputeDailyAggregate(samples, kind, window), nil
}

// SummarizeHeartRate computes average, min and max over readings starting inside window
func SummarizeHeartRate(samples []models.HealthSample, window *models.Window) *models.HeartRateSummary {
	summary := &models.HeartRateSummary{Samples: []models.HealthSample{}}

	var sum float64
	for _, s := range samples {
		if !isWellFormedQuantity(s) || !window.Contains(s.StartTime) {
			continue
		}
		if len(summary.Samples) == 0 {
			summary.Min, summary.Max = s.Value, s.Value
		}
		summary.Min = math.Min(summary.Min, s.Value)
		summary.Max = math.Max(summary.Max, s.Value)
		sum += s.Value
		summary.Samples = append(summary.Samples, s)
	}

	if n := len(summary.Samples); n > 0 {
		summary.Average = roundTo(sum/float64(n), 0)
	}
	return summary
}
