package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lorahealth/lora/backend/internal/logger"
	"github.com/lorahealth/lora/backend/internal/models"
)

// ErrNoHealthData is wrapped by FetchError when every metric fetch failed
var ErrNoHealthData = errors.New("no health data available")

// FetchError reports that every requested metric failed to load
type FetchError struct {
	Failed []string
}

func (e *FetchError) Error() string {
	if len(e.Failed) == 0 {
		return "Failed to fetch health data"
	}
	return "Failed to fetch: " + strings.Join(e.Failed, ", ")
}

func (e *FetchError) Unwrap() error {
	return ErrNoHealthData
}

// FetchOutcome holds per-kind results of a concurrent fetch.
// Kinds listed in Failed have no entry in Samples.
type FetchOutcome struct {
	Samples map[models.SampleKind][]models.HealthSample
	Failed  []models.SampleKind
}

// Succeeded reports whether kind loaded
func (o *FetchOutcome) Succeeded(kind models.SampleKind) bool {
	_, ok := o.Samples[kind]
	return ok
}

// FailedLabels returns the human-readable names of the failed kinds
func (o *FetchOutcome) FailedLabels() []string {
	labels := make([]string, len(o.Failed))
	for i, k := range o.Failed {
		labels[i] = k.Label()
	}
	return labels
}

// fetchKinds loads each kind concurrently. Every fetch writes only its own slot;
// the group waits for all of them to settle. The call succeeds if any kind loaded
// and returns a *FetchError when none did.
func fetchKinds(ctx context.Context, provider HealthDataProvider, userID string, kinds []models.SampleKind, start, end time.Time) (*FetchOutcome, error) {
	log := logger.Ctx(ctx)

	results := make([][]models.HealthSample, len(kinds))
	errs := make([]error, len(kinds))

	var g errgroup.Group
	for i, kind := range kinds {
		i, kind := i, kind
		g.Go(func() error {
			samples, err := provider.FetchSamples(ctx, userID, kind, start, end)
			if err != nil {
				errs[i] = err
				return nil
			}
			if samples == nil {
				samples = []models.HealthSample{}
			}
			results[i] = samples
			return nil
		})
	}
	_ = g.Wait()

	outcome := &FetchOutcome{Samples: make(map[models.SampleKind][]models.HealthSample, len(kinds))}
	for i, kind := range kinds {
		if errs[i] != nil {
			log.Warn("health fetch failed",
				logger.String("kind", string(kind)),
				logger.Err(errs[i]),
			)
			outcome.Failed = append(outcome.Failed, kind)
			continue
		}
		outcome.Samples[kind] = results[i]
	}

	if len(outcome.Samples) == 0 && len(kinds) > 0 {
		return outcome, &FetchError{Failed: outcome.FailedLabels()}
	}

	if len(outcome.Failed) > 0 {
		log.Warn("some health fetches failed",
			logger.Int("successful", len(outcome.Samples)),
			logger.Int("total", len(kinds)),
			logger.String("failed", strings.Join(outcome.FailedLabels(), ", ")),
		)
	}

	return outcome, nil
}
