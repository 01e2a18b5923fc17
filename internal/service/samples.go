package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lorahealth/lora/backend/internal/events"
	"github.com/lorahealth/lora/backend/internal/logger"
	"github.com/lorahealth/lora/backend/internal/models"
	"github.com/lorahealth/lora/backend/internal/repository"
)

// ErrEmptyBatch is returned when an upload carries no samples
var ErrEmptyBatch = errors.New("sample batch is empty")

type sampleService struct {
	repo      repository.SampleRepository
	publisher events.Publisher
	now       func() time.Time
}

// NewSampleService creates a new sample ingestion service
func NewSampleService(repo repository.SampleRepository, publisher events.Publisher) SampleService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &sampleService{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
	}
}

// samplesIngestedPayload is the payload of a samples.ingested event
type samplesIngestedPayload struct {
	Inserted int                       `json:"inserted"`
	Kinds    map[models.SampleKind]int `json:"kinds"`
}

// IngestSamples validates each input independently, stores the valid ones and reports
// per-index rejections. Re-uploading the same samples is a no-op.
func (s *sampleService) IngestSamples(ctx context.Context, userID string, req *models.IngestSamplesRequest) (*models.IngestResult, error) {
	if req == nil || len(req.Samples) == 0 {
		return nil, ErrEmptyBatch
	}

	log := logger.Ctx(ctx)
	result := &models.IngestResult{Received: len(req.Samples)}

	now := s.now()
	valid := make([]models.HealthSample, 0, len(req.Samples))
	kinds := make(map[models.SampleKind]int)
	for i, in := range req.Samples {
		if in.ID != "" {
			if err := validateSampleID(in.ID, now); err != nil {
				result.Rejected = append(result.Rejected, models.SampleRejection{Index: i, Error: err.Error()})
				continue
			}
		}
		sample, err := in.ToSample(userID)
		if err != nil {
			result.Rejected = append(result.Rejected, models.SampleRejection{Index: i, Error: err.Error()})
			continue
		}
		valid = append(valid, sample)
		kinds[sample.Kind]++
	}
	result.Accepted = len(valid)

	if len(valid) == 0 {
		log.Warn("sample upload rejected entirely", logger.Int("received", result.Received))
		return result, nil
	}

	inserted, err := s.repo.UpsertBatch(ctx, valid)
	if err != nil {
		return nil, fmt.Errorf("failed to store samples: %w", err)
	}
	result.Inserted = inserted

	log.Info("samples ingested",
		logger.Int("received", result.Received),
		logger.Int("accepted", result.Accepted),
		logger.Int("inserted", result.Inserted),
		logger.Int("rejected", len(result.Rejected)),
	)

	if inserted > 0 {
		event := events.New(events.TypeSamplesIngested, userID, samplesIngestedPayload{Inserted: inserted, Kinds: kinds})
		if err := s.publisher.Publish(ctx, event); err != nil {
			log.Warn("failed to publish ingest event", logger.Err(err))
		}
	}

	return result, nil
}

// DeleteSamples removes every stored sample for the user
func (s *sampleService) DeleteSamples(ctx context.Context, userID string) error {
	if err := s.repo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete samples: %w", err)
	}
	return nil
}

// storedSampleProvider serves health data from the sample repository
type storedSampleProvider struct {
	repo repository.SampleRepository
}

// NewStoredSampleProvider adapts a SampleRepository to a HealthDataProvider
func NewStoredSampleProvider(repo repository.SampleRepository) HealthDataProvider {
	return &storedSampleProvider{repo: repo}
}

func (p *storedSampleProvider) FetchSamples(ctx context.Context, userID string, kind models.SampleKind, start, end time.Time) ([]models.HealthSample, error) {
	samples, err := p.repo.GetByUserAndKind(ctx, userID, kind, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s samples: %w", kind.Label(), err)
	}
	return samples, nil
}
