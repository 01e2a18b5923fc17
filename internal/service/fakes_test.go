package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lorahealth/lora/backend/internal/events"
	"github.com/lorahealth/lora/backend/internal/models"
)

var errFetch = errors.New("health store unavailable")

// fakeProvider serves fixed samples per kind and fails the kinds listed in failing
type fakeProvider struct {
	mu      sync.Mutex
	samples map[models.SampleKind][]models.HealthSample
	failing map[models.SampleKind]bool
	calls   []models.SampleKind
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		samples: make(map[models.SampleKind][]models.HealthSample),
		failing: make(map[models.SampleKind]bool),
	}
}

func (p *fakeProvider) FetchSamples(ctx context.Context, userID string, kind models.SampleKind, start, end time.Time) ([]models.HealthSample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, kind)

	if p.failing[kind] {
		return nil, errFetch
	}
	var out []models.HealthSample
	for _, s := range p.samples[kind] {
		if s.EndTime.Before(start) || !s.StartTime.Before(end) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// fakeLLM returns canned text and records what it was asked
type fakeLLM struct {
	generateReply string
	generateErr   error
	chatReply     string
	chatErr       error

	prompts  []string
	messages [][]models.ChatMessage
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.generateReply, f.generateErr
}

func (f *fakeLLM) Chat(ctx context.Context, messages []models.ChatMessage) (string, error) {
	f.messages = append(f.messages, messages)
	return f.chatReply, f.chatErr
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

// mockSampleRepository is an in-memory SampleRepository keyed by sample identity
type mockSampleRepository struct {
	samples     []models.HealthSample
	upsertCalls int
	err         error
}

func (m *mockSampleRepository) UpsertBatch(ctx context.Context, samples []models.HealthSample) (int, error) {
	m.upsertCalls++
	if m.err != nil {
		return 0, m.err
	}
	inserted := 0
	for _, s := range samples {
		dup := false
		for _, existing := range m.samples {
			if existing.UserID == s.UserID && existing.Kind == s.Kind && existing.Value == s.Value &&
				existing.Stage == s.Stage && existing.StartTime.Equal(s.StartTime) && existing.EndTime.Equal(s.EndTime) {
				dup = true
				break
			}
		}
		if !dup {
			m.samples = append(m.samples, s)
			inserted++
		}
	}
	return inserted, nil
}

func (m *mockSampleRepository) GetByUserAndKind(ctx context.Context, userID string, kind models.SampleKind, start, end time.Time) ([]models.HealthSample, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []models.HealthSample
	for _, s := range m.samples {
		if s.UserID == userID && s.Kind == kind && !s.EndTime.Before(start) && s.StartTime.Before(end) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSampleRepository) CountByUser(ctx context.Context, userID string) (map[models.SampleKind]int64, error) {
	counts := make(map[models.SampleKind]int64)
	for _, s := range m.samples {
		if s.UserID == userID {
			counts[s.Kind]++
		}
	}
	return counts, nil
}

func (m *mockSampleRepository) DeleteByUserID(ctx context.Context, userID string) error {
	kept := m.samples[:0]
	for _, s := range m.samples {
		if s.UserID != userID {
			kept = append(kept, s)
		}
	}
	m.samples = kept
	return nil
}

// Helpers for building samples in UTC

func day(d, hour, minute int) time.Time {
	return time.Date(2026, time.March, d, hour, minute, 0, 0, time.UTC)
}

func sleepSample(stage models.SleepStage, start, end time.Time) models.HealthSample {
	return models.HealthSample{Kind: models.SampleKindSleep, Stage: stage, StartTime: start, EndTime: end}
}

func quantity(kind models.SampleKind, value float64, at time.Time) models.HealthSample {
	return models.HealthSample{Kind: kind, Value: value, StartTime: at, EndTime: at.Add(time.Minute)}
}
