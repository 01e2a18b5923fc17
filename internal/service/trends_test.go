package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lorahealth/lora/backend/internal/events"
	"github.com/lorahealth/lora/backend/internal/models"
)

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name          string
		current       float64
		previous      float64
		wantPercent   int
		wantDirection models.Direction
	}{
		{name: "steps up", current: 8500, previous: 8000, wantPercent: 6, wantDirection: models.DirectionUp},
		{name: "heart rate within band", current: 59, previous: 60, wantPercent: -2, wantDirection: models.DirectionStable},
		{name: "down", current: 6.5, previous: 7.5, wantPercent: -13, wantDirection: models.DirectionDown},
		{name: "upper edge stable", current: 105, previous: 100, wantPercent: 5, wantDirection: models.DirectionStable},
		{name: "lower edge stable", current: 95, previous: 100, wantPercent: -5, wantDirection: models.DirectionStable},
		{name: "just above band", current: 105.1, previous: 100, wantPercent: 5, wantDirection: models.DirectionUp},
		{name: "just below band", current: 94.9, previous: 100, wantPercent: -5, wantDirection: models.DirectionDown},
		{name: "zero previous", current: 1200, previous: 0, wantPercent: 0, wantDirection: models.DirectionUp},
		{name: "both zero", current: 0, previous: 0, wantPercent: 0, wantDirection: models.DirectionStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyTrend(tt.current, tt.previous)
			if got.PercentChange != tt.wantPercent {
				t.Errorf("PercentChange = %d, want %d", got.PercentChange, tt.wantPercent)
			}
			if got.Direction != tt.wantDirection {
				t.Errorf("Direction = %s, want %s", got.Direction, tt.wantDirection)
			}
		})
	}
}

func TestClassifyTrend_DeadBandSweep(t *testing.T) {
	for _, previous := range []float64{1, 7.5, 60, 8000} {
		for pct := -20; pct <= 20; pct++ {
			current := previous * (1 + float64(pct)/100)
			got := ClassifyTrend(current, previous).Direction

			want := models.DirectionStable
			if pct > 5 {
				want = models.DirectionUp
			} else if pct < -5 {
				want = models.DirectionDown
			}
			// The ±5% edges may land either side of the band after float rounding
			if pct == 5 || pct == -5 {
				continue
			}
			if got != want {
				t.Errorf("ClassifyTrend(%v, %v) = %s, want %s", current, previous, got, want)
			}
		}
	}
}

func TestWeeklyAverages(t *testing.T) {
	reference := day(14, 20, 0)
	agg := models.DailyAggregate{
		// this week: March 8-14
		"2026-03-14": 9000,
		"2026-03-10": 8000,
		// last week: March 1-7
		"2026-03-07": 6000,
		"2026-03-01": 7000,
		"2026-03-03": 8000,
		// outside both windows
		"2026-02-28": 100000,
	}

	thisWeek, lastWeek := WeeklyAverages(agg, reference, time.UTC)
	if thisWeek != 8500 {
		t.Errorf("thisWeek = %v, want 8500", thisWeek)
	}
	if lastWeek != 7000 {
		t.Errorf("lastWeek = %v, want 7000", lastWeek)
	}

	empty, none := WeeklyAverages(models.DailyAggregate{}, reference, time.UTC)
	if empty != 0 || none != 0 {
		t.Errorf("Expected zero averages for empty aggregate, got %v, %v", empty, none)
	}
}

func TestBuildWeeklyTrends(t *testing.T) {
	reference := day(14, 20, 0)
	llm := &fakeLLM{generateReply: "  🚶 Great job staying active this week!  "}
	svc := NewTrendService(newFakeProvider(), NewAggregator(time.UTC), llm, nil).(*trendService)
	svc.now = func() time.Time { return reference }

	steps := models.DailyAggregate{"2026-03-14": 8500, "2026-03-07": 8000}
	sleep := models.DailyAggregate{"2026-03-13": 7.44, "2026-03-06": 7.5}
	heartRate := models.DailyAggregate{"2026-03-12": 59, "2026-03-05": 60}

	summary := svc.BuildWeeklyTrends(context.Background(), steps, sleep, heartRate, reference)

	if summary.Steps.Direction != models.DirectionUp || summary.Steps.PercentChange != 6 {
		t.Errorf("Unexpected steps trend %+v", summary.Steps)
	}
	if summary.Sleep.ThisWeekAvg != 7.4 || summary.Sleep.Unit != "hours" {
		t.Errorf("Unexpected sleep trend %+v", summary.Sleep)
	}
	if summary.HeartRate.Direction != models.DirectionStable || summary.HeartRate.Metric != "Resting Heart Rate" {
		t.Errorf("Unexpected heart rate trend %+v", summary.HeartRate)
	}
	if summary.Insight != "🚶 Great job staying active this week!" {
		t.Errorf("Insight = %q", summary.Insight)
	}
	if !summary.GeneratedAt.Equal(reference) {
		t.Errorf("GeneratedAt = %v", summary.GeneratedAt)
	}

	if len(llm.prompts) != 1 {
		t.Fatalf("Expected one insight prompt, got %d", len(llm.prompts))
	}
	prompt := llm.prompts[0]
	for _, want := range []string{"Steps: 8500/day (+6% vs last week)", "Sleep: 7.4h/night (-1% vs last week)", "Resting HR: 59 BPM (-2% vs last week)"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestInsightPrompt_WholeAverages(t *testing.T) {
	summary := &models.WeeklyTrendsSummary{
		Steps:     models.WeeklyTrend{ThisWeekAvg: 10000, PercentChange: 0},
		Sleep:     models.WeeklyTrend{ThisWeekAvg: 8, PercentChange: 14},
		HeartRate: models.WeeklyTrend{ThisWeekAvg: 62, PercentChange: -3},
	}

	prompt := InsightPrompt(summary)
	for _, want := range []string{"Steps: 10000/day (0% vs last week)", "Sleep: 8h/night (+14% vs last week)", "Resting HR: 62 BPM (-3% vs last week)"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildWeeklyTrends_FallbackInsight(t *testing.T) {
	tests := []struct {
		name string
		llm  TextGenerator
	}{
		{name: "generator error", llm: &fakeLLM{generateErr: errors.New("quota exceeded")}},
		{name: "empty reply", llm: &fakeLLM{generateReply: "   "}},
		{name: "no generator", llm: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewTrendService(newFakeProvider(), NewAggregator(time.UTC), tt.llm, nil)
			summary := svc.BuildWeeklyTrends(context.Background(), nil, nil, nil, day(14, 12, 0))
			if summary.Insight != FallbackInsight {
				t.Errorf("Insight = %q, want fallback", summary.Insight)
			}
			if summary.Steps.Direction != models.DirectionStable || summary.Steps.PercentChange != 0 {
				t.Errorf("Expected stable zero trend for empty data, got %+v", summary.Steps)
			}
		})
	}
}

func TestComputeWeeklyTrends(t *testing.T) {
	provider := newFakeProvider()
	provider.samples[models.SampleKindSteps] = []models.HealthSample{
		quantity(models.SampleKindSteps, 9000, day(13, 10, 0)),
		quantity(models.SampleKindSteps, 6000, day(5, 10, 0)),
	}
	provider.samples[models.SampleKindSleep] = []models.HealthSample{
		// ends on the first day of the window, starts the evening before it
		sleepSample(models.SleepStageAsleep, time.Date(2026, time.February, 28, 23, 0, 0, 0, time.UTC), day(1, 5, 0)),
		sleepSample(models.SleepStageAsleep, day(12, 23, 0), day(13, 7, 0)),
	}
	provider.failing[models.SampleKindHeartRate] = true

	publisher := &recordingPublisher{}
	svc := NewTrendService(provider, NewAggregator(time.UTC), &fakeLLM{generateReply: "😴 Sleep is on point!"}, publisher).(*trendService)
	svc.now = func() time.Time { return day(14, 9, 0) }

	summary, err := svc.ComputeWeeklyTrends(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ComputeWeeklyTrends failed: %v", err)
	}

	if summary.Steps.ThisWeekAvg != 9000 || summary.Steps.LastWeekAvg != 6000 {
		t.Errorf("Unexpected steps %+v", summary.Steps)
	}
	if summary.Sleep.ThisWeekAvg != 8 || summary.Sleep.LastWeekAvg != 6 {
		t.Errorf("Unexpected sleep %+v", summary.Sleep)
	}
	if summary.HeartRate.ThisWeekAvg != 0 || summary.HeartRate.Direction != models.DirectionStable {
		t.Errorf("Expected failed heart rate to report 0 vs 0, got %+v", summary.HeartRate)
	}

	if len(publisher.events) != 1 || publisher.events[0].Type != events.TypeTrendsComputed {
		t.Errorf("Expected one trends event, got %+v", publisher.events)
	}
}

func TestComputeWeeklyTrends_TotalFailure(t *testing.T) {
	provider := newFakeProvider()
	for _, k := range []models.SampleKind{models.SampleKindSteps, models.SampleKindSleep, models.SampleKindHeartRate} {
		provider.failing[k] = true
	}

	svc := NewTrendService(provider, NewAggregator(time.UTC), nil, nil)
	_, err := svc.ComputeWeeklyTrends(context.Background(), "user-1")
	if !errors.Is(err, ErrNoHealthData) {
		t.Fatalf("Expected ErrNoHealthData, got %v", err)
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || len(fetchErr.Failed) != 3 {
		t.Errorf("Expected FetchError naming 3 metrics, got %v", err)
	}
}

func TestComputeWeeklyTrends_PublishFailureIgnored(t *testing.T) {
	provider := newFakeProvider()
	publisher := &recordingPublisher{err: errors.New("broker down")}

	svc := NewTrendService(provider, NewAggregator(time.UTC), nil, publisher)
	if _, err := svc.ComputeWeeklyTrends(context.Background(), "user-1"); err != nil {
		t.Errorf("Expected publish failure to be ignored, got %v", err)
	}
}
