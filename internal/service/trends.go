package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lorahealth/lora/backend/internal/events"
	"github.com/lorahealth/lora/backend/internal/logger"
	"github.com/lorahealth/lora/backend/internal/models"
)

const (
	// Changes within this fraction of the previous value classify as stable
	TrendDeadBand = 0.05

	// Days in each compared window
	TrendWindowDays = 7

	// FallbackInsight is used whenever insight generation fails
	FallbackInsight = "💪 Keep up the great work with your health!"
)

// ClassifyTrend compares current with previous. percentChange is 0 when previous is 0.
func ClassifyTrend(current, previous float64) models.TrendResult {
	result := models.TrendResult{Direction: models.DirectionStable}

	if previous != 0 {
		result.PercentChange = int(math.Round((current - previous) / previous * 100))
	}

	// Compare the difference against the band so the ±5% edges stay stable
	diff := current - previous
	band := math.Abs(previous) * TrendDeadBand
	switch {
	case diff > band:
		result.Direction = models.DirectionUp
	case diff < -band:
		result.Direction = models.DirectionDown
	}

	return result
}

// weeklyMetric describes how one metric is presented in the weekly summary
type weeklyMetric struct {
	kind      models.SampleKind
	name      string
	unit      string
	precision int
}

var (
	stepsMetric     = weeklyMetric{kind: models.SampleKindSteps, name: "Steps", unit: "steps", precision: 0}
	sleepMetric     = weeklyMetric{kind: models.SampleKindSleep, name: "Sleep", unit: "hours", precision: 1}
	heartRateMetric = weeklyMetric{kind: models.SampleKindHeartRate, name: "Resting Heart Rate", unit: "BPM", precision: 0}
)

// WeeklyAverages returns the mean daily value over the 7 local days ending on the
// reference day and over the 7 days before that. Days without an entry are not
// counted; a window with no entries averages to 0.
func WeeklyAverages(agg models.DailyAggregate, reference time.Time, loc *time.Location) (thisWeek, lastWeek float64) {
	day := models.StartOfDay(reference, loc)

	var thisSum, lastSum float64
	var thisN, lastN int
	for i := 0; i < 2*TrendWindowDays; i++ {
		key := day.AddDate(0, 0, -i).Format(models.DayKeyLayout)
		v, ok := agg[key]
		if !ok {
			continue
		}
		if i < TrendWindowDays {
			thisSum += v
			thisN++
		} else {
			lastSum += v
			lastN++
		}
	}

	if thisN > 0 {
		thisWeek = thisSum / float64(thisN)
	}
	if lastN > 0 {
		lastWeek = lastSum / float64(lastN)
	}
	return thisWeek, lastWeek
}

func roundTo(v float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Round(v*p) / p
}

type trendService struct {
	provider   HealthDataProvider
	aggregator *Aggregator
	generator  TextGenerator
	publisher  events.Publisher
	now        func() time.Time
}

// NewTrendService creates a new trend service
func NewTrendService(provider HealthDataProvider, aggregator *Aggregator, generator TextGenerator, publisher events.Publisher) TrendService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &trendService{
		provider:   provider,
		aggregator: aggregator,
		generator:  generator,
		publisher:  publisher,
		now:        time.Now,
	}
}

// ComputeWeeklyTrends loads two weeks of history, aggregates it per day and compares weeks.
// A metric whose fetch failed is reported as 0 vs 0. Only when every fetch fails is an
// error returned.
func (s *trendService) ComputeWeeklyTrends(ctx context.Context, userID string) (*models.WeeklyTrendsSummary, error) {
	now := s.now()
	loc := s.aggregator.Location()
	window := models.DaysWindow(now, 2*TrendWindowDays, loc)

	// Sleep that ends on the first day may start the evening before
	fetchStart := window.Start.AddDate(0, 0, -1)

	kinds := []models.SampleKind{stepsMetric.kind, sleepMetric.kind, heartRateMetric.kind}
	outcome, err := fetchKinds(ctx, s.provider, userID, kinds, fetchStart, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load weekly history: %w", err)
	}

	steps := s.aggregator.ComputeDailyAggregate(outcome.Samples[stepsMetric.kind], stepsMetric.kind, window)
	sleep := s.aggregator.ComputeDailyAggregate(outcome.Samples[sleepMetric.kind], sleepMetric.kind, window)
	heartRate := s.aggregator.ComputeDailyAggregate(outcome.Samples[heartRateMetric.kind], heartRateMetric.kind, window)

	summary := s.BuildWeeklyTrends(ctx, steps, sleep, heartRate, now)

	event := events.New(events.TypeTrendsComputed, userID, summary)
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Ctx(ctx).Warn("failed to publish trends event", logger.Err(err))
	}

	return summary, nil
}

// BuildWeeklyTrends compares the week ending on reference with the week before for
// each metric and asks the text generator for a one-sentence insight.
func (s *trendService) BuildWeeklyTrends(ctx context.Context, steps, sleep, heartRate models.DailyAggregate, reference time.Time) *models.WeeklyTrendsSummary {
	loc := s.aggregator.Location()

	summary := &models.WeeklyTrendsSummary{
		Steps:       buildWeeklyTrend(stepsMetric, steps, reference, loc),
		Sleep:       buildWeeklyTrend(sleepMetric, sleep, reference, loc),
		HeartRate:   buildWeeklyTrend(heartRateMetric, heartRate, reference, loc),
		GeneratedAt: s.now(),
	}

	summary.Insight = s.generateInsight(ctx, summary)
	return summary
}

func buildWeeklyTrend(metric weeklyMetric, agg models.DailyAggregate, reference time.Time, loc *time.Location) models.WeeklyTrend {
	thisWeek, lastWeek := WeeklyAverages(agg, reference, loc)
	thisWeek = roundTo(thisWeek, metric.precision)
	lastWeek = roundTo(lastWeek, metric.precision)

	trend := ClassifyTrend(thisWeek, lastWeek)

	return models.WeeklyTrend{
		ThisWeekAvg:   thisWeek,
		LastWeekAvg:   lastWeek,
		PercentChange: trend.PercentChange,
		Direction:     trend.Direction,
		Metric:        metric.name,
		Unit:          metric.unit,
	}
}

func (s *trendService) generateInsight(ctx context.Context, summary *models.WeeklyTrendsSummary) string {
	if s.generator == nil {
		return FallbackInsight
	}

	text, err := s.generator.Generate(ctx, InsightPrompt(summary))
	if err != nil {
		logger.Ctx(ctx).Warn("failed to generate weekly insight", logger.Err(err))
		return FallbackInsight
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return FallbackInsight
	}
	return text
}

// InsightPrompt builds the prompt asking for a single motivating sentence
func InsightPrompt(summary *models.WeeklyTrendsSummary) string {
	var b strings.Builder
	b.WriteString("Based on this week's health data, provide ONE sentence insight (max 15 words):\n")
	fmt.Fprintf(&b, "- Steps: %s/day (%s vs last week)\n", formatAvg(summary.Steps.ThisWeekAvg), signedPercent(summary.Steps.PercentChange))
	fmt.Fprintf(&b, "- Sleep: %sh/night (%s vs last week)\n", formatAvg(summary.Sleep.ThisWeekAvg), signedPercent(summary.Sleep.PercentChange))
	fmt.Fprintf(&b, "- Resting HR: %s BPM (%s vs last week)\n", formatAvg(summary.HeartRate.ThisWeekAvg), signedPercent(summary.HeartRate.PercentChange))
	b.WriteString("\nKeep it positive and motivating. Format: \"[emoji] [insight]\"")
	return b.String()
}

// formatAvg prints an already rounded average without padding zeros: 8, 7.5, 8500
func formatAvg(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func signedPercent(p int) string {
	if p > 0 {
		return fmt.Sprintf("+%d%%", p)
	}
	return fmt.Sprintf("%d%%", p)
}
