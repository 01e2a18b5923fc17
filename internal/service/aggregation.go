package service

import (
	"math"
	"sort"
	"time"

	"github.com/lorahealth/lora/backend/internal/models"
)

// Aggregator turns raw health samples into per-day values.
// Day boundaries are local midnights in loc.
type Aggregator struct {
	loc *time.Location
}

// NewAggregator creates an aggregator that buckets days in loc (time.Local when nil)
func NewAggregator(loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{loc: loc}
}

// Location returns the timezone used for day keys
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// ComputeDailyAggregate dispatches on kind: sleep is merged as intervals,
// heart rate is averaged per day, everything else is summed per day.
func (a *Aggregator) ComputeDailyAggregate(samples []models.HealthSample, kind models.SampleKind, window *models.Window) models.DailyAggregate {
	switch {
	case kind.IsInterval():
		return a.MergeIntervals(samples, window)
	case kind == models.SampleKindHeartRate:
		return a.MeanByDay(samples, window)
	default:
		return a.SumByDay(samples, window)
	}
}

// MergeIntervals merges contributing sample spans and assigns each merged span's
// full duration, in hours, to the local day its end falls on. The window, when set,
// keeps merged spans whose end falls inside it.
func (a *Aggregator) MergeIntervals(samples []models.HealthSample, window *models.Window) models.DailyAggregate {
	intervals := make([]models.Interval, 0, len(samples))
	for _, s := range samples {
		if !isWellFormedSpan(s) || !contributes(s) {
			continue
		}
		intervals = append(intervals, models.Interval{Start: s.StartTime, End: s.EndTime})
	}

	agg := make(models.DailyAggregate)
	for _, iv := range MergeSpans(intervals) {
		if !window.Contains(iv.End) {
			continue
		}
		hours := float64(iv.Duration().Milliseconds()) / float64(time.Hour/time.Millisecond)
		agg[models.DayKey(iv.End, a.loc)] += hours
	}
	return agg
}

// MergeSpans sorts intervals by start and merges any that overlap or touch.
// The input slice is not modified.
func MergeSpans(intervals []models.Interval) []models.Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]models.Interval, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := make([]models.Interval, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if !next.Start.After(current.End) {
			if next.End.After(current.End) {
				current.End = next.End
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	merged = append(merged, current)

	return merged
}

// SumByDay sums sample values grouped by the local day of each sample's start.
// The window, when set, filters on the start instant.
func (a *Aggregator) SumByDay(samples []models.HealthSample, window *models.Window) models.DailyAggregate {
	agg := make(models.DailyAggregate)
	for _, s := range samples {
		if !isWellFormedQuantity(s) || !window.Contains(s.StartTime) {
			continue
		}
		agg[models.DayKey(s.StartTime, a.loc)] += s.Value
	}
	return agg
}

// MeanByDay averages sample values grouped by the local day of each sample's start
func (a *Aggregator) MeanByDay(samples []models.HealthSample, window *models.Window) models.DailyAggregate {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, s := range samples {
		if !isWellFormedQuantity(s) || !window.Contains(s.StartTime) {
			continue
		}
		day := models.DayKey(s.StartTime, a.loc)
		sums[day] += s.Value
		counts[day]++
	}

	agg := make(models.DailyAggregate, len(sums))
	for day, sum := range sums {
		agg[day] = sum / float64(counts[day])
	}
	return agg
}

// TotalHours returns the merged sleep hours ending inside window, summed over all days
func (a *Aggregator) TotalHours(samples []models.HealthSample, window *models.Window) float64 {
	return a.MergeIntervals(samples, window).Total()
}

// contributes reports whether a sample counts towards an interval total
func contributes(s models.HealthSample) bool {
	if s.Kind == models.SampleKindSleep {
		return s.Stage.Contributes()
	}
	return true
}

func isWellFormedSpan(s models.HealthSample) bool {
	if s.StartTime.IsZero() || s.EndTime.IsZero() {
		return false
	}
	return !s.EndTime.Before(s.StartTime)
}

func isWellFormedQuantity(s models.HealthSample) bool {
	if s.StartTime.IsZero() {
		return false
	}
	return !math.IsNaN(s.Value) && !math.IsInf(s.Value, 0)
}
