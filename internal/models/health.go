package models

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// SampleKind identifies which HealthKit quantity or category a sample belongs to
type SampleKind string

const (
	SampleKindSteps        SampleKind = "steps"
	SampleKindHeartRate    SampleKind = "heart_rate"
	SampleKindSleep        SampleKind = "sleep"
	SampleKindActiveEnergy SampleKind = "active_energy"
	SampleKindDistance     SampleKind = "distance"
)

// AllSampleKinds lists every kind the backend accepts
var AllSampleKinds = []SampleKind{
	SampleKindSteps,
	SampleKindHeartRate,
	SampleKindSleep,
	SampleKindActiveEnergy,
	SampleKindDistance,
}

// IsValid reports whether k is a known sample kind
func (k SampleKind) IsValid() bool {
	switch k {
	case SampleKindSteps, SampleKindHeartRate, SampleKindSleep, SampleKindActiveEnergy, SampleKindDistance:
		return true
	}
	return false
}

// IsInterval reports whether samples of this kind are aggregated as merged time spans
func (k SampleKind) IsInterval() bool {
	return k == SampleKindSleep
}

// Label returns the human-readable metric name used in logs and failure messages
func (k SampleKind) Label() string {
	switch k {
	case SampleKindSteps:
		return "steps"
	case SampleKindHeartRate:
		return "heart rate"
	case SampleKindSleep:
		return "sleep"
	case SampleKindActiveEnergy:
		return "calories"
	case SampleKindDistance:
		return "distance"
	default:
		return string(k)
	}
}

// Unit returns the unit a sample value of this kind is expressed in
func (k SampleKind) Unit() string {
	switch k {
	case SampleKindSteps:
		return "steps"
	case SampleKindHeartRate:
		return "BPM"
	case SampleKindSleep:
		return "hours"
	case SampleKindActiveEnergy:
		return "kcal"
	case SampleKindDistance:
		return "meters"
	default:
		return ""
	}
}

// ParseSampleKind converts a path or query value to a SampleKind
func ParseSampleKind(s string) (SampleKind, error) {
	k := SampleKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("unknown sample kind %q", s)
	}
	return k, nil
}

// SleepStage is the HealthKit sleep analysis category label
type SleepStage string

const (
	SleepStageAwake       SleepStage = "AWAKE"
	SleepStageInBed       SleepStage = "INBED"
	SleepStageAsleep      SleepStage = "ASLEEP"
	SleepStageAsleepCore  SleepStage = "ASLEEP_CORE"
	SleepStageAsleepDeep  SleepStage = "ASLEEP_DEEP"
	SleepStageAsleepREM   SleepStage = "ASLEEP_REM"
	SleepStageCore        SleepStage = "CORE"
	SleepStageDeep        SleepStage = "DEEP"
	SleepStageREM         SleepStage = "REM"
	SleepStageUnspecified SleepStage = "ASLEEP_UNSPECIFIED"
)

// IsValid reports whether s is a stage label HealthKit can report
func (s SleepStage) IsValid() bool {
	switch s {
	case SleepStageAwake, SleepStageInBed, SleepStageAsleep, SleepStageAsleepCore,
		SleepStageAsleepDeep, SleepStageAsleepREM, SleepStageCore, SleepStageDeep,
		SleepStageREM, SleepStageUnspecified:
		return true
	}
	return false
}

// Contributes reports whether time spent in this stage counts as sleep.
// Only AWAKE is excluded.
func (s SleepStage) Contributes() bool {
	return s != SleepStageAwake
}

// HealthSample is a single observation from the device health store.
// Quantity kinds carry Value; the sleep kind carries Stage.
type HealthSample struct {
	ID        string     `json:"id,omitempty"`
	UserID    string     `json:"user_id,omitempty"`
	Kind      SampleKind `json:"kind"`
	Value     float64    `json:"value,omitempty"`
	Stage     SleepStage `json:"stage,omitempty"`
	StartTime time.Time  `json:"start_date"`
	EndTime   time.Time  `json:"end_date"`
	Source    string     `json:"source,omitempty"`
	CreatedAt time.Time  `json:"created_at,omitempty"`
}

// Duration returns EndTime - StartTime
func (s HealthSample) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// Validate checks the sample invariants enforced at the ingestion boundary
func (s HealthSample) Validate() error {
	if !s.Kind.IsValid() {
		return fmt.Errorf("unknown sample kind %q", s.Kind)
	}
	if s.StartTime.IsZero() || s.EndTime.IsZero() {
		return fmt.Errorf("start_date and end_date are required")
	}
	if s.EndTime.Before(s.StartTime) {
		return fmt.Errorf("end_date must not be before start_date")
	}
	if s.Kind.IsInterval() {
		if !s.Stage.IsValid() {
			return fmt.Errorf("invalid sleep stage %q", s.Stage)
		}
		return nil
	}
	if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		return fmt.Errorf("value must be a finite number")
	}
	if s.Value < 0 {
		return fmt.Errorf("value must not be negative")
	}
	return nil
}

// Interval is a contiguous span of time derived from one or more samples
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the length of the interval
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// DayKeyLayout is the layout used for DailyAggregate keys
const DayKeyLayout = "2006-01-02"

// DailyAggregate maps a local calendar day ("2006-01-02") to a summed duration in hours,
// a summed count, or a daily mean depending on the sample kind.
// A day with no data has no entry.
type DailyAggregate map[string]float64

// Days returns the aggregate's day keys in ascending order
func (a DailyAggregate) Days() []string {
	days := make([]string, 0, len(a))
	for d := range a {
		days = append(days, d)
	}
	sort.Strings(days)
	return days
}

// Total returns the sum of all daily values
func (a DailyAggregate) Total() float64 {
	var total float64
	for _, v := range a {
		total += v
	}
	return total
}

// Window restricts aggregation to local days in [Start, End).
// Both bounds are local midnights. A nil *Window means unrestricted.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls in [Start, End)
func (w *Window) Contains(t time.Time) bool {
	if w == nil {
		return true
	}
	return !t.Before(w.Start) && t.Before(w.End)
}

// StartOfDay returns local midnight of the day containing t in loc
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// DayWindow returns the window covering the local day of t
func DayWindow(t time.Time, loc *time.Location) *Window {
	start := StartOfDay(t, loc)
	return &Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// DaysWindow returns the window covering the `days` local days ending with the day of t
func DaysWindow(t time.Time, days int, loc *time.Location) *Window {
	end := StartOfDay(t, loc).AddDate(0, 0, 1)
	return &Window{Start: end.AddDate(0, 0, -days), End: end}
}

// DayKey formats the local day of t as an aggregate key
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayKeyLayout)
}
