package models

import "time"

// Direction classifies a week-over-week change
type Direction string

const (
	DirectionUp     Direction = "up"
	DirectionDown   Direction = "down"
	DirectionStable Direction = "stable"
)

// TrendResult is the classified comparison of two values
type TrendResult struct {
	PercentChange int       `json:"percent_change"`
	Direction     Direction `json:"direction"`
}

// WeeklyTrend compares this week's average with last week's for one metric
type WeeklyTrend struct {
	ThisWeekAvg   float64   `json:"this_week_avg"`
	LastWeekAvg   float64   `json:"last_week_avg"`
	PercentChange int       `json:"percent_change"`
	Direction     Direction `json:"direction"`
	Metric        string    `json:"metric"`
	Unit          string    `json:"unit"`
}

// WeeklyTrendsSummary is the payload behind the weekly trends card
type WeeklyTrendsSummary struct {
	Steps       WeeklyTrend `json:"steps"`
	Sleep       WeeklyTrend `json:"sleep"`
	HeartRate   WeeklyTrend `json:"heart_rate"`
	Insight     string      `json:"insight"`
	GeneratedAt time.Time   `json:"generated_at"`
}
