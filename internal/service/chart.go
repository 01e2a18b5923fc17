package service

import (
	"fmt"
	"math"
	"time"

	"github.com/lorahealth/lora/backend/internal/models"
)

// Chart colors used by the client
const (
	ChartColorSteps     = "#FF8904"
	ChartColorHeartRate = "#FF6467"
	ChartColorSleep     = "#21BCFF"
	ChartColorDefault   = "#0000FF"
)

// Samples shown by per-reading charts
const chartSampleLimit = 7

const chartLabelLayout = "Jan 02"

// prepareChartData builds a chart from the first successful tool that produced a series.
// Without one, several successful scalar results become a "Today's Summary" bar chart.
// Returns nil when nothing is worth drawing.
func prepareChartData(outcomes []toolOutcome, chartType *models.ChartType, loc *time.Location) *models.ChartData {
	successful := make([]toolOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o.result.Success && o.result.Data != nil {
			successful = append(successful, o)
		}
	}
	if len(successful) == 0 {
		return nil
	}

	for _, o := range successful {
		if chart, ok := seriesChart(o, chartType, loc); ok {
			return chart
		}
	}

	if len(successful) > 1 {
		return summaryChart(successful)
	}
	return nil
}

// seriesChart reports ok when the outcome carries a non-empty series. The chart
// itself may still be nil when every value is zero.
func seriesChart(o toolOutcome, chartType *models.ChartType, loc *time.Location) (*models.ChartData, bool) {
	var (
		chart  models.ChartData
		labels []string
		values []float64
	)

	switch data := o.result.Data.(type) {
	case *models.DailyStepsToolData:
		if len(data.Days) == 0 {
			return nil, false
		}
		for _, day := range data.Days.Days() {
			labels = append(labels, dayLabel(day, loc))
			values = append(values, math.Round(data.Days[day]))
		}
		chart = models.ChartData{Type: models.ChartTypeBar, Title: "Steps" + daysSuffix(len(labels)), Color: ChartColorSteps}

	case *models.SleepToolData:
		if len(data.Samples) == 0 {
			return nil, false
		}
		for _, day := range data.ByDay.Days() {
			labels = append(labels, dayLabel(day, loc))
			values = append(values, roundTo(data.ByDay[day], 1))
		}
		chart = models.ChartData{Type: models.ChartTypeBar, Title: "Sleep Duration" + daysSuffix(len(labels)), Color: ChartColorSleep}

	case *models.HeartRateSummary:
		if len(data.Samples) == 0 {
			return nil, false
		}
		labels, values = recentReadings(data.Samples, loc)
		chart = models.ChartData{Type: models.ChartTypeLine, Title: "Heart Rate Trend", Color: ChartColorHeartRate}

	case *models.CaloriesToolData:
		if len(data.Samples) == 0 {
			return nil, false
		}
		labels, values = recentReadings(data.Samples, loc)
		chart = models.ChartData{Type: models.ChartTypeBar, Title: "Health Data", Color: ChartColorDefault}
		if chartType != nil {
			chart.Type = *chartType
		}

	default:
		return nil, false
	}

	if len(labels) == 0 || !anyPositive(values) {
		return nil, true
	}

	chart.Data = models.ChartSeries{
		Labels:   labels,
		Datasets: []models.ChartDataset{{Data: values}},
	}
	return &chart, true
}

func summaryChart(outcomes []toolOutcome) *models.ChartData {
	var labels []string
	var values []float64

	for _, o := range outcomes {
		switch data := o.result.Data.(type) {
		case *models.StepsToolData:
			labels = append(labels, "Steps")
			values = append(values, math.Round(data.Steps))
		case *models.CaloriesToolData:
			labels = append(labels, "Calories")
			values = append(values, math.Round(data.Calories))
		case *models.HeartRateSummary:
			if data.Average > 0 {
				labels = append(labels, "Heart Rate")
				values = append(values, math.Round(data.Average))
			}
		case *models.SleepToolData:
			if data.TotalHours > 0 {
				labels = append(labels, "Sleep (hrs)")
				values = append(values, roundTo(data.TotalHours, 1))
			}
		}
	}

	if len(labels) == 0 || !anyPositive(values) {
		return nil
	}

	return &models.ChartData{
		Type:  models.ChartTypeBar,
		Title: "Today's Summary",
		Data: models.ChartSeries{
			Labels:   labels,
			Datasets: []models.ChartDataset{{Data: values}},
		},
		Color: ChartColorDefault,
	}
}

// recentReadings labels the last few readings by the day they started
func recentReadings(samples []models.HealthSample, loc *time.Location) ([]string, []float64) {
	if len(samples) > chartSampleLimit {
		samples = samples[len(samples)-chartSampleLimit:]
	}
	labels := make([]string, len(samples))
	values := make([]float64, len(samples))
	for i, s := range samples {
		labels[i] = s.StartTime.In(loc).Format(chartLabelLayout)
		values[i] = math.Round(s.Value)
	}
	return labels, values
}

func dayLabel(day string, loc *time.Location) string {
	t, err := time.ParseInLocation(models.DayKeyLayout, day, loc)
	if err != nil {
		return day
	}
	return t.Format(chartLabelLayout)
}

func daysSuffix(n int) string {
	switch {
	case n == 1:
		return " - Today"
	case n > 1:
		return fmt.Sprintf(" - Last %d Days", n)
	}
	return ""
}

func anyPositive(values []float64) bool {
	for _, v := range values {
		if v > 0 {
			return true
		}
	}
	return false
}
