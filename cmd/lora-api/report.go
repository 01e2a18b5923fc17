package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lorahealth/lora/backend/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#21BCFF"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	upStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3FB950"))
	downStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6467"))
	cardStyle  = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
)

// renderAggregate renders one row per day plus a total
func renderAggregate(kind models.SampleKind, agg models.DailyAggregate) string {
	var rows []string
	rows = append(rows, titleStyle.Render(fmt.Sprintf("Daily %s (%s)", kind.Label(), kind.Unit())))

	days := agg.Days()
	if len(days) == 0 {
		rows = append(rows, mutedStyle.Render("no data in range"))
		return cardStyle.Render(strings.Join(rows, "\n"))
	}

	precision := 0
	if kind.IsInterval() || kind == models.SampleKindDistance {
		precision = 2
	}
	for _, day := range days {
		rows = append(rows, fmt.Sprintf("%s  %s", mutedStyle.Render(day), valueStyle.Render(fmt.Sprintf("%.*f", precision, agg[day]))))
	}
	if kind != models.SampleKindHeartRate {
		rows = append(rows, fmt.Sprintf("%s  %s", mutedStyle.Render("total     "), valueStyle.Render(fmt.Sprintf("%.*f", precision, agg.Total()))))
	}

	return cardStyle.Render(strings.Join(rows, "\n"))
}

// renderTrends renders the three weekly trend cards and the insight
func renderTrends(summary *models.WeeklyTrendsSummary) string {
	cards := []string{
		trendCard(summary.Steps, 0),
		trendCard(summary.Sleep, 1),
		trendCard(summary.HeartRate, 0),
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Weekly trends"),
		lipgloss.JoinHorizontal(lipgloss.Top, cards...),
		summary.Insight,
	)
}

func trendCard(t models.WeeklyTrend, precision int) string {
	arrow := mutedStyle.Render("→ stable")
	switch t.Direction {
	case models.DirectionUp:
		arrow = upStyle.Render(fmt.Sprintf("↑ %+d%%", t.PercentChange))
	case models.DirectionDown:
		arrow = downStyle.Render(fmt.Sprintf("↓ %+d%%", t.PercentChange))
	}

	return cardStyle.Render(strings.Join([]string{
		mutedStyle.Render(t.Metric),
		valueStyle.Render(fmt.Sprintf("%.*f %s", precision, t.ThisWeekAvg, t.Unit)),
		mutedStyle.Render(fmt.Sprintf("last week %.*f", precision, t.LastWeekAvg)),
		arrow,
	}, "\n"))
}
