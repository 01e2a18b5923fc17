package models

import "time"

// ToolName identifies one of the fixed health data tools the assistant can call
type ToolName string

const (
	ToolStepsToday        ToolName = "getStepsToday"
	ToolStepsLastWeek     ToolName = "getStepsLastWeek"
	ToolCaloriesToday     ToolName = "getCaloriesToday"
	ToolHeartRateToday    ToolName = "getHeartRateToday"
	ToolHeartRateLastWeek ToolName = "getHeartRateLastWeek"
	ToolSleepToday        ToolName = "getSleepToday"
	ToolSleepLastWeek     ToolName = "getSleepLastWeek"
	ToolDistanceToday     ToolName = "getDistanceToday"
)

// ChartType is the kind of chart the client should draw
type ChartType string

const (
	ChartTypeLine ChartType = "line"
	ChartTypeBar  ChartType = "bar"
)

// ChartDataset is one series of chart values
type ChartDataset struct {
	Data []float64 `json:"data"`
}

// ChartSeries holds chart labels and series
type ChartSeries struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

// ChartData is the chart payload attached to an assistant reply
type ChartData struct {
	Type  ChartType   `json:"type"`
	Title string      `json:"title"`
	Data  ChartSeries `json:"data"`
	Color string      `json:"color,omitempty"`
}

// Role is the author of a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is one entry of a conversation
type ChatMessage struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	ChartData *ChartData `json:"chartData,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ChatRequest is the body of POST /api/v1/chat
type ChatRequest struct {
	Query string `json:"query" binding:"required,max=2000"`
}

// QueryAnalysis is the tool selection returned by the assistant (or keyword fallback)
type QueryAnalysis struct {
	Tools      []ToolName `json:"tools"`
	NeedsChart bool       `json:"needsChart"`
	ChartType  *ChartType `json:"chartType"`
	Reasoning  string     `json:"reasoning"`
}

// ToolResult is the outcome of executing one tool
type ToolResult struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthQueryResponse is the assistant's answer to a health question
type HealthQueryResponse struct {
	Text      string       `json:"text"`
	ChartData *ChartData   `json:"chartData,omitempty"`
	Message   *ChatMessage `json:"message,omitempty"`
}

// StepsToolData is the result of getStepsToday
type StepsToolData struct {
	Steps float64 `json:"steps"`
}

// DailyStepsToolData is the result of getStepsLastWeek
type DailyStepsToolData struct {
	Days  DailyAggregate `json:"days"`
	Total float64        `json:"total"`
}

// CaloriesToolData is the result of getCaloriesToday
type CaloriesToolData struct {
	Calories float64        `json:"calories"`
	Samples  []HealthSample `json:"samples"`
}

// SleepToolData is the result of the sleep tools. ByDay keys are the days sleep ended on.
type SleepToolData struct {
	TotalHours float64        `json:"totalHours"`
	ByDay      DailyAggregate `json:"byDay"`
	Samples    []HealthSample `json:"samples"`
}

// DistanceToolData is the result of getDistanceToday
type DistanceToolData struct {
	Distance float64 `json:"distance"`
	Unit     string  `json:"unit"`
}
