package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lorahealth/lora/backend/internal/logger"
	"github.com/lorahealth/lora/backend/internal/models"
	"github.com/lorahealth/lora/backend/internal/repository"
)

const (
	// Messages of history sent with each chat call
	ChatContextMessages = 8

	// Messages of history shown to the tool selector
	AnalysisContextMessages = 3

	// Messages kept in stored history
	ChatHistoryLimit = 100

	// ChatApology is returned whenever the pipeline cannot produce an answer
	ChatApology = "I'm having trouble accessing the health data right now. Please make sure you've granted health permissions and try again."

	chatHistoryKeyPrefix = "@chat_history:"
)

// toolDescriptions is the fixed menu offered to the tool selector, in prompt order
var toolDescriptions = []struct {
	name        models.ToolName
	description string
}{
	{models.ToolStepsToday, "Get the total step count for today"},
	{models.ToolStepsLastWeek, "Get daily step counts for the last 7 days"},
	{models.ToolCaloriesToday, "Get calories burned today"},
	{models.ToolHeartRateToday, "Get heart rate data for today including average, min, and max"},
	{models.ToolHeartRateLastWeek, "Get heart rate data for the last 7 days"},
	{models.ToolSleepToday, "Get sleep data for today"},
	{models.ToolSleepLastWeek, "Get sleep data for the last 7 days"},
	{models.ToolDistanceToday, "Get distance walked/run today"},
}

func isKnownTool(name models.ToolName) bool {
	for _, t := range toolDescriptions {
		if t.name == name {
			return true
		}
	}
	return false
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

type chatService struct {
	provider   HealthDataProvider
	aggregator *Aggregator
	llm        LLMService
	kv         repository.KVStore
	now        func() time.Time
}

// NewChatService creates a new health question service
func NewChatService(provider HealthDataProvider, aggregator *Aggregator, llm LLMService, kv repository.KVStore) ChatService {
	return &chatService{
		provider:   provider,
		aggregator: aggregator,
		llm:        llm,
		kv:         kv,
		now:        time.Now,
	}
}

// toolOutcome pairs a tool with its result, preserving execution order
type toolOutcome struct {
	name   models.ToolName
	result models.ToolResult
}

// ProcessQuery answers a health question and appends the exchange to the user's history.
// Pipeline failures produce the apology text rather than an error.
func (s *chatService) ProcessQuery(ctx context.Context, userID, query string) (*models.HealthQueryResponse, error) {
	log := logger.Ctx(ctx)

	history, err := s.GetHistory(ctx, userID)
	if err != nil {
		return nil, err
	}

	userMsg := models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      models.RoleUser,
		Content:   strings.TrimSpace(query),
		Timestamp: s.now(),
	}
	conversation := append(history, userMsg)

	text, chart, err := s.answer(ctx, userID, userMsg.Content, conversation)
	if err != nil {
		log.Error("health query failed", logger.Err(err))
		text, chart = ChatApology, nil
	}

	reply := models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      models.RoleAssistant,
		Content:   text,
		ChartData: chart,
		Timestamp: s.now(),
	}

	if err := s.saveHistory(ctx, userID, append(conversation, reply)); err != nil {
		log.Warn("failed to save chat history", logger.Err(err))
	}

	return &models.HealthQueryResponse{
		Text:      text,
		ChartData: chart,
		Message:   &reply,
	}, nil
}

func (s *chatService) answer(ctx context.Context, userID, query string, conversation []models.ChatMessage) (string, *models.ChartData, error) {
	log := logger.Ctx(ctx)

	analysis := s.analyzeQuery(ctx, query, conversation)
	log.Debug("query analyzed",
		logger.Int("tools", len(analysis.Tools)),
		logger.Bool("needs_chart", analysis.NeedsChart),
		logger.String("reasoning", analysis.Reasoning),
	)

	now := s.now()
	outcomes := make([]toolOutcome, 0, len(analysis.Tools))
	for _, name := range analysis.Tools {
		outcomes = append(outcomes, toolOutcome{name: name, result: s.runTool(ctx, userID, name, now)})
	}

	system, err := systemPrompt(outcomes)
	if err != nil {
		return "", nil, err
	}

	recent := conversation
	if len(recent) > ChatContextMessages {
		recent = recent[len(recent)-ChatContextMessages:]
	}
	messages := make([]models.ChatMessage, 0, len(recent)+1)
	messages = append(messages, models.ChatMessage{Role: models.RoleSystem, Content: system})
	messages = append(messages, recent...)

	text, err := s.llm.Chat(ctx, messages)
	if err != nil {
		return "", nil, fmt.Errorf("chat generation failed: %w", err)
	}

	var chart *models.ChartData
	if analysis.NeedsChart && len(outcomes) > 0 {
		chart = prepareChartData(outcomes, analysis.ChartType, s.aggregator.Location())
	}
	return text, chart, nil
}

// analyzeQuery asks the model which tools to run, falling back to keyword matching
// when the model is unavailable or its reply holds no parseable JSON object.
func (s *chatService) analyzeQuery(ctx context.Context, query string, conversation []models.ChatMessage) models.QueryAnalysis {
	reply, err := s.llm.Generate(ctx, AnalysisPrompt(query, conversation))
	if err != nil {
		logger.Ctx(ctx).Warn("tool selection unavailable, using keywords", logger.Err(err))
		return SimpleQueryAnalysis(query)
	}

	analysis, ok := ParseQueryAnalysis(reply)
	if !ok {
		return SimpleQueryAnalysis(query)
	}
	return analysis
}

// AnalysisPrompt builds the tool selection prompt
func AnalysisPrompt(query string, conversation []models.ChatMessage) string {
	var b strings.Builder
	b.WriteString("You are a health data assistant. Analyze this user query and determine which health metrics they want to see:\n\n")
	fmt.Fprintf(&b, "Query: %q", query)

	if len(conversation) > 0 {
		recent := conversation
		if len(recent) > AnalysisContextMessages {
			recent = recent[len(recent)-AnalysisContextMessages:]
		}
		b.WriteString("\n\nRecent conversation:")
		for _, m := range recent {
			speaker := "User"
			if m.Role == models.RoleAssistant {
				speaker = "Assistant"
			}
			fmt.Fprintf(&b, "\n%s: %s", speaker, m.Content)
		}
	}

	b.WriteString("\n\nAvailable tools:\n")
	for i, t := range toolDescriptions {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, t.name, t.description)
	}

	b.WriteString(`
Respond in JSON format ONLY (no markdown, no explanation):
{
  "tools": ["tool1", "tool2"],
  "needsChart": true/false,
  "chartType": "line" or "bar" or null,
  "reasoning": "brief explanation"
}`)
	return b.String()
}

// ParseQueryAnalysis extracts the first-to-last brace span of reply as a QueryAnalysis.
// Unknown tool names and chart types are dropped.
func ParseQueryAnalysis(reply string) (models.QueryAnalysis, bool) {
	match := jsonObjectPattern.FindString(reply)
	if match == "" {
		return models.QueryAnalysis{}, false
	}

	var raw struct {
		Tools      []string `json:"tools"`
		NeedsChart bool     `json:"needsChart"`
		ChartType  *string  `json:"chartType"`
		Reasoning  string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(match), &raw); err != nil {
		return models.QueryAnalysis{}, false
	}

	analysis := models.QueryAnalysis{NeedsChart: raw.NeedsChart, Reasoning: raw.Reasoning}
	seen := make(map[models.ToolName]bool)
	for _, t := range raw.Tools {
		name := models.ToolName(t)
		if !isKnownTool(name) || seen[name] {
			continue
		}
		seen[name] = true
		analysis.Tools = append(analysis.Tools, name)
	}
	if raw.ChartType != nil {
		switch ct := models.ChartType(*raw.ChartType); ct {
		case models.ChartTypeLine, models.ChartTypeBar:
			analysis.ChartType = &ct
		}
	}
	return analysis, true
}

// SimpleQueryAnalysis picks tools by keyword. With no match it selects today's summary.
func SimpleQueryAnalysis(query string) models.QueryAnalysis {
	q := strings.ToLower(query)
	weekly := strings.Contains(q, "week") || strings.Contains(q, "7 day")

	analysis := models.QueryAnalysis{Reasoning: "Keyword-based analysis"}
	chart := func(t models.ChartType) {
		analysis.NeedsChart = true
		analysis.ChartType = &t
	}

	if strings.Contains(q, "step") {
		if weekly {
			analysis.Tools = append(analysis.Tools, models.ToolStepsLastWeek)
			chart(models.ChartTypeBar)
		} else {
			analysis.Tools = append(analysis.Tools, models.ToolStepsToday)
		}
	}

	if strings.Contains(q, "heart") || strings.Contains(q, "pulse") {
		if weekly {
			analysis.Tools = append(analysis.Tools, models.ToolHeartRateLastWeek)
			chart(models.ChartTypeLine)
		} else {
			analysis.Tools = append(analysis.Tools, models.ToolHeartRateToday)
		}
	}

	if strings.Contains(q, "calorie") || strings.Contains(q, "burn") {
		analysis.Tools = append(analysis.Tools, models.ToolCaloriesToday)
	}

	if strings.Contains(q, "sleep") {
		if weekly {
			analysis.Tools = append(analysis.Tools, models.ToolSleepLastWeek)
			chart(models.ChartTypeBar)
		} else {
			analysis.Tools = append(analysis.Tools, models.ToolSleepToday)
		}
	}

	if strings.Contains(q, "distance") || strings.Contains(q, "walk") || strings.Contains(q, "run") {
		analysis.Tools = append(analysis.Tools, models.ToolDistanceToday)
	}

	if len(analysis.Tools) == 0 {
		analysis.Tools = []models.ToolName{
			models.ToolStepsToday,
			models.ToolCaloriesToday,
			models.ToolHeartRateToday,
			models.ToolSleepToday,
		}
	}
	return analysis
}

// systemPrompt builds the assistant persona prompt, embedding tool results when there are any
func systemPrompt(outcomes []toolOutcome) (string, error) {
	prompt := "You are Lora, a friendly health assistant. Provide conversational responses about health data. " +
		"Be specific with numbers and provide insights. Keep responses concise (2-3 sentences). " +
		"Remember the conversation context and refer back to previous messages when relevant."

	if len(outcomes) == 0 {
		return prompt, nil
	}

	results := make(map[models.ToolName]models.ToolResult, len(outcomes))
	for _, o := range outcomes {
		results[o.name] = o.result
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode tool results: %w", err)
	}

	return prompt + "\n\n=== HEALTH DATA ===\n" + string(data) +
		"\n\nUse this data to answer the user's question with specific numbers and insights.", nil
}

// runTool executes one tool against stored samples. Fetch failures become unsuccessful results.
func (s *chatService) runTool(ctx context.Context, userID string, name models.ToolName, now time.Time) models.ToolResult {
	loc := s.aggregator.Location()
	today := models.DayWindow(now, loc)
	week := models.DaysWindow(now, 7, loc)

	fetch := func(kind models.SampleKind, window *models.Window) ([]models.HealthSample, error) {
		start := window.Start
		if kind.IsInterval() {
			start = start.AddDate(0, 0, -1)
		}
		return s.provider.FetchSamples(ctx, userID, kind, start, window.End)
	}

	var (
		data any
		err  error
	)
	switch name {
	case models.ToolStepsToday:
		var samples []models.HealthSample
		if samples, err = fetch(models.SampleKindSteps, today); err == nil {
			data = &models.StepsToolData{Steps: s.aggregator.SumByDay(samples, today).Total()}
		}
	case models.ToolStepsLastWeek:
		var samples []models.HealthSample
		if samples, err = fetch(models.SampleKindSteps, week); err == nil {
			days := s.aggregator.SumByDay(samples, week)
			data = &models.DailyStepsToolData{Days: days, Total: days.Total()}
		}
	case models.ToolCaloriesToday:
		var samples []models.HealthSample
		if samples, err = fetch(models.SampleKindActiveEnergy, today); err == nil {
			data = &models.CaloriesToolData{
				Calories: roundTo(s.aggregator.SumByDay(samples, today).Total(), 0),
				Samples:  samplesStartingIn(samples, today),
			}
		}
	case models.ToolHeartRateToday, models.ToolHeartRateLastWeek:
		window := today
		if name == models.ToolHeartRateLastWeek {
			window = week
		}
		var samples []models.HealthSample
		if samples, err = fetch(models.SampleKindHeartRate, window); err == nil {
			data = SummarizeHeartRate(samples, window)
		}
	case models.ToolSleepToday, models.ToolSleepLastWeek:
		window := today
		if name == models.ToolSleepLastWeek {
			window = week
		}
		var samples []models.HealthSample
		if samples, err = fetch(models.SampleKindSleep, window); err == nil {
			byDay := s.aggregator.MergeIntervals(samples, window)
			data = &models.SleepToolData{
				TotalHours: roundTo(byDay.Total(), 2),
				ByDay:      byDay,
				Samples:    sleepOverlapping(samples, window),
			}
		}
	case models.ToolDistanceToday:
		var samples []models.HealthSample
		if samples, err = fetch(models.SampleKindDistance, today); err == nil {
			data = &models.DistanceToolData{Distance: s.aggregator.SumByDay(samples, today).Total(), Unit: "meters"}
		}
	default:
		err = fmt.Errorf("unknown tool %q", name)
	}

	if err != nil {
		logger.Ctx(ctx).Warn("health tool failed", logger.String("tool", string(name)), logger.Err(err))
		return models.ToolResult{Success: false, Error: err.Error()}
	}
	return models.ToolResult{Success: true, Data: data}
}

func samplesStartingIn(samples []models.HealthSample, window *models.Window) []models.HealthSample {
	out := make([]models.HealthSample, 0, len(samples))
	for _, s := range samples {
		if window.Contains(s.StartTime) {
			out = append(out, s)
		}
	}
	return out
}

// sleepOverlapping returns contributing samples that touch window
func sleepOverlapping(samples []models.HealthSample, window *models.Window) []models.HealthSample {
	out := make([]models.HealthSample, 0, len(samples))
	for _, s := range samples {
		if !isWellFormedSpan(s) || !contributes(s) {
			continue
		}
		if s.EndTime.Before(window.Start) || !s.StartTime.Before(window.End) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// GetHistory returns the stored conversation, oldest first
func (s *chatService) GetHistory(ctx context.Context, userID string) ([]models.ChatMessage, error) {
	raw, ok, err := s.kv.Get(ctx, chatHistoryKeyPrefix+userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	if !ok {
		return []models.ChatMessage{}, nil
	}

	var history []models.ChatMessage
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		logger.Ctx(ctx).Warn("discarding unreadable chat history", logger.Err(err))
		return []models.ChatMessage{}, nil
	}
	return history, nil
}

// ClearHistory forgets the user's conversation
func (s *chatService) ClearHistory(ctx context.Context, userID string) error {
	if err := s.kv.Remove(ctx, chatHistoryKeyPrefix+userID); err != nil {
		return fmt.Errorf("failed to clear chat history: %w", err)
	}
	return nil
}

func (s *chatService) saveHistory(ctx context.Context, userID string, history []models.ChatMessage) error {
	if len(history) > ChatHistoryLimit {
		history = history[len(history)-ChatHistoryLimit:]
	}
	data, err := json.Marshal(history)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, chatHistoryKeyPrefix+userID, string(data))
}
