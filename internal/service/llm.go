package service

import (
	"context"
	"errors"
	"strings"

	"github.com/lorahealth/lora/backend/internal/logger"
	"github.com/lorahealth/lora/backend/internal/models"
	"github.com/lorahealth/lora/backend/pkg/gemini"
)

// ErrLLMUnavailable is returned when the user's provider cannot serve a request
var ErrLLMUnavailable = errors.New("no llm provider available")

// ContentGenerator is the backend behind the gemini provider
type ContentGenerator interface {
	GenerateContent(ctx context.Context, system string, contents []gemini.Content) (string, error)
}

// ProviderResolver returns the provider selected by a user
type ProviderResolver interface {
	GetProvider(ctx context.Context, userID string) (models.LLMProvider, error)
}

// LLMConfig wires the LLM service. Gemini may be nil when no API key is configured.
type LLMConfig struct {
	Gemini          ContentGenerator
	Resolver        ProviderResolver
	DefaultProvider models.LLMProvider
}

type llmService struct {
	cfg LLMConfig
}

// NewLLMService creates a new LLM service
func NewLLMService(cfg LLMConfig) LLMService {
	if !cfg.DefaultProvider.IsValid() {
		cfg.DefaultProvider = models.LLMProviderNone
	}
	return &llmService{cfg: cfg}
}

// provider resolves the provider for the user carried by ctx
func (s *llmService) provider(ctx context.Context) models.LLMProvider {
	userID := logger.UserIDFromContext(ctx)
	if s.cfg.Resolver == nil || userID == "" {
		return s.cfg.DefaultProvider
	}

	p, err := s.cfg.Resolver.GetProvider(ctx, userID)
	if err != nil {
		logger.Ctx(ctx).Warn("failed to resolve llm provider", logger.Err(err))
		return s.cfg.DefaultProvider
	}
	return p
}

func (s *llmService) backend(ctx context.Context) (ContentGenerator, error) {
	if s.provider(ctx) != models.LLMProviderGemini || s.cfg.Gemini == nil {
		return nil, ErrLLMUnavailable
	}
	return s.cfg.Gemini, nil
}

// Generate answers a single prompt
func (s *llmService) Generate(ctx context.Context, prompt string) (string, error) {
	backend, err := s.backend(ctx)
	if err != nil {
		return "", err
	}
	return backend.GenerateContent(ctx, "", []gemini.Content{
		{Role: "user", Parts: []gemini.Part{{Text: prompt}}},
	})
}

// Chat sends a conversation. System messages become the system instruction.
func (s *llmService) Chat(ctx context.Context, messages []models.ChatMessage) (string, error) {
	backend, err := s.backend(ctx)
	if err != nil {
		return "", err
	}

	var system []string
	contents := make([]gemini.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case models.RoleSystem:
			system = append(system, m.Content)
		case models.RoleAssistant:
			contents = append(contents, gemini.Content{Role: "model", Parts: []gemini.Part{{Text: m.Content}}})
		default:
			contents = append(contents, gemini.Content{Role: "user", Parts: []gemini.Part{{Text: m.Content}}})
		}
	}

	return backend.GenerateContent(ctx, strings.Join(system, "\n\n"), contents)
}
