package service

import (
	"context"
	"errors"
	"testing"

	"github.com/lorahealth/lora/backend/internal/logger"
	"github.com/lorahealth/lora/backend/internal/models"
	"github.com/lorahealth/lora/backend/pkg/gemini"
)

type fakeBackend struct {
	reply    string
	err      error
	system   string
	contents []gemini.Content
}

func (f *fakeBackend) GenerateContent(ctx context.Context, system string, contents []gemini.Content) (string, error) {
	f.system = system
	f.contents = contents
	return f.reply, f.err
}

type staticResolver map[string]models.LLMProvider

func (r staticResolver) GetProvider(ctx context.Context, userID string) (models.LLMProvider, error) {
	if p, ok := r[userID]; ok {
		return p, nil
	}
	return "", errors.New("not found")
}

func TestLLMService_Chat(t *testing.T) {
	backend := &fakeBackend{reply: "You walked a lot!"}
	svc := NewLLMService(LLMConfig{Gemini: backend, DefaultProvider: models.LLMProviderGemini})

	text, err := svc.Chat(context.Background(), []models.ChatMessage{
		{Role: models.RoleSystem, Content: "You are Lora"},
		{Role: models.RoleUser, Content: "steps?"},
		{Role: models.RoleAssistant, Content: "8000"},
		{Role: models.RoleUser, Content: "and yesterday?"},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if text != "You walked a lot!" {
		t.Errorf("text = %q", text)
	}
	if backend.system != "You are Lora" {
		t.Errorf("system = %q", backend.system)
	}
	wantRoles := []string{"user", "model", "user"}
	if len(backend.contents) != len(wantRoles) {
		t.Fatalf("Expected %d contents, got %d", len(wantRoles), len(backend.contents))
	}
	for i, role := range wantRoles {
		if backend.contents[i].Role != role {
			t.Errorf("content %d role = %q, want %q", i, backend.contents[i].Role, role)
		}
	}
}

func TestLLMService_ProviderResolution(t *testing.T) {
	backend := &fakeBackend{reply: "ok"}
	svc := NewLLMService(LLMConfig{
		Gemini:          backend,
		Resolver:        staticResolver{"cloud": models.LLMProviderGemini, "private": models.LLMProviderNone},
		DefaultProvider: models.LLMProviderNone,
	})

	tests := []struct {
		name    string
		userID  string
		wantErr bool
	}{
		{name: "user chose gemini", userID: "cloud"},
		{name: "user chose none", userID: "private", wantErr: true},
		{name: "resolver failure uses default", userID: "unknown", wantErr: true},
		{name: "no user uses default", userID: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.userID != "" {
				ctx = logger.WithUserID(ctx, tt.userID)
			}
			_, err := svc.Generate(ctx, "hi")
			if tt.wantErr && !errors.Is(err, ErrLLMUnavailable) {
				t.Errorf("Expected ErrLLMUnavailable, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error %v", err)
			}
		})
	}
}

func TestLLMService_NoBackend(t *testing.T) {
	svc := NewLLMService(LLMConfig{DefaultProvider: models.LLMProviderGemini})
	if _, err := svc.Generate(context.Background(), "hi"); !errors.Is(err, ErrLLMUnavailable) {
		t.Errorf("Expected ErrLLMUnavailable without a configured backend, got %v", err)
	}
}
