package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lorahealth/lora/backend/internal/logger"
	"github.com/lorahealth/lora/backend/internal/models"
	"github.com/lorahealth/lora/backend/internal/repository"
)

const (
	preferencesKeyPrefix = "@user_preferences:"
	providerKeyPrefix    = "@llm_provider:"
)

var (
	// ErrInvalidProvider is returned for an unknown LLM provider name
	ErrInvalidProvider = errors.New("invalid llm provider")

	// ErrConsentRequired is returned when selecting a cloud provider without AI privacy consent
	ErrConsentRequired = errors.New("ai privacy consent is required for a cloud provider")
)

type preferenceService struct {
	kv              repository.KVStore
	defaultProvider models.LLMProvider
	now             func() time.Time
}

// NewPreferenceService creates a new preference service backed by kv.
// defaultProvider applies to users who never chose one.
func NewPreferenceService(kv repository.KVStore, defaultProvider models.LLMProvider) PreferenceService {
	if !defaultProvider.IsValid() {
		defaultProvider = models.LLMProviderNone
	}
	return &preferenceService{
		kv:              kv,
		defaultProvider: defaultProvider,
		now:             time.Now,
	}
}

// GetPreferences returns the stored preferences, or zero preferences for a new user.
// Unreadable stored data is treated as absent.
func (s *preferenceService) GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error) {
	prefs, found, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return &models.UserPreferences{}, nil
	}
	return prefs, nil
}

func (s *preferenceService) load(ctx context.Context, userID string) (*models.UserPreferences, bool, error) {
	raw, ok, err := s.kv.Get(ctx, preferencesKeyPrefix+userID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load preferences: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	var prefs models.UserPreferences
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		logger.Ctx(ctx).Warn("discarding unreadable preferences", logger.Err(err))
		return nil, false, nil
	}
	return &prefs, true, nil
}

// SavePreferences stores prefs. Completing onboarding stamps OnboardingCompletedAt once,
// and withdrawing AI consent switches the user to no provider.
func (s *preferenceService) SavePreferences(ctx context.Context, userID string, prefs *models.UserPreferences) (*models.UserPreferences, error) {
	saved := *prefs
	if saved.HasCompletedOnboarding && saved.OnboardingCompletedAt == nil {
		if existing, found, _ := s.load(ctx, userID); found && existing.OnboardingCompletedAt != nil {
			saved.OnboardingCompletedAt = existing.OnboardingCompletedAt
		} else {
			now := s.now().UTC()
			saved.OnboardingCompletedAt = &now
		}
	}

	data, err := json.Marshal(saved)
	if err != nil {
		return nil, fmt.Errorf("failed to encode preferences: %w", err)
	}
	if err := s.kv.Set(ctx, preferencesKeyPrefix+userID, string(data)); err != nil {
		return nil, fmt.Errorf("failed to save preferences: %w", err)
	}

	if !saved.AIPrivacyConsent {
		if err := s.kv.Set(ctx, providerKeyPrefix+userID, string(models.LLMProviderNone)); err != nil {
			return nil, fmt.Errorf("failed to reset llm provider: %w", err)
		}
	}

	return &saved, nil
}

// GetProvider returns the user's selected provider. Users who never chose one get
// the default, or none when the default is a cloud provider and no consent is recorded.
func (s *preferenceService) GetProvider(ctx context.Context, userID string) (models.LLMProvider, error) {
	raw, ok, err := s.kv.Get(ctx, providerKeyPrefix+userID)
	if err != nil {
		return "", fmt.Errorf("failed to load llm provider: %w", err)
	}
	provider := models.LLMProvider(raw)
	if ok && provider.IsValid() {
		return provider, nil
	}

	if s.defaultProvider == models.LLMProviderNone {
		return s.defaultProvider, nil
	}
	consented, err := s.hasConsent(ctx, userID)
	if err != nil {
		return "", err
	}
	if !consented {
		return models.LLMProviderNone, nil
	}
	return s.defaultProvider, nil
}

// hasConsent reports whether the user saved preferences granting AI privacy consent.
// A user with no stored preferences has not consented.
func (s *preferenceService) hasConsent(ctx context.Context, userID string) (bool, error) {
	prefs, found, err := s.load(ctx, userID)
	if err != nil {
		return false, err
	}
	return found && prefs.AIPrivacyConsent, nil
}

// SetProvider persists the user's provider choice
func (s *preferenceService) SetProvider(ctx context.Context, userID string, provider models.LLMProvider) error {
	if !provider.IsValid() {
		return ErrInvalidProvider
	}

	if provider != models.LLMProviderNone {
		consented, err := s.hasConsent(ctx, userID)
		if err != nil {
			return err
		}
		if !consented {
			return ErrConsentRequired
		}
	}

	if err := s.kv.Set(ctx, providerKeyPrefix+userID, string(provider)); err != nil {
		return fmt.Errorf("failed to save llm provider: %w", err)
	}
	logger.Ctx(ctx).Info("llm provider switched", logger.String("provider", string(provider)))
	return nil
}
