package models

import "time"

// UserPreferences mirrors the onboarding preferences stored for each user
type UserPreferences struct {
	FirstName              string     `json:"firstName" binding:"max=100"`
	HasCompletedOnboarding bool       `json:"hasCompletedOnboarding"`
	AIPrivacyConsent       bool       `json:"aiPrivacyConsent"`
	OnboardingCompletedAt  *time.Time `json:"onboardingCompletedAt,omitempty"`
}

// LLMProvider selects which text generation backend answers prompts
type LLMProvider string

const (
	LLMProviderGemini LLMProvider = "gemini"
	LLMProviderNone   LLMProvider = "none"
)

// IsValid reports whether p is a supported provider
func (p LLMProvider) IsValid() bool {
	return p == LLMProviderGemini || p == LLMProviderNone
}

// SetProviderRequest is the body of PUT /api/v1/llm/provider
type SetProviderRequest struct {
	Provider LLMProvider `json:"provider" binding:"required,oneof=gemini none"`
}
