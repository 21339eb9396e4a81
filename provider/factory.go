package provider

import (
	"fmt"

	"slackmcp/model"
)

// NewProvider creates a provider based on configuration.
//
// This is the centralized factory function for creating any provider type.
// It dispatches to the constructor matching Config.Type; each constructor
// fills in its own default base URL and model when they are empty.
//
// Returns an error if:
//   - The provider type is unknown
//   - A cloud provider is missing its API key
//   - The provider-specific constructor fails (e.g., invalid URL)
func NewProvider(cfg Config) (model.Provider, error) {
	switch cfg.Type {
	case ProviderTypeOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model)
	case ProviderTypeOpenAI:
		return NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeGroq:
		return NewGroqProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeAnthropic:
		return NewAnthropicProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeGemini:
		return NewGeminiProvider(cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// DefaultModel returns the model used when a backend is picked without a
// usable model name.
func DefaultModel(t ProviderType) string {
	switch t {
	case ProviderTypeOllama:
		return defaultOllamaModel
	case ProviderTypeOpenAI:
		return defaultOpenAIModel
	case ProviderTypeGroq:
		return defaultGroqModel
	case ProviderTypeAnthropic:
		return defaultAnthropicModel
	case ProviderTypeGemini:
		return defaultGeminiModel
	default:
		return ""
	}
}
