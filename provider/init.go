package provider

import (
	"errors"
	"fmt"
	"strings"

	"slackmcp/config"
	"slackmcp/model"
)

// ollamaPrefix forces the Ollama backend, e.g. "ollama/llama3.1:latest".
const ollamaPrefix = "ollama/"

// ErrNoBackend is returned by Select when no credential or host is configured.
var ErrNoBackend = errors.New("no LLM backend configured")

// Selection is the backend and model chosen from the configuration.
type Selection struct {
	Config
	// Fallback is true when the configured model could not be served and a
	// backend default was used instead.
	Fallback bool
}

// modelFamilies maps a substring of the model name to the backend serving it.
// Checked in order.
var modelFamilies = []struct {
	keyword string
	backend ProviderType
}{
	{"gpt", ProviderTypeOpenAI},
	{"claude", ProviderTypeAnthropic},
	{"gemini", ProviderTypeGemini},
	{"llama", ProviderTypeGroq},
}

// Select picks the backend for cfg.
//
// An "ollama/" prefix always selects Ollama. Otherwise the model name picks
// its family's backend when that backend has a key. Failing that, the first
// backend with a key wins (OpenAI, Groq, Anthropic, Gemini) with its default
// model, and finally a configured OLLAMA_HOST.
func Select(cfg *config.Config) (Selection, error) {
	name := strings.TrimSpace(cfg.LLMModel)

	if strings.HasPrefix(name, ollamaPrefix) {
		return Selection{Config: Config{
			Type:    ProviderTypeOllama,
			BaseURL: cfg.OllamaHost,
			Model:   strings.TrimPrefix(name, ollamaPrefix),
		}}, nil
	}

	keys := map[ProviderType]string{
		ProviderTypeOpenAI:    cfg.OpenAIAPIKey,
		ProviderTypeGroq:      cfg.GroqAPIKey,
		ProviderTypeAnthropic: cfg.AnthropicAPIKey,
		ProviderTypeGemini:    cfg.GeminiAPIKey,
	}

	lower := strings.ToLower(name)
	for _, family := range modelFamilies {
		if strings.Contains(lower, family.keyword) && keys[family.backend] != "" {
			return Selection{Config: Config{
				Type:   family.backend,
				Model:  name,
				APIKey: keys[family.backend],
			}}, nil
		}
	}

	for _, t := range []ProviderType{ProviderTypeOpenAI, ProviderTypeGroq, ProviderTypeAnthropic, ProviderTypeGemini} {
		if keys[t] != "" {
			return Selection{
				Config: Config{
					Type:   t,
					Model:  DefaultModel(t),
					APIKey: keys[t],
				},
				Fallback: name != "",
			}, nil
		}
	}

	if cfg.OllamaHost != "" {
		return Selection{
			Config: Config{
				Type:    ProviderTypeOllama,
				BaseURL: cfg.OllamaHost,
				Model:   DefaultModel(ProviderTypeOllama),
			},
			Fallback: name != "",
		}, nil
	}

	return Selection{}, fmt.Errorf("%w: set one of %s, %s, %s, %s or %s",
		ErrNoBackend,
		config.EnvOpenAIAPIKey, config.EnvGroqAPIKey, config.EnvAnthropicAPIKey,
		config.EnvGeminiAPIKey, config.EnvOllamaHost)
}

// InitializeProvider selects a backend for cfg and constructs it.
func InitializeProvider(cfg *config.Config) (model.Provider, Selection, error) {
	sel, err := Select(cfg)
	if err != nil {
		return nil, Selection{}, err
	}

	p, err := NewProvider(sel.Config)
	if err != nil {
		return nil, sel, fmt.Errorf("failed to initialize %s provider: %w", sel.Type, err)
	}
	return p, sel, nil
}
