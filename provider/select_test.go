package provider

import (
	"errors"
	"testing"

	"slackmcp/config"
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name         string
		cfg          config.Config
		wantType     ProviderType
		wantModel    string
		wantFallback bool
		wantErr      error
	}{
		{
			name:      "gpt model with openai key",
			cfg:       config.Config{LLMModel: "gpt-4o", OpenAIAPIKey: "sk"},
			wantType:  ProviderTypeOpenAI,
			wantModel: "gpt-4o",
		},
		{
			name:      "llama model with groq key",
			cfg:       config.Config{LLMModel: "llama-3.1-8b-instant", GroqAPIKey: "gsk", OpenAIAPIKey: "sk"},
			wantType:  ProviderTypeGroq,
			wantModel: "llama-3.1-8b-instant",
		},
		{
			name:      "claude model with anthropic key",
			cfg:       config.Config{LLMModel: "claude-3-5-haiku-latest", AnthropicAPIKey: "ak"},
			wantType:  ProviderTypeAnthropic,
			wantModel: "claude-3-5-haiku-latest",
		},
		{
			name:      "gemini model with gemini key",
			cfg:       config.Config{LLMModel: "gemini-1.5-pro", GeminiAPIKey: "gk"},
			wantType:  ProviderTypeGemini,
			wantModel: "gemini-1.5-pro",
		},
		{
			name:      "ollama prefix wins over keys",
			cfg:       config.Config{LLMModel: "ollama/qwen2.5", OpenAIAPIKey: "sk", OllamaHost: "http://gpu:11434"},
			wantType:  ProviderTypeOllama,
			wantModel: "qwen2.5",
		},
		{
			name:         "gpt model without openai key falls back to groq",
			cfg:          config.Config{LLMModel: "gpt-4o", GroqAPIKey: "gsk"},
			wantType:     ProviderTypeGroq,
			wantModel:    defaultGroqModel,
			wantFallback: true,
		},
		{
			name:         "unknown model falls back to first key",
			cfg:          config.Config{LLMModel: "mystery", AnthropicAPIKey: "ak", GeminiAPIKey: "gk"},
			wantType:     ProviderTypeAnthropic,
			wantModel:    defaultAnthropicModel,
			wantFallback: true,
		},
		{
			name:         "only ollama host",
			cfg:          config.Config{LLMModel: "gpt-4o", OllamaHost: "http://localhost:11434"},
			wantType:     ProviderTypeOllama,
			wantModel:    defaultOllamaModel,
			wantFallback: true,
		},
		{
			name:    "nothing configured",
			cfg:     config.Config{LLMModel: "gpt-4o"},
			wantErr: ErrNoBackend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := Select(&tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sel.Type != tt.wantType {
				t.Errorf("expected type %s, got %s", tt.wantType, sel.Type)
			}
			if sel.Model != tt.wantModel {
				t.Errorf("expected model %q, got %q", tt.wantModel, sel.Model)
			}
			if sel.Fallback != tt.wantFallback {
				t.Errorf("expected fallback %v, got %v", tt.wantFallback, sel.Fallback)
			}
		})
	}
}

func TestInitializeProvider(t *testing.T) {
	p, sel, err := InitializeProvider(&config.Config{LLMModel: "gpt-4o-mini", OpenAIAPIKey: "sk"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.Type != ProviderTypeOpenAI {
		t.Errorf("expected openai, got %s", sel.Type)
	}
	if p.GetModel() != "gpt-4o-mini" {
		t.Errorf("expected model gpt-4o-mini, got %s", p.GetModel())
	}
}
