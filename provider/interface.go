// Package provider implements model.Provider for the LLM backends slackmcp
// can talk to.
//
// The bot treats every backend the same way: it hands over a list of
// provider-agnostic messages and reads back streamed text. Tool calls are
// never delegated to a backend's native function-calling API; the model is
// told about tools in the system prompt and answers with a [TOOL] block that
// the toolcall package parses. That keeps each backend down to one
// conversion and one streaming loop.
//
// # Supported backends
//
//   - OpenAI (github.com/openai/openai-go/v3)
//   - Groq, through its OpenAI-compatible endpoint
//   - Anthropic (github.com/anthropics/anthropic-sdk-go)
//   - Ollama (github.com/ollama/ollama/api, via the ollama package)
//   - Gemini (google.golang.org/genai)
//
// # Usage
//
//	p, err := provider.NewProvider(provider.Config{
//	    Type:   provider.ProviderTypeOpenAI,
//	    Model:  "gpt-4o",
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	})
//	if err != nil {
//	    // handle error
//	}
//	reply, err := model.Complete(ctx, p, messages)
//
// Backend selection from the environment lives in Select.
package provider

// Note: The Provider interface and StreamCallback are defined in the model package
// (model/provider.go) to avoid import cycles. This package implements model.Provider.

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeOllama    ProviderType = "ollama"
	ProviderTypeOpenAI    ProviderType = "openai"
	ProviderTypeGroq      ProviderType = "groq"
	ProviderTypeAnthropic ProviderType = "anthropic"
	ProviderTypeGemini    ProviderType = "gemini"
)

// Config holds provider-specific configuration.
type Config struct {
	Type    ProviderType
	BaseURL string
	Model   string
	APIKey  string // Unused for Ollama
}
