package provider

import (
	"context"
	"fmt"

	"slackmcp/model"
	"slackmcp/ollama"
)

const defaultOllamaModel = ollama.DefaultModel

// OllamaProvider wraps the ollama.Client to implement the Provider interface.
//
// This provider converts model.Message to api.Message and forwards streamed
// chunks unchanged.
type OllamaProvider struct {
	client *ollama.Client
}

// NewOllamaProvider creates a new Ollama provider instance.
//
// Parameters:
//   - baseURL: The Ollama server URL (e.g., "http://localhost:11434").
//     If empty, defaults to "http://localhost:11434".
//   - model: The model name to use (e.g., "llama3.1:latest").
//     If empty, defaults to "llama3.1:latest".
//
// Returns an error if the baseURL is invalid.
func NewOllamaProvider(baseURL, model string) (*OllamaProvider, error) {
	client, err := ollama.NewClient(baseURL, model)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}

	return &OllamaProvider{
		client: client,
	}, nil
}

// Chat implements Provider.Chat by converting messages and streaming the reply.
func (p *OllamaProvider) Chat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	if err := p.client.Chat(ctx, ConvertToOllamaMessages(messages), ollama.StreamCallback(callback)); err != nil {
		return fmt.Errorf("Ollama chat failed: %w", err)
	}
	return nil
}

// GetModel implements Provider.GetModel (direct passthrough).
func (p *OllamaProvider) GetModel() string {
	return p.client.GetModel()
}

// Ping implements Provider.Ping (direct passthrough).
//
// Checks if the Ollama server is reachable by listing installed models.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}
