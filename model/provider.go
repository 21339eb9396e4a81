package model

import (
	"context"
	"errors"
	"strings"
)

// Provider abstracts LLM backends (OpenAI, Groq, Anthropic, Ollama, Gemini)
// behind provider-agnostic messages.
//
// This interface lives in the model package (not provider) so the
// orchestrator and tests can depend on it without importing every SDK.
type Provider interface {
	// Chat sends messages and streams the reply back via callback.
	Chat(ctx context.Context, messages []Message, callback StreamCallback) error

	// GetModel returns the model name used for API calls.
	GetModel() string

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}

// StreamCallback is called for each chunk of a streamed response.
type StreamCallback func(chunk string) error

// ErrEmptyResponse is returned by Complete when the model produced no text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Complete runs a chat request and returns the whole reply exactly as
// streamed. A reply that is only whitespace is ErrEmptyResponse. The model
// is treated as stateless: callers rebuild the message list every time.
func Complete(ctx context.Context, p Provider, messages []Message) (string, error) {
	var sb strings.Builder
	err := p.Chat(ctx, messages, func(chunk string) error {
		sb.WriteString(chunk)
		return nil
	})
	if err != nil {
		return "", err
	}

	reply := sb.String()
	if strings.TrimSpace(reply) == "" {
		return "", ErrEmptyResponse
	}
	return reply, nil
}
