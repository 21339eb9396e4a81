package provider

import (
	"context"
	"fmt"
	"time"

	"slackmcp/model"
	"slackmcp/ollama"
)

// DefaultPingTimeout bounds CheckReachable when no timeout is given.
const DefaultPingTimeout = 10 * time.Second

// CheckReachable pings p within timeout.
func CheckReachable(ctx context.Context, p model.Provider, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("connection to %s failed: %w", p.GetModel(), err)
	}
	return nil
}

// ListOllamaModels fetches the models installed on an Ollama server.
func ListOllamaModels(ctx context.Context, baseURL string) ([]string, error) {
	client, err := ollama.NewClient(baseURL, "")
	if err != nil {
		return nil, err
	}
	return client.ListModels(ctx)
}
