package provider

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"slackmcp/model"
)

const defaultGeminiModel = "gemini-2.0-flash"

// geminiGenerator is the slice of the genai client the provider needs.
// Tests substitute a fake.
type geminiGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// sdkGemini adapts *genai.Client to geminiGenerator.
type sdkGemini struct {
	client *genai.Client
}

func (s sdkGemini) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return s.client.Models.GenerateContent(ctx, model, contents, config)
}

// GeminiProvider implements the Provider interface using Google's genai SDK.
//
// Gemini replies arrive in one piece; Chat hands the whole text to the
// callback as a single chunk.
type GeminiProvider struct {
	gen   geminiGenerator
	model string
}

// NewGeminiProvider creates a new Gemini provider instance.
//
// Parameters:
//   - apiKey: Gemini API key (required)
//   - model: Model to use (default: "gemini-2.0-flash")
func NewGeminiProvider(apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return newGeminiProvider(sdkGemini{client: client}, model), nil
}

func newGeminiProvider(gen geminiGenerator, model string) *GeminiProvider {
	return &GeminiProvider{gen: gen, model: model}
}

// Chat implements Provider.Chat.
func (p *GeminiProvider) Chat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	contents, system := convertToGeminiContents(messages)
	if len(contents) == 0 {
		return fmt.Errorf("Gemini request needs at least one user message")
	}

	var config *genai.GenerateContentConfig
	if system != nil {
		config = &genai.GenerateContentConfig{SystemInstruction: system}
	}

	resp, err := p.gen.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return fmt.Errorf("Gemini generate failed: %w", err)
	}

	text := resp.Text()
	if text == "" || callback == nil {
		return nil
	}
	return callback(text)
}

// GetModel implements Provider.GetModel.
func (p *GeminiProvider) GetModel() string {
	return p.model
}

// Ping implements Provider.Ping with a one word generation.
func (p *GeminiProvider) Ping(ctx context.Context) error {
	contents := []*genai.Content{{
		Role:  geminiRoleUser,
		Parts: []*genai.Part{genai.NewPartFromText("ping")},
	}}
	if _, err := p.gen.GenerateContent(ctx, p.model, contents, nil); err != nil {
		return fmt.Errorf("Gemini ping failed: %w", err)
	}
	return nil
}
