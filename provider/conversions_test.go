package provider

import (
	"slackmcp/model"
	"testing"
	"time"

	"github.com/ollama/ollama/api"
)

func TestConvertToOllamaMessages(t *testing.T) {
	tests := []struct {
		name     string
		input    []model.Message
		expected []api.Message
	}{
		{
			name:     "empty slice",
			input:    []model.Message{},
			expected: []api.Message{},
		},
		{
			name: "single message",
			input: []model.Message{
				{Role: "user", Content: "Hello"},
			},
			expected: []api.Message{
				{Role: "user", Content: "Hello"},
			},
		},
		{
			name: "multiple messages",
			input: []model.Message{
				{Role: "user", Content: "Hello", Timestamp: time.Now()},
				{Role: "assistant", Content: "Hi there", Timestamp: time.Now()},
				{Role: "user", Content: "How are you?", Timestamp: time.Now()},
			},
			expected: []api.Message{
				{Role: "user", Content: "Hello"},
				{Role: "assistant", Content: "Hi there"},
				{Role: "user", Content: "How are you?"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertToOllamaMessages(tt.input)

			if len(result) != len(tt.expected) {
				t.Fatalf("length mismatch: got %d, want %d", len(result), len(tt.expected))
			}

			for i, msg := range result {
				if msg.Role != tt.expected[i].Role {
					t.Errorf("message %d role: got %q, want %q", i, msg.Role, tt.expected[i].Role)
				}
				if msg.Content != tt.expected[i].Content {
					t.Errorf("message %d content: got %q, want %q", i, msg.Content, tt.expected[i].Content)
				}
			}
		})
	}
}

func TestConvertFromOllamaMessages(t *testing.T) {
	tests := []struct {
		name     string
		input    []api.Message
		expected []model.Message
	}{
		{
			name:     "empty slice",
			input:    []api.Message{},
			expected: []model.Message{},
		},
		{
			name: "single message",
			input: []api.Message{
				{Role: "assistant", Content: "Hello back"},
			},
			expected: []model.Message{
				{Role: "assistant", Content: "Hello back"},
			},
		},
		{
			name: "multiple messages",
			input: []api.Message{
				{Role: "user", Content: "Question 1"},
				{Role: "assistant", Content: "Answer 1"},
				{Role: "user", Content: "Question 2"},
			},
			expected: []model.Message{
				{Role: "user", Content: "Question 1"},
				{Role: "assistant", Content: "Answer 1"},
				{Role: "user", Content: "Question 2"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertFromOllamaMessages(tt.input)

			if len(result) != len(tt.expected) {
				t.Fatalf("length mismatch: got %d, want %d", len(result), len(tt.expected))
			}

			for i, msg := range result {
				if msg.Role != tt.expected[i].Role {
					t.Errorf("message %d role: got %q, want %q", i, msg.Role, tt.expected[i].Role)
				}
				if msg.Content != tt.expected[i].Content {
					t.Errorf("message %d content: got %q, want %q", i, msg.Content, tt.expected[i].Content)
				}
			}
		})
	}
}

func TestConvertToOpenAIMessages(t *testing.T) {
	messages := []model.Message{
		{Role: model.RoleSystem, Content: "be brief"},
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "hello"},
		{Role: "tool", Content: "unknown role"},
	}

	result := ConvertToOpenAIMessages(messages)
	if len(result) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(result))
	}
	if result[0].OfSystem == nil {
		t.Errorf("expected system message at 0, got %+v", result[0])
	}
	if result[1].OfUser == nil {
		t.Errorf("expected user message at 1, got %+v", result[1])
	}
	if result[2].OfAssistant == nil {
		t.Errorf("expected assistant message at 2, got %+v", result[2])
	}
	if result[3].OfUser == nil {
		t.Errorf("expected unknown role sent as user, got %+v", result[3])
	}
}

func TestConvertToAnthropicMessages(t *testing.T) {
	tests := []struct {
		name       string
		input      []model.Message
		wantSystem int
		wantRoles  []string
	}{
		{
			name: "system entries become blocks",
			input: []model.Message{
				{Role: model.RoleSystem, Content: "prompt"},
				{Role: model.RoleUser, Content: "hi"},
				{Role: model.RoleSystem, Content: "Tool result for x:\n1"},
				{Role: model.RoleAssistant, Content: "hello"},
			},
			wantSystem: 2,
			wantRoles:  []string{"user", "assistant"},
		},
		{
			name: "leading assistant dropped",
			input: []model.Message{
				{Role: model.RoleAssistant, Content: "stale"},
				{Role: model.RoleUser, Content: "hi"},
			},
			wantRoles: []string{"user"},
		},
		{
			name:       "only system",
			input:      []model.Message{{Role: model.RoleSystem, Content: "prompt"}},
			wantSystem: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, system := convertToAnthropicMessages(tt.input)
			if len(system) != tt.wantSystem {
				t.Errorf("expected %d system blocks, got %d", tt.wantSystem, len(system))
			}
			if len(msgs) != len(tt.wantRoles) {
				t.Fatalf("expected %d messages, got %d", len(tt.wantRoles), len(msgs))
			}
			for i, role := range tt.wantRoles {
				if string(msgs[i].Role) != role {
					t.Errorf("message %d: expected role %q, got %q", i, role, msgs[i].Role)
				}
			}
		})
	}
}

func TestConvertToGeminiContents(t *testing.T) {
	contents, system := convertToGeminiContents([]model.Message{
		{Role: model.RoleSystem, Content: "prompt"},
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "hello"},
	})

	if system == nil || len(system.Parts) != 1 || system.Parts[0].Text != "prompt" {
		t.Errorf("expected system instruction 'prompt', got %+v", system)
	}
	if len(contents) != 2 {
		t.Fatalf("expected 2 contents, got %d", len(contents))
	}
	if contents[0].Role != geminiRoleUser {
		t.Errorf("expected role %q, got %q", geminiRoleUser, contents[0].Role)
	}
	if contents[1].Role != geminiRoleModel {
		t.Errorf("expected role %q, got %q", geminiRoleModel, contents[1].Role)
	}
	if contents[1].Parts[0].Text != "hello" {
		t.Errorf("expected text 'hello', got %q", contents[1].Parts[0].Text)
	}

	_, none := convertToGeminiContents([]model.Message{{Role: model.RoleUser, Content: "hi"}})
	if none != nil {
		t.Errorf("expected nil system instruction, got %+v", none)
	}
}
