package testutil

import (
	"context"
	"errors"
	"sync"

	"slackmcp/model"
)

// ErrScriptExhausted is returned once a MockProvider has used every scripted reply.
var ErrScriptExhausted = errors.New("mock provider: no scripted reply left")

// MockProvider implements model.Provider for testing.
//
// By default it answers from a script of replies, one per Chat call, and
// records the messages of every call so tests can assert on the prompts.
type MockProvider struct {
	// Configurable responses
	ChatFunc func(ctx context.Context, messages []model.Message, callback model.StreamCallback) error
	PingFunc func(ctx context.Context) error

	mu      sync.Mutex
	script  []Reply
	calls   [][]model.Message
	modelID string
}

// Reply is one scripted Chat outcome. Err wins over Text.
type Reply struct {
	Text string
	Err  error
}

// NewMockProvider creates a mock provider that answers with replies in order.
func NewMockProvider(modelName string, replies ...Reply) *MockProvider {
	mock := &MockProvider{
		modelID: modelName,
		script:  replies,
	}
	mock.ChatFunc = mock.defaultChat
	mock.PingFunc = mock.defaultPing
	return mock
}

// Texts is a shorthand for a script of successful replies.
func Texts(texts ...string) []Reply {
	replies := make([]Reply, len(texts))
	for i, t := range texts {
		replies[i] = Reply{Text: t}
	}
	return replies
}

func (m *MockProvider) defaultChat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	m.mu.Lock()
	if len(m.script) == 0 {
		m.mu.Unlock()
		return ErrScriptExhausted
	}
	reply := m.script[0]
	m.script = m.script[1:]
	m.mu.Unlock()

	if reply.Err != nil {
		return reply.Err
	}
	if callback != nil && reply.Text != "" {
		return callback(reply.Text)
	}
	return nil
}

func (m *MockProvider) defaultPing(ctx context.Context) error {
	return nil
}

func (m *MockProvider) Chat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	m.mu.Lock()
	recorded := make([]model.Message, len(messages))
	copy(recorded, messages)
	m.calls = append(m.calls, recorded)
	m.mu.Unlock()

	return m.ChatFunc(ctx, messages, callback)
}

// Calls returns the messages passed to each Chat call so far.
func (m *MockProvider) Calls() [][]model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]model.Message, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockProvider) GetModel() string {
	return m.modelID
}

func (m *MockProvider) Ping(ctx context.Context) error {
	return m.PingFunc(ctx)
}
