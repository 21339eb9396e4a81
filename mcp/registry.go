package mcp

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/sahilm/fuzzy"

	"slackmcp/logging"
)

type registration struct {
	provider   ToolProvider
	descriptor ToolDescriptor
}

// Registry maps tool names to the provider that serves them. When two
// providers expose the same name, the one registered first keeps it.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]registration
	order  []string
	logger *slog.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Registry{
		byName: make(map[string]registration),
		logger: logger,
	}
}

// Register adds every tool the provider lists, in listing order, and returns
// how many were added.
func (r *Registry) Register(provider ToolProvider) (int, error) {
	tools, err := provider.ListTools()
	if err != nil {
		return 0, fmt.Errorf("list tools of %s: %w", provider.Name(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	added := 0
	for _, tool := range tools {
		if existing, ok := r.byName[tool.Name]; ok {
			r.logger.Warn("duplicate tool name, keeping first registration",
				"tool", tool.Name,
				"kept", existing.provider.Name(),
				"ignored", provider.Name())
			continue
		}

		r.byName[tool.Name] = registration{provider: provider, descriptor: tool}
		r.order = append(r.order, tool.Name)
		added++
	}

	return added, nil
}

// Resolve returns the provider serving the named tool.
func (r *Registry) Resolve(name string) (ToolProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return reg.provider, true
}

// Describe returns the descriptor registered under name.
func (r *Registry) Describe(name string) (ToolDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.byName[name]
	return reg.descriptor, ok
}

// ListAll returns every registered tool in registration order.
func (r *Registry) ListAll() []ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.byName[name].descriptor)
	}
	return tools
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Suggest returns the registered tool name closest to name, if any is close
// enough to be worth mentioning.
func (r *Registry) Suggest(name string) (string, bool) {
	if name == "" {
		return "", false
	}

	r.mu.RLock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	r.mu.RUnlock()

	for _, match := range fuzzy.Find(name, names) {
		if similarLength(name, match.Str) {
			return match.Str, true
		}
	}

	// The model often drops a word from the real name; try the other direction.
	for _, candidate := range names {
		if similarLength(name, candidate) && len(fuzzy.Find(candidate, []string{name})) > 0 {
			return candidate, true
		}
	}

	return "", false
}

// similarLength rejects subsequence matches between names of very different
// length, such as "ls" inside "list_calendar_events".
func similarLength(a, b string) bool {
	short, long := len(a), len(b)
	if short > long {
		short, long = long, short
	}
	return short*2 >= long
}
