package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type fakeProvider struct {
	name  string
	tools []string
	err   error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) ListTools() ([]ToolDescriptor, error) {
	if f.err != nil {
		return nil, f.err
	}
	tools := make([]ToolDescriptor, 0, len(f.tools))
	for _, name := range f.tools {
		tools = append(tools, ToolDescriptor{Name: name, Server: f.name, Description: "desc " + name})
	}
	return tools, nil
}

func (f *fakeProvider) ExecuteTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	return &ToolResult{Text: f.name + ":" + name}, nil
}

func TestRegistryResolve(t *testing.T) {
	for _, providers := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("%d providers", providers), func(t *testing.T) {
			registry := NewRegistry(nil)
			owners := make(map[string]string)

			for p := 0; p < providers; p++ {
				provider := &fakeProvider{name: fmt.Sprintf("server-%d", p)}
				for i := 0; i < 3; i++ {
					tool := fmt.Sprintf("tool_%d_%d", p, i)
					provider.tools = append(provider.tools, tool)
					owners[tool] = provider.name
				}
				if _, err := registry.Register(provider); err != nil {
					t.Fatalf("register: %v", err)
				}
			}

			for tool, owner := range owners {
				got, ok := registry.Resolve(tool)
				if !ok {
					t.Errorf("expected %s to resolve", tool)
					continue
				}
				if got.Name() != owner {
					t.Errorf("expected %s to resolve to %s, got %s", tool, owner, got.Name())
				}
			}

			for _, missing := range []string{"", "unknown_tool", "tool_99_0"} {
				if _, ok := registry.Resolve(missing); ok {
					t.Errorf("expected %q not to resolve", missing)
				}
			}

			if registry.Len() != len(owners) {
				t.Errorf("expected %d tools, got %d", len(owners), registry.Len())
			}
		})
	}
}

func TestRegistryCollisionFirstWins(t *testing.T) {
	registry := NewRegistry(nil)

	first := &fakeProvider{name: "first", tools: []string{"search", "read"}}
	second := &fakeProvider{name: "second", tools: []string{"search", "write"}}

	if n, _ := registry.Register(first); n != 2 {
		t.Errorf("expected 2 tools added, got %d", n)
	}
	if n, _ := registry.Register(second); n != 1 {
		t.Errorf("expected 1 tool added, got %d", n)
	}

	provider, ok := registry.Resolve("search")
	if !ok || provider.Name() != "first" {
		t.Errorf("expected 'search' to stay with first provider, got %v", provider)
	}

	desc, ok := registry.Describe("search")
	if !ok || desc.Server != "first" {
		t.Errorf("expected descriptor from first provider, got %+v", desc)
	}
}

func TestRegistryListAllOrder(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register(&fakeProvider{name: "a", tools: []string{"zeta", "alpha"}})
	registry.Register(&fakeProvider{name: "b", tools: []string{"mid"}})

	var names []string
	for _, tool := range registry.ListAll() {
		names = append(names, tool.Name)
	}

	want := []string{"zeta", "alpha", "mid"}
	if fmt.Sprint(names) != fmt.Sprint(want) {
		t.Errorf("expected %v, got %v", want, names)
	}
}

func TestRegistryRegisterError(t *testing.T) {
	registry := NewRegistry(nil)

	_, err := registry.Register(&fakeProvider{name: "down", err: ErrNotConnected})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if registry.Len() != 0 {
		t.Errorf("expected empty registry, got %d", registry.Len())
	}
}

func TestRegistrySuggest(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register(&fakeProvider{name: "ws", tools: []string{"get_current_time", "search_drive", "send_email"}})

	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{input: "get_time", want: "get_current_time", wantOK: true},
		{input: "search_drive_files", want: "search_drive", wantOK: true},
		{input: "qqq", wantOK: false},
		{input: "", wantOK: false},
		{input: "get_weather_details", wantOK: false},
		{input: "lst", want: "ls", wantOK: true},
	}

	registry.Register(&fakeProvider{name: "shell", tools: []string{"ls"}})

	for _, tt := range tests {
		got, ok := registry.Suggest(tt.input)
		if ok != tt.wantOK {
			t.Errorf("Suggest(%q): expected ok=%v, got %v (%q)", tt.input, tt.wantOK, ok, got)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("Suggest(%q): expected %q, got %q", tt.input, tt.want, got)
		}
	}
}

func TestFormatForLLM(t *testing.T) {
	d := ToolDescriptor{
		Name:        "get_weather",
		Description: "Get current weather",
		InputSchema: []byte(`{"type":"object","properties":{"units":{"type":"string"},"location":{"type":"string","description":"City name"}},"required":["location"]}`),
	}

	want := "Tool: get_weather\n" +
		"Description: Get current weather\n" +
		"Arguments:\n" +
		"- location: City name (required)\n" +
		"- units: No description\n"

	if got := FormatForLLM(d); got != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, got)
	}

	noArgs := FormatForLLM(ToolDescriptor{Name: "get_now", Description: "Now"})
	if noArgs != "Tool: get_now\nDescription: Now\nArguments:\n- none\n" {
		t.Errorf("unexpected output for tool without arguments: %q", noArgs)
	}
}
