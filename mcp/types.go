package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Status is the lifecycle state of a server connection.
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusConnected     Status = "connected"
	StatusFailed        Status = "failed"
	StatusClosed        Status = "closed"
)

// ToolDescriptor describes one tool exposed by a server. It does not change
// after listing.
type ToolDescriptor struct {
	Name        string
	Description string
	Server      string
	InputSchema json.RawMessage
}

// ToolResult is the outcome of a successful tools/call.
type ToolResult struct {
	// Text is the concatenated text content of the result.
	Text string

	// Structured is the server's structuredContent, when it sent one.
	Structured any
}

// ToolProvider is anything the registry can dispatch tool calls to.
// *Connection is the production implementation.
type ToolProvider interface {
	Name() string
	ListTools() ([]ToolDescriptor, error)
	ExecuteTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error)
}

// ErrNotConnected is returned when a connection is used before Initialize
// succeeded or after Cleanup.
var ErrNotConnected = errors.New("mcp server not connected")

// ProviderInitError reports a server that could not be brought up.
type ProviderInitError struct {
	Server string
	Stage  string
	Err    error
}

func (e *ProviderInitError) Error() string {
	return fmt.Sprintf("mcp server %q: %s: %v", e.Server, e.Stage, e.Err)
}

func (e *ProviderInitError) Unwrap() error {
	return e.Err
}

// ToolError is a tools/call result the server flagged with isError.
type ToolError struct {
	Server  string
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("tool %q on server %q failed", e.Tool, e.Server)
	}
	return fmt.Sprintf("tool %q on server %q failed: %s", e.Tool, e.Server, e.Message)
}
