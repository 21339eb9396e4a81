package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	globalconfig "slackmcp/config"
	"slackmcp/logging"
)

const (
	protocolVersion = "2025-06-18"
	clientName      = "slackmcp"
	clientVersion   = "1.0.0"

	closeTimeout = 1 * time.Second
)

// DialFunc starts the transport for a server and returns a client ready for
// the initialize handshake. cmd is nil for transports without a subprocess.
type DialFunc func(ctx context.Context, cfg globalconfig.ServerConfig) (*client.Client, *exec.Cmd, error)

// Connection owns one MCP server subprocess and its client session.
type Connection struct {
	cfg    globalconfig.ServerConfig
	dial   DialFunc
	logger *slog.Logger

	// call serializes Initialize and ExecuteTool on this connection.
	call sync.Mutex

	mu     sync.RWMutex
	status Status
	client *client.Client
	cmd    *exec.Cmd
	tools  []ToolDescriptor
}

// ConnectionOption configures a Connection.
type ConnectionOption func(*Connection)

// WithDialer replaces the stdio subprocess transport. Tests use it to attach
// in-process servers.
func WithDialer(dial DialFunc) ConnectionOption {
	return func(c *Connection) {
		c.dial = dial
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *slog.Logger) ConnectionOption {
	return func(c *Connection) {
		c.logger = logger
	}
}

// NewConnection creates an uninitialized connection for cfg.
func NewConnection(cfg globalconfig.ServerConfig, opts ...ConnectionOption) *Connection {
	c := &Connection{
		cfg:    cfg,
		status: StatusUninitialized,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	c.logger = c.logger.With(slog.String("server", cfg.Name))
	if c.dial == nil {
		c.dial = c.dialStdio
	}
	return c
}

// Name returns the configured server name.
func (c *Connection) Name() string {
	return c.cfg.Name
}

// Status returns the current lifecycle state.
func (c *Connection) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Initialize spawns the server, performs the MCP handshake and lists its
// tools. On failure the connection is cleaned up and left in StatusFailed.
func (c *Connection) Initialize(ctx context.Context) error {
	c.call.Lock()
	defer c.call.Unlock()

	switch c.Status() {
	case StatusConnected:
		return nil
	case StatusClosed:
		return fmt.Errorf("%w: %s was closed", ErrNotConnected, c.cfg.Name)
	}

	mcpClient, cmd, err := c.dial(ctx, c.cfg)
	if err != nil {
		return c.fail("start", err, mcpClient, cmd)
	}

	initReq := mcptypes.InitializeRequest{
		Params: mcptypes.InitializeParams{
			ProtocolVersion: protocolVersion,
			Capabilities:    mcptypes.ClientCapabilities{},
			ClientInfo: mcptypes.Implementation{
				Name:    clientName,
				Version: clientVersion,
			},
		},
	}

	initResult, err := mcpClient.Initialize(ctx, initReq)
	if err != nil {
		return c.fail("initialize", err, mcpClient, cmd)
	}

	toolsResult, err := mcpClient.ListTools(ctx, mcptypes.ListToolsRequest{})
	if err != nil {
		return c.fail("list tools", err, mcpClient, cmd)
	}

	tools := ConvertTools(c.cfg.Name, toolsResult.Tools)

	c.mu.Lock()
	c.client = mcpClient
	c.cmd = cmd
	c.tools = tools
	c.status = StatusConnected
	c.mu.Unlock()

	c.logger.Info("mcp server connected",
		"remote", initResult.ServerInfo.Name,
		"remote_version", initResult.ServerInfo.Version,
		"tools", len(tools))

	return nil
}

func (c *Connection) fail(stage string, err error, mcpClient *client.Client, cmd *exec.Cmd) error {
	c.mu.Lock()
	c.status = StatusFailed
	c.mu.Unlock()

	c.release(mcpClient, cmd)

	return &ProviderInitError{Server: c.cfg.Name, Stage: stage, Err: err}
}

// ListTools returns the tools the server reported at initialization.
func (c *Connection) ListTools() ([]ToolDescriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.status != StatusConnected {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotConnected, c.cfg.Name, c.status)
	}

	tools := make([]ToolDescriptor, len(c.tools))
	copy(tools, c.tools)
	return tools, nil
}

// ExecuteTool performs exactly one tools/call. Retrying is up to the caller.
func (c *Connection) ExecuteTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	c.call.Lock()
	defer c.call.Unlock()

	c.mu.RLock()
	status, mcpClient := c.status, c.client
	c.mu.RUnlock()

	if status != StatusConnected || mcpClient == nil {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotConnected, c.cfg.Name, status)
	}

	if args == nil {
		args = map[string]any{}
	}

	req := mcptypes.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	c.logger.Debug("calling tool", "tool", name, "args", args)

	result, err := mcpClient.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", name, c.cfg.Name, err)
	}

	text, err := decodeContent(result.Content)
	if err != nil {
		return nil, fmt.Errorf("decode %s result: %w", name, err)
	}

	if result.IsError {
		return nil, &ToolError{Server: c.cfg.Name, Tool: name, Message: text}
	}

	return &ToolResult{Text: text, Structured: result.StructuredContent}, nil
}

// Cleanup closes the session and stops the subprocess. Safe to call more
// than once; errors are logged, not returned.
func (c *Connection) Cleanup() {
	c.mu.Lock()
	if c.status == StatusClosed {
		c.mu.Unlock()
		return
	}
	mcpClient, cmd := c.client, c.cmd
	c.client, c.cmd = nil, nil
	c.status = StatusClosed
	c.mu.Unlock()

	c.release(mcpClient, cmd)
	c.logger.Debug("mcp server cleaned up")
}

// release closes the client with a short bound and kills the process if the
// close did not finish cleanly.
func (c *Connection) release(mcpClient *client.Client, cmd *exec.Cmd) {
	clientClosed := false

	if mcpClient != nil {
		closeDone := make(chan error, 1)
		go func() {
			closeDone <- mcpClient.Close()
		}()

		select {
		case err := <-closeDone:
			switch {
			case err != nil:
				c.logger.Warn("error closing mcp client", "error", err)
			default:
				clientClosed = true
			}
		case <-time.After(closeTimeout):
			c.logger.Warn("mcp client close timed out, killing process")
		}
	}

	if !clientClosed && cmd != nil && cmd.Process != nil {
		if err := cmd.Process.Kill(); err != nil {
			c.logger.Debug("kill mcp server process", "pid", cmd.Process.Pid, "error", err)
		}
	}
}

// dialStdio spawns the configured command and connects over its stdio.
func (c *Connection) dialStdio(ctx context.Context, cfg globalconfig.ServerConfig) (*client.Client, *exec.Cmd, error) {
	command, err := ResolveCommand(cfg.Command)
	if err != nil {
		return nil, nil, err
	}

	args := ExpandArgs(cfg.Args)
	env := BuildEnv(os.Environ(), cfg.Env)

	var capturedCmd *exec.Cmd
	cmdFunc := func(ctx context.Context, command string, env []string, args []string) (*exec.Cmd, error) {
		cmd := exec.CommandContext(ctx, command, args...)
		cmd.Env = env
		capturedCmd = cmd
		return cmd, nil
	}

	c.logger.Debug("starting mcp server", "command", command, "args", args)

	mcpClient, err := client.NewStdioMCPClientWithOptions(
		command,
		env,
		args,
		transport.WithCommandFunc(cmdFunc),
	)
	if err != nil {
		return nil, capturedCmd, err
	}

	if stderr, ok := client.GetStderr(mcpClient); ok {
		go c.drainStderr(stderr)
	}

	switch {
	case capturedCmd != nil && capturedCmd.Process != nil:
		c.logger.Debug("mcp server process started", "pid", capturedCmd.Process.Pid)
	}

	return mcpClient, capturedCmd, nil
}

func (c *Connection) drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		c.logger.Debug("mcp server stderr", "line", scanner.Text())
	}
}

// decodeContent flattens tools/call content into text. Frames read from a
// subprocess have already been through encoding/json, which turns invalid
// UTF-8 into U+FFFD; in-process transports skip that step, so the same
// replacement is applied here.
func decodeContent(contents []mcptypes.Content) (string, error) {
	parts := make([]string, 0, len(contents))

	for _, content := range contents {
		if text, ok := mcptypes.AsTextContent(content); ok {
			parts = append(parts, text.Text)
			continue
		}

		raw, err := json.Marshal(content)
		if err != nil {
			return "", fmt.Errorf("marshal content: %w", err)
		}
		parts = append(parts, string(raw))
	}

	return strings.ToValidUTF8(strings.Join(parts, "\n"), string(utf8.RuneError)), nil
}
