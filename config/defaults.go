package config

import (
	"encoding/json"
)

func DefaultSettings() *Settings {
	return &Settings{
		ShutdownTimeoutMS: 10000,
		Conversation: ConversationSettings{
			HistoryWindow: 5,
		},
		Tools: ToolSettings{
			MaxAttempts:   2,
			RetryDelayMS:  1000,
			RetryBackoff:  1.0,
			CallTimeoutMS: 30000,
			InitTimeoutMS: 30000,
		},
		Model: ModelSettings{
			TimeoutMS: 60000,
		},
	}
}

func GenerateSettingsTemplate() string {
	return `# slackmcp settings
# Location: ./settings.toml (override with SLACKMCP_SETTINGS)
# This file uses TOML format: https://toml.io

# How long shutdown waits for MCP servers to exit
shutdown_timeout_ms = 10000

[conversation]
# Number of recent messages per channel sent to the model
history_window = 5

[tools]
# Attempts per tool call, including the first one
max_attempts = 2
# Delay before the first retry; multiplied by retry_backoff after each attempt
retry_delay_ms = 1000
retry_backoff = 1.0
# Bound on a single tools/call
call_timeout_ms = 30000
# Bound on starting one MCP server (spawn, handshake, tool listing)
init_timeout_ms = 30000

[model]
# Bound on a single model request
timeout_ms = 60000
# Replaces the opening of the system prompt (optional)
# system_prompt = "You are a helpful assistant in our team's Slack."
`
}

type serversDocument struct {
	MCPServers map[string]serverEntry `json:"mcpServers"`
}

type serverEntry struct {
	Command              string            `json:"command"`
	Args                 []string          `json:"args"`
	Env                  map[string]string `json:"env"`
	Encoding             string            `json:"encoding"`
	EncodingErrorHandler string            `json:"encoding_error_handler"`
}

// GenerateServersConfig builds a servers file for the Google Workspace MCP
// server from environment values looked up with getenv.
func GenerateServersConfig(getenv func(string) string) ([]byte, error) {
	lookup := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}

	doc := serversDocument{
		MCPServers: map[string]serverEntry{
			"google-workspace": {
				Command: "node",
				Args: []string{
					lookup("GOOGLE_WORKSPACE_SERVER_PATH", "google-workspace-server/index.js"),
				},
				Env: map[string]string{
					"GOOGLE_CLIENT_ID":     getenv("GOOGLE_CLIENT_ID"),
					"GOOGLE_CLIENT_SECRET": getenv("GOOGLE_CLIENT_SECRET"),
					"GOOGLE_REFRESH_TOKEN": getenv("GOOGLE_REFRESH_TOKEN"),
				},
				Encoding:             "utf-8",
				EncodingErrorHandler: EncodingErrorsReplace,
			},
		},
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
