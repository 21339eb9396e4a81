package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Settings are the tunables read from settings.toml.
type Settings struct {
	ShutdownTimeoutMS int                  `toml:"shutdown_timeout_ms"`
	Conversation      ConversationSettings `toml:"conversation"`
	Tools             ToolSettings         `toml:"tools"`
	Model             ModelSettings        `toml:"model"`
}

type ConversationSettings struct {
	// HistoryWindow is how many recent entries are sent to the model.
	HistoryWindow int `toml:"history_window"`
}

type ToolSettings struct {
	MaxAttempts   int     `toml:"max_attempts"`
	RetryDelayMS  int     `toml:"retry_delay_ms"`
	RetryBackoff  float64 `toml:"retry_backoff"`
	CallTimeoutMS int     `toml:"call_timeout_ms"`
	InitTimeoutMS int     `toml:"init_timeout_ms"`
}

type ModelSettings struct {
	TimeoutMS int `toml:"timeout_ms"`

	// SystemPrompt replaces the built-in preamble. The tool list and the
	// tool-call convention are always appended.
	SystemPrompt string `toml:"system_prompt,omitempty"`
}

func (s ToolSettings) RetryDelay() time.Duration {
	return time.Duration(s.RetryDelayMS) * time.Millisecond
}

func (s ToolSettings) CallTimeout() time.Duration {
	return time.Duration(s.CallTimeoutMS) * time.Millisecond
}

func (s ToolSettings) InitTimeout() time.Duration {
	return time.Duration(s.InitTimeoutMS) * time.Millisecond
}

func (s ModelSettings) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

func (s *Settings) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutMS) * time.Millisecond
}

// LoadSettings decodes path over the defaults. A missing file yields the
// defaults; a malformed one is an error.
func LoadSettings(path string) (*Settings, error) {
	cfg := DefaultSettings()

	if !FileExists(path) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}

	cfg.normalize()
	return cfg, nil
}

// normalize puts non-positive values back to their defaults.
func (s *Settings) normalize() {
	d := DefaultSettings()

	if s.ShutdownTimeoutMS <= 0 {
		s.ShutdownTimeoutMS = d.ShutdownTimeoutMS
	}
	if s.Conversation.HistoryWindow <= 0 {
		s.Conversation.HistoryWindow = d.Conversation.HistoryWindow
	}
	if s.Tools.MaxAttempts <= 0 {
		s.Tools.MaxAttempts = d.Tools.MaxAttempts
	}
	if s.Tools.RetryDelayMS < 0 {
		s.Tools.RetryDelayMS = d.Tools.RetryDelayMS
	}
	if s.Tools.RetryBackoff < 1 {
		s.Tools.RetryBackoff = d.Tools.RetryBackoff
	}
	if s.Tools.CallTimeoutMS <= 0 {
		s.Tools.CallTimeoutMS = d.Tools.CallTimeoutMS
	}
	if s.Tools.InitTimeoutMS <= 0 {
		s.Tools.InitTimeoutMS = d.Tools.InitTimeoutMS
	}
	if s.Model.TimeoutMS <= 0 {
		s.Model.TimeoutMS = d.Model.TimeoutMS
	}
}

// WriteSettingsTemplate writes the commented default settings file. It
// refuses to overwrite an existing file.
func WriteSettingsTemplate(path string) error {
	if FileExists(path) {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.WriteFile(path, []byte(GenerateSettingsTemplate()), 0600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
