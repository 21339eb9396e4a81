package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvSlackBotToken, EnvSlackAppToken, EnvOpenAIAPIKey, EnvGroqAPIKey,
		EnvAnthropicAPIKey, EnvGeminiAPIKey, EnvOllamaHost, EnvLLMModel,
		EnvServersConfig, EnvSettings, EnvDebug, EnvLogFormat,
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg := FromEnv()

	if cfg.LLMModel != DefaultLLMModel {
		t.Errorf("expected model %q, got %q", DefaultLLMModel, cfg.LLMModel)
	}
	if cfg.ServersConfigPath != DefaultServersConfigPath {
		t.Errorf("expected servers path %q, got %q", DefaultServersConfigPath, cfg.ServersConfigPath)
	}
	if cfg.SettingsPath != DefaultSettingsPath {
		t.Errorf("expected settings path %q, got %q", DefaultSettingsPath, cfg.SettingsPath)
	}
	if cfg.Debug {
		t.Error("expected debug off")
	}
}

func TestCheckDebug(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{value: "1", want: true},
		{value: "true", want: true},
		{value: "TRUE", want: true},
		{value: "0", want: false},
		{value: "", want: false},
		{value: "yes", want: false},
	}

	for _, tt := range tests {
		t.Setenv(EnvDebug, tt.value)
		if got := CheckDebug(); got != tt.want {
			t.Errorf("SLACKMCP_DEBUG=%q: expected %v, got %v", tt.value, tt.want, got)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		missing []string
	}{
		{name: "both present", cfg: Config{SlackBotToken: "xoxb", SlackAppToken: "xapp"}},
		{name: "bot missing", cfg: Config{SlackAppToken: "xapp"}, missing: []string{EnvSlackBotToken}},
		{name: "both missing", cfg: Config{}, missing: []string{EnvSlackBotToken, EnvSlackAppToken}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if len(tt.missing) == 0 {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrMissingCredentials) {
				t.Fatalf("expected ErrMissingCredentials, got %v", err)
			}
			for _, key := range tt.missing {
				if !strings.Contains(err.Error(), key) {
					t.Errorf("expected %s in %q", key, err.Error())
				}
			}
		})
	}
}

func TestLoadDotEnvOverridesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvLLMModel, "from-env")

	dir := t.TempDir()
	dotEnv := filepath.Join(dir, ".env")
	content := "LLM_MODEL=claude-3-5-sonnet\nSLACK_BOT_TOKEN=xoxb-test\nSLACKMCP_SETTINGS=" + filepath.Join(dir, "none.toml") + "\n"
	if err := os.WriteFile(dotEnv, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dotEnv)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.LLMModel != "claude-3-5-sonnet" {
		t.Errorf("expected .env to override model, got %q", cfg.LLMModel)
	}
	if cfg.SlackBotToken != "xoxb-test" {
		t.Errorf("expected bot token from .env, got %q", cfg.SlackBotToken)
	}
	if len(cfg.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", cfg.Warnings)
	}
	if cfg.Settings.Conversation.HistoryWindow != 5 {
		t.Errorf("expected default history window, got %d", cfg.Settings.Conversation.HistoryWindow)
	}
}

func TestLoadMissingDotEnvWarns(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv(EnvSettings, filepath.Join(dir, "none.toml"))

	cfg, err := Load(filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("expected missing .env to be tolerated, got %v", err)
	}
	if len(cfg.Warnings) != 1 {
		t.Errorf("expected one warning, got %v", cfg.Warnings)
	}
}

func TestLoadMalformedSettingsFails(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	settings := filepath.Join(dir, "settings.toml")
	if err := os.WriteFile(settings, []byte("[tools\nmax_attempts = "), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvSettings, settings)

	if _, err := Load(""); err == nil {
		t.Error("expected malformed settings to fail")
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("SLACKMCP_TEST_DIR", "conf")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty stays empty", in: "", want: ""},
		{name: "tilde", in: "~/servers_config.json", want: filepath.Join(home, "servers_config.json")},
		{name: "env var", in: "$SLACKMCP_TEST_DIR/settings.toml", want: filepath.Join("conf", "settings.toml")},
		{name: "cleaned", in: "./a/../settings.toml", want: "settings.toml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandPath(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}

	if got := GetHomeDir(); got != home {
		t.Errorf("expected home %q, got %q", home, got)
	}
}
