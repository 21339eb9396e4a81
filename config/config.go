package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by Load.
const (
	EnvSlackBotToken   = "SLACK_BOT_TOKEN"
	EnvSlackAppToken   = "SLACK_APP_TOKEN"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvGroqAPIKey      = "GROQ_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvOllamaHost      = "OLLAMA_HOST"
	EnvLLMModel        = "LLM_MODEL"
	EnvServersConfig   = "MCP_SERVERS_CONFIG"
	EnvSettings        = "SLACKMCP_SETTINGS"
	EnvDebug           = "SLACKMCP_DEBUG"
	EnvLogFormat       = "SLACKMCP_LOG_FORMAT"
)

const (
	DefaultLLMModel          = "gpt-4o"
	DefaultServersConfigPath = "servers_config.json"
	DefaultSettingsPath      = "settings.toml"
	DefaultDotEnvPath        = ".env"
)

// ErrMissingCredentials is returned by Validate when the Slack tokens are not set.
var ErrMissingCredentials = errors.New("missing credentials")

type Config struct {
	SlackBotToken string
	SlackAppToken string

	OpenAIAPIKey    string
	GroqAPIKey      string
	AnthropicAPIKey string
	GeminiAPIKey    string
	OllamaHost      string
	LLMModel        string

	ServersConfigPath string
	SettingsPath      string

	Debug     bool
	LogFormat string

	Settings *Settings

	// Warnings collected while loading, logged once a logger exists.
	Warnings []string
}

// CheckDebug reports whether SLACKMCP_DEBUG asks for debug logging.
func CheckDebug() bool {
	debug := strings.ToLower(os.Getenv(EnvDebug))
	return debug == "true" || debug == "1"
}

// LoadDotEnv loads KEY=VALUE pairs from path. Values in the file override
// the process environment.
func LoadDotEnv(path string) error {
	if !FileExists(path) {
		return fmt.Errorf("environment file %s: %w", path, os.ErrNotExist)
	}
	if err := godotenv.Overload(path); err != nil {
		return fmt.Errorf("failed to load environment file %s: %w", path, err)
	}
	return nil
}

// FromEnv builds a Config from the process environment only.
func FromEnv() *Config {
	return &Config{
		SlackBotToken:     os.Getenv(EnvSlackBotToken),
		SlackAppToken:     os.Getenv(EnvSlackAppToken),
		OpenAIAPIKey:      os.Getenv(EnvOpenAIAPIKey),
		GroqAPIKey:        os.Getenv(EnvGroqAPIKey),
		AnthropicAPIKey:   os.Getenv(EnvAnthropicAPIKey),
		GeminiAPIKey:      os.Getenv(EnvGeminiAPIKey),
		OllamaHost:        os.Getenv(EnvOllamaHost),
		LLMModel:          getenvDefault(EnvLLMModel, DefaultLLMModel),
		ServersConfigPath: getenvDefault(EnvServersConfig, DefaultServersConfigPath),
		SettingsPath:      getenvDefault(EnvSettings, DefaultSettingsPath),
		Debug:             CheckDebug(),
		LogFormat:         os.Getenv(EnvLogFormat),
	}
}

// Load reads the .env file (if present), the environment and the settings
// file. A missing .env or settings file is not an error.
func Load(dotEnvPath string) (*Config, error) {
	var warnings []string

	if dotEnvPath != "" {
		if err := LoadDotEnv(dotEnvPath); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
			warnings = append(warnings, fmt.Sprintf("environment file %s not found, using process environment", dotEnvPath))
		}
	}

	cfg := FromEnv()
	cfg.Warnings = warnings

	settings, err := LoadSettings(ExpandPath(cfg.SettingsPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	cfg.Settings = settings

	return cfg, nil
}

// Validate checks what the bot cannot start without.
func (c *Config) Validate() error {
	var missing []string
	if c.SlackBotToken == "" {
		missing = append(missing, EnvSlackBotToken)
	}
	if c.SlackAppToken == "" {
		missing = append(missing, EnvSlackAppToken)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
