package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dimiro1/banner"
	"github.com/spf13/cobra"

	"slackmcp/config"
	"slackmcp/logging"
	"slackmcp/mcp"
)

const (
	Version = "v0.01.00"
	License = "Apache-2.0"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "slackmcp",
	Short: "Slack bot that lets a language model use MCP tool servers",
	Long: `slackmcp answers Slack mentions and direct messages with a language model
that can call tools served by MCP (Model Context Protocol) servers.

Servers are read from servers_config.json (MCP_SERVERS_CONFIG). Slack
credentials and model keys come from the environment or a .env file.`,
	Version:      Version,
	SilenceUsage: true,
	RunE:         runBot,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultDotEnvPath, "environment file to load before reading variables")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func printBanner() {
	tpl := "{{ .Title \"slackmcp\" \"\" 0 }}\nVersion: " + Version + "  License: " + License + "\n\n"
	banner.Init(os.Stdout, true, true, bytes.NewBufferString(tpl))
}

// loadConfig reads configuration and builds the base logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}

	logger := logging.New(os.Stderr, logging.Format(cfg.LogFormat), cfg.Debug)
	for _, warning := range cfg.Warnings {
		logger.Warn(warning)
	}
	return cfg, logger, nil
}

// loadServers reads the servers file and logs entries worth a second look.
func loadServers(cfg *config.Config, logger *slog.Logger) ([]config.ServerConfig, error) {
	servers, err := config.LoadServers(config.ExpandPath(cfg.ServersConfigPath))
	if err != nil {
		return nil, err
	}

	for _, server := range servers {
		for _, warning := range server.Warnings() {
			logger.Warn("server config: "+warning, "server", server.Name)
		}
	}
	return servers, nil
}

// startServers launches every configured server and returns the manager
// owning them.
func startServers(ctx context.Context, cfg *config.Config, servers []config.ServerConfig, logger *slog.Logger) (*mcp.Manager, error) {
	mcpLogger := logging.Component(logger, "mcp")
	manager := mcp.NewManager(mcp.NewRegistry(mcpLogger), mcpLogger,
		mcp.WithInitTimeout(cfg.Settings.Tools.InitTimeout()))

	if err := manager.StartAll(ctx, servers); err != nil {
		manager.Shutdown(context.Background())
		return nil, fmt.Errorf("starting mcp servers: %w", err)
	}
	return manager, nil
}

func shutdownServers(manager *mcp.Manager, cfg *config.Config, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Settings.ShutdownTimeout())
	defer cancel()

	if stuck := manager.Shutdown(ctx); len(stuck) > 0 {
		logger.Warn("mcp servers did not stop in time", "servers", stuck)
	}
}
