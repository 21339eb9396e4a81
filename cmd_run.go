package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"slackmcp/logging"
	"slackmcp/mcp"
	"slackmcp/orchestrator"
	"slackmcp/provider"
	"slackmcp/slack"
	"slackmcp/storage"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Slack and answer messages (default)",
	RunE:  runBot,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runBot(cmd *cobra.Command, args []string) error {
	printBanner()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	llm, sel, err := provider.InitializeProvider(cfg)
	if err != nil {
		return err
	}
	if sel.Fallback {
		logger.Warn("configured model has no matching credentials, using backend default",
			"requested", cfg.LLMModel, "backend", sel.Type, "model", sel.Model)
	}
	logger.Info("language model selected", "backend", sel.Type, "model", llm.GetModel())

	servers, err := loadServers(cfg, logger)
	if err != nil {
		return err
	}
	if err := mcp.CheckCommands(servers); err != nil {
		return fmt.Errorf("unresolvable server command: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager, err := startServers(ctx, cfg, servers, logger)
	if err != nil {
		return err
	}
	defer shutdownServers(manager, cfg, logger)

	settings := cfg.Settings
	orch := orchestrator.New(llm, manager.Registry(), storage.NewConversationStore(), logger, orchestrator.Options{
		HistoryWindow: settings.Conversation.HistoryWindow,
		ModelTimeout:  settings.Model.Timeout(),
		ToolTimeout:   settings.Tools.CallTimeout(),
		Retry:         orchestrator.NewRetryPolicy(settings.Tools.MaxAttempts, settings.Tools.RetryDelay(), settings.Tools.RetryBackoff),
		SystemIntro:   settings.Model.SystemPrompt,
	})

	bot := slack.NewBot(cfg.SlackBotToken, cfg.SlackAppToken, orch, manager.Registry(), logger, cfg.Debug)
	botID, err := bot.Authenticate(ctx)
	if err != nil {
		return err
	}
	orch.SetBotUserID(botID)

	logging.Component(logger, "main").Info("slack bot started and waiting for messages",
		"tools", manager.Registry().Len(), "servers", len(manager.Connected()))

	if err := bot.Run(ctx); err != nil {
		return err
	}

	logger.Info("shutting down")
	return nil
}
