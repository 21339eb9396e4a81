package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"slackmcp/config"
	"slackmcp/mcp"
	"slackmcp/provider"
)

var toolsPing bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Start the configured MCP servers and list their tools",
	RunE:  runTools,
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsPing, "ping", false, "also check that the language model is reachable")
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(out, "Runtimes:")
	for _, name := range []string{"node", "npx", "uvx", "python3", "docker"} {
		rt := mcp.DetectRuntime(ctx, name)
		status := rt.Version
		switch {
		case !rt.Installed:
			status = "missing"
		case status == "":
			status = "installed"
		}
		fmt.Fprintf(out, "  %s %s\n", runewidth.FillRight(name, 10), status)
	}
	fmt.Fprintln(out)

	if toolsPing {
		printModelStatus(ctx, out, cfg)
	}

	servers, err := loadServers(cfg, logger)
	if err != nil {
		return err
	}

	manager, err := startServers(ctx, cfg, servers, logger)
	if err != nil {
		return err
	}
	defer shutdownServers(manager, cfg, logger)

	failed := manager.Failed()
	names := make([]string, 0, len(failed))
	for name := range failed {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(out, "Servers: %d connected, %d failed\n", len(manager.Connected()), len(failed))
	for _, name := range names {
		fmt.Fprintf(out, "  %s %v\n", runewidth.FillRight(name, 20), failed[name])
	}
	fmt.Fprintln(out)

	tools := manager.Registry().ListAll()
	fmt.Fprintf(out, "Tools (%d):\n", len(tools))
	for _, tool := range tools {
		desc := runewidth.Truncate(tool.Description, 80, "...")
		fmt.Fprintf(out, "  %s %s %s\n",
			runewidth.FillRight(tool.Name, 28),
			runewidth.FillRight("["+tool.Server+"]", 20),
			desc)
	}
	return nil
}

func printModelStatus(ctx context.Context, out io.Writer, cfg *config.Config) {
	llm, sel, err := provider.InitializeProvider(cfg)
	if err != nil {
		fmt.Fprintf(out, "Model: %v\n\n", err)
		return
	}

	status := "reachable"
	if err := provider.CheckReachable(ctx, llm, 15*time.Second); err != nil {
		status = err.Error()
	}
	fmt.Fprintf(out, "Model: %s via %s (%s)\n\n", llm.GetModel(), sel.Type, status)
}
