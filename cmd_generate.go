package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"slackmcp/config"
)

var (
	generateOutput   string
	generateSettings string
	generateForce    bool
)

var generateCmd = &cobra.Command{
	Use:   "generate-config",
	Short: "Write a servers config from environment variables",
	Long: `Writes servers_config.json with the google-workspace MCP server, filling
its credentials from GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and
GOOGLE_REFRESH_TOKEN. Use --settings to also write a settings.toml template.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", config.DefaultServersConfigPath, "servers config path")
	generateCmd.Flags().StringVar(&generateSettings, "settings", "", "also write a settings template to this path")
	generateCmd.Flags().BoolVarP(&generateForce, "force", "f", false, "overwrite an existing servers config")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if envFile != "" {
		// A missing .env is fine here; the variables may already be exported.
		_ = config.LoadDotEnv(envFile)
	}

	path := config.ExpandPath(generateOutput)
	if config.FileExists(path) && !generateForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	data, err := config.GenerateServersConfig(os.Getenv)
	if err != nil {
		return err
	}
	if err := config.WriteFileSecure(path, data); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)

	if generateSettings != "" {
		settingsPath := config.ExpandPath(generateSettings)
		if err := config.WriteSettingsTemplate(settingsPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", settingsPath)
	}
	return nil
}
