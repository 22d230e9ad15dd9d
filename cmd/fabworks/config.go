package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tmcgann/fabworks/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Displays the effective configuration after merging defaults, the
user config, the project config, and environment variables.

Configuration is stored at ~/.config/fabworks/config.yaml
Project-specific overrides can be placed in .fabworks.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		displayConfig(cfg)
	},
}

func mask(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	return "****"
}

func displayConfig(cfg *config.Config) {
	fmt.Printf("anthropic.api_key: %s\n", mask(cfg.Anthropic.APIKey))
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("tracker.base_url: %s\n", cfg.Tracker.BaseURL)
	fmt.Printf("tracker.organization: %s\n", cfg.Tracker.Organization)
	fmt.Printf("tracker.project: %s\n", cfg.Tracker.Project)
	fmt.Printf("tracker.pat: %s\n", mask(cfg.Tracker.PAT))
	fmt.Printf("tracker.timeout: %s\n", cfg.Tracker.Timeout)
	fmt.Printf("workspace.dir: %s\n", cfg.Workspace.Dir)
	fmt.Printf("workspace.sow_file: %s\n", cfg.Workspace.SOWFile)
	fmt.Printf("workspace.rules_file: %s\n", cfg.Workspace.RulesFile)
	fmt.Printf("workspace.requirements_file: %s\n", cfg.Workspace.RequirementsFile)
	fmt.Printf("workspace.snapshot_file: %s\n", cfg.Workspace.SnapshotFile)
	fmt.Printf("pbip.project_name: %s\n", cfg.PBIP.ProjectName)
	fmt.Printf("pbip.out_dir: %s\n", cfg.PBIP.OutDir)
	fmt.Printf("pbip.server_name: %s\n", cfg.PBIP.ServerName)
	fmt.Printf("pbip.database_name: %s\n", cfg.PBIP.DatabaseName)
	fmt.Printf("schema.driver: %s\n", cfg.Schema.Driver)
	fmt.Printf("schema.dsn: %s\n", mask(cfg.Schema.DSN))
	fmt.Printf("server.addr: %s\n", cfg.Server.Addr)
	fmt.Printf("agents.overlay_file: %s\n", cfg.Agents.OverlayFile)
	fmt.Printf("agents.max_iterations: %d\n", cfg.Agents.MaxIterations)
	fmt.Printf("log.level: %s\n", cfg.Log.Level)

	if projectConfig := config.GetProjectConfigPath(); projectConfig != "" {
		fmt.Printf("\nproject config: %s\n", projectConfig)
	}
	fmt.Printf("user config: %s\n", config.GetUserConfigPath())
}
