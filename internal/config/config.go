// Package config handles configuration loading for fabworks.
// It supports XDG config paths, project-level overrides, and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for fabworks.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Tracker   TrackerConfig   `mapstructure:"tracker"`
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	PBIP      PBIPConfig      `mapstructure:"pbip"`
	Schema    SchemaConfig    `mapstructure:"schema"`
	Server    ServerConfig    `mapstructure:"server"`
	Agents    AgentsConfig    `mapstructure:"agents"`
	Log       LogConfig       `mapstructure:"log"`
}

// AnthropicConfig holds model API settings.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// TrackerConfig holds work-item tracker connection settings. The PAT comes
// from the environment or the config file, never from source.
type TrackerConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Organization string        `mapstructure:"organization"`
	Project      string        `mapstructure:"project"`
	PAT          string        `mapstructure:"pat"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// WorkspaceConfig holds the filesystem layout the agents operate on.
type WorkspaceConfig struct {
	Dir              string `mapstructure:"dir"`
	SOWFile          string `mapstructure:"sow_file"`
	RulesFile        string `mapstructure:"rules_file"`
	RequirementsFile string `mapstructure:"requirements_file"`
	SnapshotFile     string `mapstructure:"snapshot_file"`
}

// PBIPConfig holds Power BI project generation settings.
type PBIPConfig struct {
	ProjectName  string `mapstructure:"project_name"`
	OutDir       string `mapstructure:"out_dir"`
	ServerName   string `mapstructure:"server_name"`
	DatabaseName string `mapstructure:"database_name"`
}

// SchemaConfig holds schema discovery settings. An empty DSN disables
// discovery.
type SchemaConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// AgentsConfig holds agent registry settings.
type AgentsConfig struct {
	// OverlayFile is an optional agents.yaml with prompt/summary overrides.
	OverlayFile string `mapstructure:"overlay_file"`
	// MaxIterations caps API calls per agent run.
	MaxIterations int `mapstructure:"max_iterations"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SOWPath returns the absolute path of the statement of work.
func (w WorkspaceConfig) SOWPath() string { return filepath.Join(w.Dir, w.SOWFile) }

// RulesPath returns the absolute path of the rules document.
func (w WorkspaceConfig) RulesPath() string { return filepath.Join(w.Dir, w.RulesFile) }

// RequirementsPath returns the absolute path of the requirements document.
func (w WorkspaceConfig) RequirementsPath() string {
	return filepath.Join(w.Dir, w.RequirementsFile)
}

// SnapshotPath returns the absolute path of the schema snapshot.
func (w WorkspaceConfig) SnapshotPath() string { return filepath.Join(w.Dir, w.SnapshotFile) }

// Load loads configuration from XDG paths, project overrides, and
// environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, FABWORKS_TRACKER_PAT)
// 2. Project config (.fabworks.yaml in current directory or parent)
// 3. User config (~/.config/fabworks/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("tracker.pat", "FABWORKS_TRACKER_PAT")
	v.BindEnv("schema.dsn", "FABWORKS_SCHEMA_DSN")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references so config files can point at the environment.
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	cfg.Tracker.PAT = os.ExpandEnv(cfg.Tracker.PAT)
	cfg.Schema.DSN = os.ExpandEnv(cfg.Schema.DSN)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	cfg.Tracker.PAT = os.ExpandEnv(cfg.Tracker.PAT)
	cfg.Schema.DSN = os.ExpandEnv(cfg.Schema.DSN)

	return cfg, nil
}

// ValidateTracker checks the settings the tracker client requires.
func (c *Config) ValidateTracker() error {
	if c.Tracker.Organization == "" {
		return fmt.Errorf("tracker.organization is required")
	}
	if c.Tracker.Project == "" {
		return fmt.Errorf("tracker.project is required")
	}
	if c.Tracker.PAT == "" {
		return fmt.Errorf("tracker.pat is required (set FABWORKS_TRACKER_PAT)")
	}
	return nil
}

// ValidateModel checks the settings the model client requires.
func (c *Config) ValidateModel() error {
	if !c.Anthropic.UseBedrock && c.Anthropic.APIKey == "" {
		return fmt.Errorf("anthropic.api_key is required (set ANTHROPIC_API_KEY)")
	}
	return nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it
// exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_bedrock", false)

	v.SetDefault("tracker.base_url", "https://dev.azure.com")
	v.SetDefault("tracker.timeout", "30s")

	v.SetDefault("workspace.dir", ".")
	v.SetDefault("workspace.sow_file", "sow.md")
	v.SetDefault("workspace.rules_file", "rules.md")
	v.SetDefault("workspace.requirements_file", "requirements.md")
	v.SetDefault("workspace.snapshot_file", "discovered_schema.json")

	v.SetDefault("pbip.project_name", "Report")
	v.SetDefault("pbip.out_dir", "pbip")
	v.SetDefault("pbip.server_name", "")
	v.SetDefault("pbip.database_name", "")

	v.SetDefault("schema.driver", "sqlite")
	v.SetDefault("schema.dsn", "")

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("agents.overlay_file", "")
	v.SetDefault("agents.max_iterations", 20)

	v.SetDefault("log.level", "info")
}

// getUserConfigDir returns the XDG config directory for fabworks.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "fabworks")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "fabworks")
	}
	return filepath.Join(home, ".config", "fabworks")
}

// findProjectConfig searches for .fabworks.yaml in the current directory and
// parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".fabworks.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}
