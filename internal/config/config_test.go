package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
anthropic:
  api_key: test-key
  model: claude-sonnet-4-20250514
tracker:
  organization: contoso
  project: Analytics
  pat: secret-pat
  timeout: 45s
workspace:
  dir: /data/workspace
  sow_file: scope.md
pbip:
  project_name: Sales
  server_name: sql.contoso.com
  database_name: SalesDW
schema:
  driver: sqlite
  dsn: /data/sales.db
server:
  addr: ":9090"
log:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "test-key" {
		t.Errorf("expected api_key 'test-key', got %q", cfg.Anthropic.APIKey)
	}
	if cfg.Tracker.Organization != "contoso" {
		t.Errorf("expected organization 'contoso', got %q", cfg.Tracker.Organization)
	}
	if cfg.Tracker.Timeout != 45*time.Second {
		t.Errorf("expected tracker timeout 45s, got %v", cfg.Tracker.Timeout)
	}
	if cfg.Workspace.Dir != "/data/workspace" {
		t.Errorf("expected workspace dir '/data/workspace', got %q", cfg.Workspace.Dir)
	}
	if cfg.PBIP.ProjectName != "Sales" {
		t.Errorf("expected project name 'Sales', got %q", cfg.PBIP.ProjectName)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("expected server addr ':9090', got %q", cfg.Server.Addr)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level 'debug', got %q", cfg.Log.Level)
	}
}

func TestLoadFromPath_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("anthropic:\n  api_key: k\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Tracker.BaseURL != "https://dev.azure.com" {
		t.Errorf("expected default base_url, got %q", cfg.Tracker.BaseURL)
	}
	if cfg.Tracker.Timeout != 30*time.Second {
		t.Errorf("expected default tracker timeout 30s, got %v", cfg.Tracker.Timeout)
	}
	if cfg.Workspace.RequirementsFile != "requirements.md" {
		t.Errorf("expected default requirements file, got %q", cfg.Workspace.RequirementsFile)
	}
	if cfg.Workspace.SnapshotFile != "discovered_schema.json" {
		t.Errorf("expected default snapshot file, got %q", cfg.Workspace.SnapshotFile)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default server addr, got %q", cfg.Server.Addr)
	}
	if cfg.Agents.MaxIterations != 20 {
		t.Errorf("expected default max_iterations 20, got %d", cfg.Agents.MaxIterations)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level 'info', got %q", cfg.Log.Level)
	}
}

func TestLoadFromPath_ExpandsEnvReferences(t *testing.T) {
	os.Setenv("TEST_FABWORKS_PAT", "pat-from-env")
	defer os.Unsetenv("TEST_FABWORKS_PAT")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	content := "tracker:\n  pat: ${TEST_FABWORKS_PAT}\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Tracker.PAT != "pat-from-env" {
		t.Errorf("expected PAT expanded from env, got %q", cfg.Tracker.PAT)
	}
}

func TestValidateTracker(t *testing.T) {
	cfg := &Config{}
	if err := cfg.ValidateTracker(); err == nil {
		t.Error("expected error for missing tracker settings")
	}

	cfg.Tracker.Organization = "contoso"
	cfg.Tracker.Project = "Analytics"
	if err := cfg.ValidateTracker(); err == nil {
		t.Error("expected error for missing PAT")
	}

	cfg.Tracker.PAT = "secret"
	if err := cfg.ValidateTracker(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateModel(t *testing.T) {
	cfg := &Config{}
	if err := cfg.ValidateModel(); err == nil {
		t.Error("expected error without API key")
	}

	cfg.Anthropic.UseBedrock = true
	if err := cfg.ValidateModel(); err != nil {
		t.Errorf("bedrock does not require an API key: %v", err)
	}

	cfg.Anthropic.UseBedrock = false
	cfg.Anthropic.APIKey = "k"
	if err := cfg.ValidateModel(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWorkspacePaths(t *testing.T) {
	w := WorkspaceConfig{
		Dir:              "/data/ws",
		SOWFile:          "sow.md",
		RulesFile:        "rules.md",
		RequirementsFile: "requirements.md",
		SnapshotFile:     "discovered_schema.json",
	}

	if got := w.SOWPath(); got != "/data/ws/sow.md" {
		t.Errorf("SOWPath = %q", got)
	}
	if got := w.RequirementsPath(); got != "/data/ws/requirements.md" {
		t.Errorf("RequirementsPath = %q", got)
	}
	if got := w.SnapshotPath(); got != "/data/ws/discovered_schema.json" {
		t.Errorf("SnapshotPath = %q", got)
	}
}

func TestGetUserConfigDir(t *testing.T) {
	os.Setenv("XDG_CONFIG_HOME", "/custom/config")
	defer os.Unsetenv("XDG_CONFIG_HOME")

	dir := getUserConfigDir()
	expected := "/custom/config/fabworks"
	if dir != expected {
		t.Errorf("expected %q, got %q", expected, dir)
	}
}
