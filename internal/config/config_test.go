package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const baseYAML = `
app:
  name: releaseboard
  port: 8080
database:
  filename: data/test.db
assistant:
  model: gpt-4o-mini
  supports_tools: true
  timeout: 5s
tracker:
  base_url: https://jira.example.com
source_control:
  owner: acme
scheduler:
  refresh_cron: "*/10 * * * *"
  watched_version_ids: [3, 4]
`

func TestParse(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("JIRA_API_TOKEN", "jira-token")
	t.Setenv("GITHUB_TOKEN", "gh-token")

	cfg, err := Parse([]byte(baseYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Assistant.APIKey != "sk-test" || cfg.Tracker.APIToken != "jira-token" || cfg.SourceControl.Token != "gh-token" {
		t.Fatalf("secrets not loaded from environment: %+v", cfg)
	}
	if cfg.Assistant.Timeout != 5*time.Second || !cfg.Assistant.SupportsTools {
		t.Fatalf("assistant = %+v", cfg.Assistant)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("Database.Driver = %q, want sqlite default", cfg.Database.Driver)
	}
	if cfg.Tracker.InScopeLabel != "in-scope" || cfg.Theme.Slot != "theme" {
		t.Fatalf("defaults not applied: label=%q slot=%q", cfg.Tracker.InScopeLabel, cfg.Theme.Slot)
	}
	if len(cfg.Scheduler.WatchedVersionIDs) != 2 || cfg.Scheduler.WatchedVersionIDs[1] != 4 {
		t.Fatalf("WatchedVersionIDs = %v", cfg.Scheduler.WatchedVersionIDs)
	}
	if got := cfg.ReleaseBranch("2.4.0"); got != "release/2.4.0" {
		t.Fatalf("ReleaseBranch() = %q", got)
	}
}

func TestParse_EnvironmentOverridesYAML(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Parse([]byte(baseYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.App.Port != 9090 {
		t.Fatalf("App.Port = %d, want 9090", cfg.App.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		replace [2]string
		wantErr string
	}{
		{name: "missing_name", replace: [2]string{"name: releaseboard", "name: \"\""}, wantErr: "app name is required"},
		{name: "bad_cron", replace: [2]string{"*/10 * * * *", "every tuesday"}, wantErr: "refresh_cron"},
		{name: "missing_model", replace: [2]string{"model: gpt-4o-mini", "model: \"\""}, wantErr: "assistant model is required"},
		{name: "bad_version_id", replace: [2]string{"[3, 4]", "[0]"}, wantErr: "must be positive"},
		{name: "missing_owner", replace: [2]string{"owner: acme", "owner: \"\""}, wantErr: "owner is required"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			doc := strings.Replace(baseYAML, test.replace[0], test.replace[1], 1)
			_, err := Parse([]byte(doc))
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Fatalf("Parse() error = %v, want %q", err, test.wantErr)
			}
		})
	}
}

func TestLoad_ReadsDotEnvBesideConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "app.yaml")
	if err := os.WriteFile(configPath, []byte(baseYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("GITHUB_TOKEN=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("GITHUB_TOKEN", "")
	os.Unsetenv("GITHUB_TOKEN")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SourceControl.Token != "from-dotenv" {
		t.Fatalf("SourceControl.Token = %q, want from-dotenv", cfg.SourceControl.Token)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("Load(missing) error = nil")
	}
}
