// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename" env:"DATABASE_FILENAME"`
}

type AssistantConfig struct {
	BaseURL string `yaml:"base_url" env:"ASSISTANT_BASE_URL"`
	Model   string `yaml:"model" env:"ASSISTANT_MODEL"`
	// SupportsTools selects structured tool calls over the free-text fallback.
	SupportsTools bool          `yaml:"supports_tools"`
	Timeout       time.Duration `yaml:"timeout"`
	APIKey        string        `yaml:"-" env:"OPENAI_API_KEY"`
}

type TrackerConfig struct {
	BaseURL      string `yaml:"base_url"`
	User         string `yaml:"user" env:"JIRA_USER"`
	InScopeLabel string `yaml:"in_scope_label"`
	APIToken     string `yaml:"-" env:"JIRA_API_TOKEN"`
}

type SourceControlConfig struct {
	BaseURL string `yaml:"base_url"`
	Owner   string `yaml:"owner"`
	// BranchTemplate names the release branch of a new version; "{version}" is replaced.
	BranchTemplate string `yaml:"branch_template"`
	Token          string `yaml:"-" env:"GITHUB_TOKEN"`
}

type ThemeConfig struct {
	Slot string `yaml:"slot"`
}

type SchedulerConfig struct {
	RefreshCron       string  `yaml:"refresh_cron"`
	WatchedVersionIDs []int64 `yaml:"watched_version_ids"`
}

type RateLimitConfig struct {
	ChatCooldown     time.Duration `yaml:"chat_cooldown"`
	ChatHourlyMax    int           `yaml:"chat_hourly_max"`
	RefreshHourlyMax int           `yaml:"refresh_hourly_max"`
	// TrustProxy reads the client address from X-Forwarded-For.
	TrustProxy bool `yaml:"trust_proxy" env:"TRUST_PROXY"`
}

type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
	File  string `yaml:"file" env:"LOG_FILE"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment" env:"APP_ENVIRONMENT"`
		Port        int    `yaml:"port" env:"PORT"`
		BaseURL     string `yaml:"base_url"`
	} `yaml:"app"`

	Database      DatabaseConfig      `yaml:"database"`
	Assistant     AssistantConfig     `yaml:"assistant"`
	Tracker       TrackerConfig       `yaml:"tracker"`
	SourceControl SourceControlConfig `yaml:"source_control"`
	Theme         ThemeConfig         `yaml:"theme"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	RateLimit     RateLimitConfig     `yaml:"ratelimit"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	// Read and parse YAML config
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML config, overlays environment variables and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Secrets and deployment overrides come from the environment
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("error reading environment: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Assistant.Timeout == 0 {
		c.Assistant.Timeout = 30 * time.Second
	}
	if c.Tracker.InScopeLabel == "" {
		c.Tracker.InScopeLabel = "in-scope"
	}
	if c.SourceControl.BranchTemplate == "" {
		c.SourceControl.BranchTemplate = "release/{version}"
	}
	if c.Theme.Slot == "" {
		c.Theme.Slot = "theme"
	}
	if c.RateLimit.ChatCooldown == 0 {
		c.RateLimit.ChatCooldown = 2 * time.Second
	}
	if c.RateLimit.ChatHourlyMax == 0 {
		c.RateLimit.ChatHourlyMax = 60
	}
	if c.RateLimit.RefreshHourlyMax == 0 {
		c.RateLimit.RefreshHourlyMax = 120
	}
	if c.Scheduler.RefreshCron == "" {
		c.Scheduler.RefreshCron = "*/15 * * * *"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// IsDevelopment reports whether the app runs with developer console output.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "" || c.App.Environment == "development"
}

// ReleaseBranch renders the branch template for a version name.
func (c *Config) ReleaseBranch(versionName string) string {
	return strings.ReplaceAll(c.SourceControl.BranchTemplate, "{version}", versionName)
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Assistant.Model == "" {
		return fmt.Errorf("assistant model is required")
	}
	if c.Assistant.Timeout < 0 {
		return fmt.Errorf("assistant timeout must not be negative")
	}
	if c.Tracker.BaseURL == "" {
		return fmt.Errorf("tracker base_url is required")
	}
	if c.SourceControl.Owner == "" {
		return fmt.Errorf("source_control owner is required")
	}

	if c.Scheduler.RefreshCron != "" {
		if _, err := cron.ParseStandard(c.Scheduler.RefreshCron); err != nil {
			return fmt.Errorf("invalid scheduler refresh_cron %q: %w", c.Scheduler.RefreshCron, err)
		}
	}
	for _, id := range c.Scheduler.WatchedVersionIDs {
		if id <= 0 {
			return fmt.Errorf("watched version ids must be positive, got %d", id)
		}
	}

	if c.RateLimit.ChatCooldown < 0 || c.RateLimit.ChatHourlyMax < 0 || c.RateLimit.RefreshHourlyMax < 0 {
		return fmt.Errorf("ratelimit values must not be negative")
	}

	return nil
}
