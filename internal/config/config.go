// Package config handles configuration loading for delega.
// It supports XDG config paths, project-level overrides, and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for delega.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Roster    RosterConfig    `mapstructure:"roster"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Audit     AuditConfig     `mapstructure:"audit"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey        string `mapstructure:"api_key"`
	Model         string `mapstructure:"model"`
	UseAWSBedrock bool   `mapstructure:"bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
}

// BackendConfig holds the project management backend settings.
type BackendConfig struct {
	// URL is the base URL of the backend REST API. Empty disables the
	// HTTP provider.
	URL string `mapstructure:"url"`
	// Timeout bounds each backend request.
	Timeout time.Duration `mapstructure:"timeout"`
}

// RosterConfig holds the local roster settings used when no backend is
// configured.
type RosterConfig struct {
	// Path is the YAML roster file.
	Path string `mapstructure:"path"`
}

// PipelineConfig holds decision pipeline tunables.
type PipelineConfig struct {
	// Timeout bounds one full pipeline run.
	Timeout time.Duration `mapstructure:"timeout"`
	// ShortlistSize is the number of candidates kept after ranking.
	ShortlistSize int `mapstructure:"shortlist_size"`
	// MaxWorkload is the workload ceiling before an ethics demotion.
	MaxWorkload float64 `mapstructure:"max_workload"`
	// RuleBased disables the reasoner entirely.
	RuleBased bool `mapstructure:"rule_based"`
}

// AuditConfig holds audit trail settings.
type AuditConfig struct {
	// Path is the SQLite database file. Empty uses the default
	// XDG data location.
	Path string `mapstructure:"path"`
}

// ValidationError reports a configuration value that prevents startup.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, DELEGA_BACKEND_URL)
// 2. Project config (.delega.yaml in current directory or parent)
// 3. User config (~/.config/delega/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
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
	v.BindEnv("anthropic.model", "DELEGA_MODEL")
	v.BindEnv("backend.url", "DELEGA_BACKEND_URL")
	v.BindEnv("roster.path", "DELEGA_ROSTER")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Pipeline.Timeout <= 0 {
		return &ValidationError{Field: "pipeline.timeout", Reason: "must be positive"}
	}
	if c.Pipeline.ShortlistSize < 1 {
		return &ValidationError{Field: "pipeline.shortlist_size", Reason: "must be at least 1"}
	}
	if c.Pipeline.MaxWorkload <= 0 || c.Pipeline.MaxWorkload > 100 {
		return &ValidationError{Field: "pipeline.max_workload", Reason: "must be in (0,100]"}
	}
	if c.Backend.Timeout < 0 {
		return &ValidationError{Field: "backend.timeout", Reason: "must not be negative"}
	}
	return nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.bedrock", cfg.Anthropic.UseAWSBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("backend.url", cfg.Backend.URL)
	v.Set("backend.timeout", cfg.Backend.Timeout.String())
	v.Set("roster.path", cfg.Roster.Path)
	v.Set("pipeline.timeout", cfg.Pipeline.Timeout.String())
	v.Set("pipeline.shortlist_size", cfg.Pipeline.ShortlistSize)
	v.Set("pipeline.max_workload", cfg.Pipeline.MaxWorkload)
	v.Set("pipeline.rule_based", cfg.Pipeline.RuleBased)
	v.Set("audit.path", cfg.Audit.Path)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if
// it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")

	v.SetDefault("backend.url", "")
	v.SetDefault("backend.timeout", "30s")

	v.SetDefault("roster.path", "")

	v.SetDefault("pipeline.timeout", "180s")
	v.SetDefault("pipeline.shortlist_size", 3)
	v.SetDefault("pipeline.max_workload", 90)
	v.SetDefault("pipeline.rule_based", false)

	v.SetDefault("audit.path", "")
}

// getUserConfigDir returns the XDG config directory for delega.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "delega")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "delega")
	}
	return filepath.Join(home, ".config", "delega")
}

// findProjectConfig searches for .delega.yaml in the current directory
// and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".delega.yaml")
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

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Timeout: 30 * time.Second,
		},
		Pipeline: PipelineConfig{
			Timeout:       180 * time.Second,
			ShortlistSize: 3,
			MaxWorkload:   90,
		},
	}
}
