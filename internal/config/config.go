// Package config handles configuration loading for frontdesk.
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

// Config holds all configuration for frontdesk.
type Config struct {
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Timeouts   TimeoutsConfig   `mapstructure:"timeouts"`
	Paths      PathsConfig      `mapstructure:"paths"`
	Vocabulary VocabularyConfig `mapstructure:"vocabulary"`
}

// AnthropicConfig holds Anthropic API settings for the intent classifier.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key. Usually set via ANTHROPIC_API_KEY.
	APIKey string `mapstructure:"api_key"`
	// Model is the model used for intent classification.
	Model string `mapstructure:"model"`
	// UseAWSBedrock routes classifier calls through AWS Bedrock.
	UseAWSBedrock bool `mapstructure:"use_aws_bedrock"`
	// AWSRegion is the Bedrock region (e.g. "us-west-2").
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the optional AWS profile name.
	AWSProfile string `mapstructure:"aws_profile"`
}

// LedgerConfig holds cost accounting settings.
type LedgerConfig struct {
	// JPYPerUSD is the fixed conversion rate for history records.
	JPYPerUSD float64 `mapstructure:"jpy_per_usd"`
}

// TimeoutsConfig holds timeout ceilings for external calls.
type TimeoutsConfig struct {
	// Phase bounds a single phase executor call; expiry surfaces as an
	// errored task rather than a hang.
	Phase time.Duration `mapstructure:"phase"`
	// Classify bounds an intent classifier call.
	Classify time.Duration `mapstructure:"classify"`
}

// PathsConfig holds data file locations.
type PathsConfig struct {
	// HistoryDB is the per-agent run history database.
	HistoryDB string `mapstructure:"history_db"`
	// TranscriptDB is the conversation transcript archive. Empty disables it.
	TranscriptDB string `mapstructure:"transcript_db"`
	// AgentsFile is an optional agent catalog YAML overriding the built-ins.
	AgentsFile string `mapstructure:"agents_file"`
}

// VocabularyConfig holds the keyword sets recognized by the state machine.
// Empty lists fall back to the built-in defaults.
type VocabularyConfig struct {
	Cancel      []string `mapstructure:"cancel"`
	Affirmative []string `mapstructure:"affirmative"`
	Negative    []string `mapstructure:"negative"`
	Finalize    []string `mapstructure:"finalize"`
	Back        []string `mapstructure:"back"`
	Help        []string `mapstructure:"help"`
}

// ProjectConfigName is the project-level config file name.
const ProjectConfigName = ".frontdesk.yaml"

// Load loads configuration with the following precedence (highest first):
// environment variables, project config (.frontdesk.yaml), user config
// (~/.config/frontdesk/config.yaml), built-in defaults.
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

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for tests).
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
	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_aws_bedrock", cfg.Anthropic.UseAWSBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("ledger.jpy_per_usd", cfg.Ledger.JPYPerUSD)
	v.Set("timeouts.phase", cfg.Timeouts.Phase.String())
	v.Set("timeouts.classify", cfg.Timeouts.Classify.String())
	v.Set("paths.history_db", cfg.Paths.HistoryDB)
	v.Set("paths.transcript_db", cfg.Paths.TranscriptDB)
	v.Set("paths.agents_file", cfg.Paths.AgentsFile)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the project config path, or "" when none is
// found in the working directory or its parents.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("ledger.jpy_per_usd", 150.0)
	v.SetDefault("timeouts.phase", 10*time.Minute)
	v.SetDefault("timeouts.classify", 30*time.Second)
	v.SetDefault("paths.history_db", "")
	v.SetDefault("paths.transcript_db", "")
	v.SetDefault("paths.agents_file", "")
}

// getUserConfigDir returns the XDG config directory for frontdesk.
func getUserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "frontdesk")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "frontdesk")
}

// findProjectConfig walks up from the working directory looking for a
// project config file.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ProjectConfigName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
