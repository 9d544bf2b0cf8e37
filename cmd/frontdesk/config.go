package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yamagen/frontdesk/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify frontdesk configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/frontdesk/config.yaml
Project-specific overrides can be placed in ` + config.ProjectConfigName,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
			return nil
		case 1:
			return displayConfigKey(cfg, args[0])
		default:
			return setConfigKey(cfg, args[0], args[1])
		}
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a project config template",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(config.ProjectConfigName); err == nil {
			return fmt.Errorf("%s already exists", config.ProjectConfigName)
		}
		if err := writeProjectTemplate(config.ProjectConfigName); err != nil {
			return err
		}
		fmt.Printf("%s Created %s\n", color.GreenString("✓"), config.ProjectConfigName)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}

// projectTemplate is the commented starting point written by config init.
// Keyword lists left empty fall back to the built-in sets.
type projectTemplate struct {
	Anthropic struct {
		Model string `yaml:"model"`
	} `yaml:"anthropic"`
	Ledger struct {
		JPYPerUSD float64 `yaml:"jpy_per_usd"`
	} `yaml:"ledger"`
	Paths struct {
		AgentsFile   string `yaml:"agents_file"`
		TranscriptDB string `yaml:"transcript_db"`
	} `yaml:"paths"`
	Vocabulary struct {
		Cancel      []string `yaml:"cancel"`
		Affirmative []string `yaml:"affirmative"`
		Finalize    []string `yaml:"finalize"`
		Back        []string `yaml:"back"`
	} `yaml:"vocabulary"`
}

func writeProjectTemplate(path string) error {
	var tpl projectTemplate
	tpl.Anthropic.Model = "claude-haiku-4-5-20251001"
	tpl.Ledger.JPYPerUSD = 150

	body, err := yaml.Marshal(&tpl)
	if err != nil {
		return fmt.Errorf("render config template: %w", err)
	}

	header := "# frontdesk project configuration\n" +
		"# Overrides ~/.config/frontdesk/config.yaml for this directory tree.\n" +
		"# Empty vocabulary lists keep the built-in keywords.\n"
	return os.WriteFile(path, append([]byte(header), body...), 0644)
}

func displayAllConfig(cfg *config.Config) {
	apiKeyDisplay := "(not set)"
	if cfg.Anthropic.APIKey != "" {
		apiKeyDisplay = "****"
	}

	fmt.Printf("anthropic.api_key: %s\n", apiKeyDisplay)
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.use_aws_bedrock: %t\n", cfg.Anthropic.UseAWSBedrock)
	fmt.Printf("ledger.jpy_per_usd: %.2f\n", cfg.Ledger.JPYPerUSD)
	fmt.Printf("timeouts.phase: %s\n", cfg.Timeouts.Phase)
	fmt.Printf("timeouts.classify: %s\n", cfg.Timeouts.Classify)
	fmt.Printf("paths.history_db: %s\n", orDefault(cfg.Paths.HistoryDB, "(default)"))
	fmt.Printf("paths.transcript_db: %s\n", orDefault(cfg.Paths.TranscriptDB, "(disabled)"))
	fmt.Printf("paths.agents_file: %s\n", orDefault(cfg.Paths.AgentsFile, "(built-in catalog)"))
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func displayConfigKey(cfg *config.Config, key string) error {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}

func setConfigKey(cfg *config.Config, key, value string) error {
	if err := setConfigValue(cfg, key, value); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Set %s = %s\n", key, value)
	return nil
}

func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		if cfg.Anthropic.APIKey == "" {
			return "(not set)", nil
		}
		return "****", nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.use_aws_bedrock":
		return fmt.Sprintf("%t", cfg.Anthropic.UseAWSBedrock), nil
	case "ledger.jpy_per_usd":
		return fmt.Sprintf("%.2f", cfg.Ledger.JPYPerUSD), nil
	case "timeouts.phase":
		return cfg.Timeouts.Phase.String(), nil
	case "timeouts.classify":
		return cfg.Timeouts.Classify.String(), nil
	case "paths.history_db":
		return cfg.Paths.HistoryDB, nil
	case "paths.transcript_db":
		return cfg.Paths.TranscriptDB, nil
	case "paths.agents_file":
		return cfg.Paths.AgentsFile, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_aws_bedrock":
		cfg.Anthropic.UseAWSBedrock = value == "true"
	case "ledger.jpy_per_usd":
		var rate float64
		if _, err := fmt.Sscanf(value, "%f", &rate); err != nil || rate <= 0 {
			return fmt.Errorf("invalid rate for jpy_per_usd: %q", value)
		}
		cfg.Ledger.JPYPerUSD = rate
	case "timeouts.phase":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for timeouts.phase: %w", err)
		}
		cfg.Timeouts.Phase = d
	case "timeouts.classify":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for timeouts.classify: %w", err)
		}
		cfg.Timeouts.Classify = d
	case "paths.history_db":
		cfg.Paths.HistoryDB = value
	case "paths.transcript_db":
		cfg.Paths.TranscriptDB = value
	case "paths.agents_file":
		cfg.Paths.AgentsFile = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
