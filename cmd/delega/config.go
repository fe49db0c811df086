package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/delega/delega/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify delega configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/delega/config.yaml
Project-specific overrides can be placed in .delega.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	key, source, _ := config.ResolveAPIKey(cfg)
	fmt.Printf("anthropic.api_key: %s (source: %s)\n", config.MaskAPIKey(key), source)
	fmt.Printf("anthropic.model: %s\n", orUnset(cfg.Anthropic.Model))
	fmt.Printf("anthropic.bedrock: %t\n", cfg.Anthropic.UseAWSBedrock)
	fmt.Printf("anthropic.aws_region: %s\n", orUnset(cfg.Anthropic.AWSRegion))
	fmt.Printf("anthropic.aws_profile: %s\n", orUnset(cfg.Anthropic.AWSProfile))
	fmt.Printf("backend.url: %s\n", orUnset(cfg.Backend.URL))
	fmt.Printf("backend.timeout: %s\n", cfg.Backend.Timeout)
	fmt.Printf("roster.path: %s\n", orUnset(cfg.Roster.Path))
	fmt.Printf("pipeline.timeout: %s\n", cfg.Pipeline.Timeout)
	fmt.Printf("pipeline.shortlist_size: %d\n", cfg.Pipeline.ShortlistSize)
	fmt.Printf("pipeline.max_workload: %.0f\n", cfg.Pipeline.MaxWorkload)
	fmt.Printf("pipeline.rule_based: %t\n", cfg.Pipeline.RuleBased)
	fmt.Printf("audit.path: %s\n", orUnset(cfg.Audit.Path))
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		key, _, _ := config.ResolveAPIKey(cfg)
		return config.MaskAPIKey(key), nil
	case "anthropic.model":
		return orUnset(cfg.Anthropic.Model), nil
	case "anthropic.bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseAWSBedrock), nil
	case "anthropic.aws_region":
		return orUnset(cfg.Anthropic.AWSRegion), nil
	case "anthropic.aws_profile":
		return orUnset(cfg.Anthropic.AWSProfile), nil
	case "backend.url":
		return orUnset(cfg.Backend.URL), nil
	case "backend.timeout":
		return cfg.Backend.Timeout.String(), nil
	case "roster.path":
		return orUnset(cfg.Roster.Path), nil
	case "pipeline.timeout":
		return cfg.Pipeline.Timeout.String(), nil
	case "pipeline.shortlist_size":
		return strconv.Itoa(cfg.Pipeline.ShortlistSize), nil
	case "pipeline.max_workload":
		return strconv.FormatFloat(cfg.Pipeline.MaxWorkload, 'f', -1, 64), nil
	case "pipeline.rule_based":
		return strconv.FormatBool(cfg.Pipeline.RuleBased), nil
	case "audit.path":
		return orUnset(cfg.Audit.Path), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for anthropic.bedrock: %w", err)
		}
		cfg.Anthropic.UseAWSBedrock = b
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		cfg.Anthropic.AWSProfile = value
	case "backend.url":
		cfg.Backend.URL = value
	case "backend.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for backend.timeout: %w", err)
		}
		cfg.Backend.Timeout = d
	case "roster.path":
		cfg.Roster.Path = value
	case "pipeline.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for pipeline.timeout: %w", err)
		}
		cfg.Pipeline.Timeout = d
	case "pipeline.shortlist_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for pipeline.shortlist_size: %w", err)
		}
		cfg.Pipeline.ShortlistSize = n
	case "pipeline.max_workload":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for pipeline.max_workload: %w", err)
		}
		cfg.Pipeline.MaxWorkload = f
	case "pipeline.rule_based":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for pipeline.rule_based: %w", err)
		}
		cfg.Pipeline.RuleBased = b
	case "audit.path":
		cfg.Audit.Path = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return cfg.Validate()
}
