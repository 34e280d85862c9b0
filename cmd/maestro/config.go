package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/maestro/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify maestro configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/maestro/config.yaml
Project-specific overrides can be placed in .maestro.yaml
Environment variables override both, e.g. MAESTRO_PROVIDER_MODEL.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		switch len(args) {
		case 0:
			displayAllConfig(out, cfg)
			return nil
		case 1:
			value, err := getConfigValue(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, value)
			return nil
		default:
			if err := setConfigValue(cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(cfg); err != nil {
				return fmt.Errorf("saving config: %w", err)
			}
			fmt.Fprintf(out, "Set %s = %s\n", args[0], args[1])
			return nil
		}
	},
}

// configKeys lists every key in display order.
var configKeys = []string{
	"provider.name",
	"provider.model",
	"provider.api_key",
	"provider.base_url",
	"provider.max_tokens",
	"provider.aws_region",
	"provider.aws_profile",
	"execution.max_concurrent",
	"execution.task_timeout",
	"execution.retry_policy",
	"execution.max_retries",
	"execution.retry_delay",
	"execution.max_papers",
	"registry.dir",
	"registry.watch",
	"state.driver",
	"state.path",
	"logging.file",
	"logging.debug",
}

// displayAllConfig prints all configuration values.
func displayAllConfig(w io.Writer, cfg *config.Config) {
	for _, key := range configKeys {
		value, _ := getConfigValue(cfg, key)
		fmt.Fprintf(w, "%s: %s\n", key, value)
	}
}

// apiKeyDisplay masks the resolved key and names where it came from.
func apiKeyDisplay(cfg *config.Config) string {
	key, source, err := config.ResolveAPIKey(cfg.Provider)
	if err != nil {
		return "(not set)"
	}
	return fmt.Sprintf("%s (%s)", config.MaskAPIKey(key), source)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "provider.name":
		return cfg.Provider.Name, nil
	case "provider.model":
		return cfg.Provider.Model, nil
	case "provider.api_key":
		return apiKeyDisplay(cfg), nil
	case "provider.base_url":
		return cfg.Provider.BaseURL, nil
	case "provider.max_tokens":
		return strconv.Itoa(cfg.Provider.MaxTokens), nil
	case "provider.aws_region":
		return cfg.Provider.AWSRegion, nil
	case "provider.aws_profile":
		return cfg.Provider.AWSProfile, nil
	case "execution.max_concurrent":
		return strconv.Itoa(cfg.Execution.MaxConcurrent), nil
	case "execution.task_timeout":
		return cfg.Execution.TaskTimeout.String(), nil
	case "execution.retry_policy":
		return cfg.Execution.RetryPolicy, nil
	case "execution.max_retries":
		return strconv.Itoa(cfg.Execution.MaxRetries), nil
	case "execution.retry_delay":
		return cfg.Execution.RetryDelay.String(), nil
	case "execution.max_papers":
		return strconv.Itoa(cfg.Execution.MaxPapers), nil
	case "registry.dir":
		return cfg.Registry.Dir, nil
	case "registry.watch":
		return strconv.FormatBool(cfg.Registry.Watch), nil
	case "state.driver":
		return cfg.State.Driver, nil
	case "state.path":
		return cfg.State.Path, nil
	case "logging.file":
		return cfg.Logging.File, nil
	case "logging.debug":
		return strconv.FormatBool(cfg.Logging.Debug), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	var err error
	switch k := strings.ToLower(key); k {
	case "provider.name":
		cfg.Provider.Name = value
	case "provider.model":
		cfg.Provider.Model = value
	case "provider.api_key":
		if !strings.HasPrefix(value, "${") {
			if err := config.ValidateAPIKey(cfg.Provider.Name, value); err != nil {
				return err
			}
		}
		cfg.Provider.APIKey = value
	case "provider.base_url":
		cfg.Provider.BaseURL = value
	case "provider.max_tokens":
		cfg.Provider.MaxTokens, err = parseInt(k, value)
	case "provider.aws_region":
		cfg.Provider.AWSRegion = value
	case "provider.aws_profile":
		cfg.Provider.AWSProfile = value
	case "execution.max_concurrent":
		cfg.Execution.MaxConcurrent, err = parseInt(k, value)
	case "execution.task_timeout":
		cfg.Execution.TaskTimeout, err = parseDuration(k, value)
	case "execution.retry_policy":
		cfg.Execution.RetryPolicy = value
	case "execution.max_retries":
		cfg.Execution.MaxRetries, err = parseInt(k, value)
	case "execution.retry_delay":
		cfg.Execution.RetryDelay, err = parseDuration(k, value)
	case "execution.max_papers":
		cfg.Execution.MaxPapers, err = parseInt(k, value)
	case "registry.dir":
		cfg.Registry.Dir = value
	case "registry.watch":
		cfg.Registry.Watch, err = parseBool(k, value)
	case "state.driver":
		cfg.State.Driver = value
	case "state.path":
		cfg.State.Path = value
	case "logging.file":
		cfg.Logging.File = value
	case "logging.debug":
		cfg.Logging.Debug, err = parseBool(k, value)
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return err
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return n, nil
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid boolean for %s: %w", key, err)
	}
	return b, nil
}
