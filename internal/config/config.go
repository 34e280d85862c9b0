// Package config handles configuration loading and management for maestro.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ShayCichocki/maestro/pkg/models"
)

// ProjectFile is the per-project override file name.
const ProjectFile = ".maestro.yaml"

// Provider names accepted in provider.name.
const (
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

// Config holds all configuration for maestro.
type Config struct {
	Provider  Provider        `mapstructure:"provider"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	State     StateConfig     `mapstructure:"state"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// Provider selects the LLM backend that agents run on.
type Provider struct {
	// Name is one of anthropic, bedrock, openai or gemini.
	Name string `mapstructure:"name"`
	// Model defaults per provider when empty.
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	MaxTokens int    `mapstructure:"max_tokens"`
	// AWSRegion and AWSProfile are used by the bedrock provider only.
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// ExecutionConfig holds scheduler and subagent settings.
type ExecutionConfig struct {
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	TaskTimeout   time.Duration `mapstructure:"task_timeout"`
	RetryPolicy   string        `mapstructure:"retry_policy"`
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	// MaxPapers caps literature search results per review.
	MaxPapers int `mapstructure:"max_papers"`
}

// Retry converts the retry settings into a policy.
func (e ExecutionConfig) Retry() models.RetryPolicy {
	return models.RetryPolicy{
		Kind:       models.RetryKind(e.RetryPolicy),
		MaxRetries: e.MaxRetries,
		DelayMS:    e.RetryDelay.Milliseconds(),
	}
}

// RegistryConfig points at agent definition files.
type RegistryConfig struct {
	Dir   string `mapstructure:"dir"`
	Watch bool   `mapstructure:"watch"`
}

// StateConfig holds the snapshot archive settings.
type StateConfig struct {
	// Driver is "sqlite" (pure Go) or "sqlite3" (cgo).
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// LoggingConfig holds debug log settings.
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Debug bool   `mapstructure:"debug"`
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	switch c.Provider.Name {
	case ProviderAnthropic, ProviderBedrock, ProviderOpenAI, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider.Name))
	}
	if c.Execution.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("execution.max_concurrent must be at least 1, got %d", c.Execution.MaxConcurrent))
	}
	if !models.RetryKind(c.Execution.RetryPolicy).Valid() {
		errs = append(errs, fmt.Errorf("unknown retry policy %q", c.Execution.RetryPolicy))
	}
	if c.Execution.MaxRetries < 0 {
		errs = append(errs, errors.New("execution.max_retries must not be negative"))
	}
	switch c.State.Driver {
	case "sqlite", "sqlite3":
	default:
		errs = append(errs, fmt.Errorf("unknown state driver %q", c.State.Driver))
	}
	return errors.Join(errs...)
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (MAESTRO_SECTION_KEY, e.g. MAESTRO_PROVIDER_MODEL)
// 2. Project config (.maestro.yaml in current directory or parent)
// 3. User config (~/.config/maestro/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	return decode(v)
}

// LoadFromPath loads configuration from a specific path. Environment
// variables still take precedence over the file.
func LoadFromPath(path string) (*Config, error) {
	v := newViper()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	return decode(v)
}

// Save writes cfg to the user config file.
func Save(cfg *Config) error {
	return SaveTo(cfg, GetUserConfigPath())
}

// SaveTo writes cfg as YAML to path, creating parent directories.
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("provider.name", cfg.Provider.Name)
	v.Set("provider.model", cfg.Provider.Model)
	v.Set("provider.api_key", cfg.Provider.APIKey)
	v.Set("provider.base_url", cfg.Provider.BaseURL)
	v.Set("provider.max_tokens", cfg.Provider.MaxTokens)
	v.Set("provider.aws_region", cfg.Provider.AWSRegion)
	v.Set("provider.aws_profile", cfg.Provider.AWSProfile)
	v.Set("execution.max_concurrent", cfg.Execution.MaxConcurrent)
	v.Set("execution.task_timeout", cfg.Execution.TaskTimeout.String())
	v.Set("execution.retry_policy", cfg.Execution.RetryPolicy)
	v.Set("execution.max_retries", cfg.Execution.MaxRetries)
	v.Set("execution.retry_delay", cfg.Execution.RetryDelay.String())
	v.Set("execution.max_papers", cfg.Execution.MaxPapers)
	v.Set("registry.dir", cfg.Registry.Dir)
	v.Set("registry.watch", cfg.Registry.Watch)
	v.Set("state.driver", cfg.State.Driver)
	v.Set("state.path", cfg.State.Path)
	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.debug", cfg.Logging.Debug)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// DefaultStatePath is where the snapshot archive lives unless configured.
func DefaultStatePath() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "maestro", "maestro.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".maestro", "maestro.db")
	}
	return filepath.Join(home, ".local", "share", "maestro", "maestro.db")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MAESTRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Provider.APIKey = expandEnv(cfg.Provider.APIKey)
	cfg.Registry.Dir = expandEnv(cfg.Registry.Dir)
	cfg.State.Path = expandEnv(cfg.State.Path)
	cfg.Logging.File = expandEnv(cfg.Logging.File)
	if cfg.State.Path == "" {
		cfg.State.Path = DefaultStatePath()
	}

	return cfg, nil
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("provider.name", d.Provider.Name)
	v.SetDefault("provider.model", d.Provider.Model)
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.max_tokens", d.Provider.MaxTokens)
	v.SetDefault("provider.aws_region", "")
	v.SetDefault("provider.aws_profile", "")

	v.SetDefault("execution.max_concurrent", d.Execution.MaxConcurrent)
	v.SetDefault("execution.task_timeout", d.Execution.TaskTimeout.String())
	v.SetDefault("execution.retry_policy", d.Execution.RetryPolicy)
	v.SetDefault("execution.max_retries", d.Execution.MaxRetries)
	v.SetDefault("execution.retry_delay", d.Execution.RetryDelay.String())
	v.SetDefault("execution.max_papers", d.Execution.MaxPapers)

	v.SetDefault("registry.dir", "")
	v.SetDefault("registry.watch", false)

	v.SetDefault("state.driver", d.State.Driver)
	v.SetDefault("state.path", "")

	v.SetDefault("logging.file", "")
	v.SetDefault("logging.debug", false)
}

// getUserConfigDir returns the XDG config directory for maestro.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "maestro")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "maestro")
	}
	return filepath.Join(home, ".config", "maestro")
}

// findProjectConfig searches for .maestro.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ProjectFile)
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

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Provider: Provider{
			Name:      ProviderAnthropic,
			MaxTokens: 8192,
		},
		Execution: ExecutionConfig{
			MaxConcurrent: 3,
			TaskTimeout:   5 * time.Minute,
			RetryPolicy:   string(models.RetryNone),
			RetryDelay:    time.Second,
			MaxPapers:     8,
		},
		State: StateConfig{
			Driver: "sqlite",
			Path:   DefaultStatePath(),
		},
	}
}
