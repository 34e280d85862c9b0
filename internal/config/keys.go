package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New("no API key configured")

// ErrInsecurePermissions is returned when a credentials file is readable
// by anyone but its owner.
var ErrInsecurePermissions = errors.New("credentials file has insecure permissions")

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceEnv         KeySource = "environment"
	KeySourceConfig      KeySource = "config_file"
	KeySourceCredentials KeySource = "credentials_file"
	KeySourceNone        KeySource = "none"
)

// EnvVar returns the environment variable holding the key for a provider.
func EnvVar(provider string) string {
	switch provider {
	case ProviderAnthropic, ProviderBedrock:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return strings.ToUpper(strings.ReplaceAll(provider, "-", "_")) + "_API_KEY"
	}
}

// GetAPIKey returns the key for the configured provider.
// It checks in order: environment variable, config file, credentials.toml.
func GetAPIKey(p Provider) (string, error) {
	key, _, err := ResolveAPIKey(p)
	return key, err
}

// ResolveAPIKey is GetAPIKey that also reports where the key came from.
func ResolveAPIKey(p Provider) (string, KeySource, error) {
	if key := os.Getenv(EnvVar(p.Name)); key != "" {
		return key, KeySourceEnv, nil
	}

	if p.APIKey != "" {
		key := os.ExpandEnv(p.APIKey)
		if key != "" && !strings.HasPrefix(key, "${") {
			return key, KeySourceConfig, nil
		}
	}

	creds, _, err := LoadCredentials()
	if err != nil {
		return "", KeySourceNone, err
	}
	if key := creds.APIKey(p.Name); key != "" {
		return key, KeySourceCredentials, nil
	}

	return "", KeySourceNone, fmt.Errorf("%w for provider %s (set %s)", ErrNoAPIKey, p.Name, EnvVar(p.Name))
}

// ValidateAPIKey performs basic format checks on a key without contacting
// the provider.
func ValidateAPIKey(provider, key string) error {
	if key == "" {
		return ErrNoAPIKey
	}

	switch provider {
	case ProviderAnthropic:
		if !strings.HasPrefix(key, "sk-ant-") {
			return errors.New("invalid API key format: expected 'sk-ant-' prefix")
		}
	case ProviderOpenAI:
		if !strings.HasPrefix(key, "sk-") {
			return errors.New("invalid API key format: expected 'sk-' prefix")
		}
	}

	if len(key) < 20 {
		return errors.New("invalid API key format: key too short")
	}

	return nil
}

// MaskAPIKey returns a masked version of the API key for display.
// Shows the first 7 characters and last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}

	if len(key) <= 15 {
		return "***"
	}

	return key[:7] + "..." + key[len(key)-4:]
}

// Credentials holds per-provider keys from credentials.toml. A [default]
// section applies to providers without their own.
type Credentials struct {
	keys map[string]string
}

// APIKey returns the key for provider, falling back to [default].
// A nil receiver has no keys.
func (c *Credentials) APIKey(provider string) string {
	if c == nil {
		return ""
	}
	if key := c.keys[provider]; key != "" {
		return key
	}
	return c.keys["default"]
}

// CredentialsPaths returns the credential file locations in priority order.
func CredentialsPaths() []string {
	paths := []string{"credentials.toml", filepath.Join(getUserConfigDir(), "credentials.toml")}
	return paths
}

// LoadCredentials reads the first credentials file found. No file is not
// an error; it returns nil credentials and an empty path.
func LoadCredentials() (*Credentials, string, error) {
	for _, path := range CredentialsPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		creds, err := LoadCredentialsFile(path)
		if err != nil {
			return nil, path, err
		}
		return creds, path, nil
	}
	return nil, "", nil
}

// LoadCredentialsFile reads a credentials file. On Unix the file must be
// mode 0400.
func LoadCredentialsFile(path string) (*Credentials, error) {
	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if mode := info.Mode().Perm(); mode != 0400 {
			return nil, fmt.Errorf("%w: %s has mode %04o (must be 0400)", ErrInsecurePermissions, path, mode)
		}
	}

	var raw map[string]struct {
		APIKey string `toml:"api_key"`
	}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	creds := &Credentials{keys: make(map[string]string, len(raw))}
	for section, v := range raw {
		if v.APIKey != "" {
			creds.keys[section] = v.APIKey
		}
	}
	return creds, nil
}
