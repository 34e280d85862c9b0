package api

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/maestro/internal/agent"
	"github.com/ShayCichocki/maestro/internal/config"
)

// Default models used when the provider config leaves Model empty.
const (
	DefaultOpenAIModel = "gpt-4o"
	DefaultGeminiModel = "gemini-2.0-flash"
)

// Tracked is implemented by executors that count tokens.
type Tracked interface {
	Tracker() *TokenTracker
}

// NewExecutor builds the executor for the configured provider. API keys
// are resolved through config.GetAPIKey; bedrock uses AWS credentials.
func NewExecutor(ctx context.Context, p config.Provider) (agent.Executor, error) {
	switch p.Name {
	case config.ProviderAnthropic, "":
		key, err := config.GetAPIKey(p)
		if err != nil {
			return nil, err
		}
		client, err := NewClient(ClientConfig{
			Model:   anthropic.Model(p.Model),
			APIKey:  key,
			BaseURL: p.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		return NewAnthropicExecutor(client, p.MaxTokens), nil

	case config.ProviderBedrock:
		client, err := NewClient(ClientConfig{
			Model:         anthropic.Model(p.Model),
			UseAWSBedrock: true,
			AWSRegion:     p.AWSRegion,
			AWSProfile:    p.AWSProfile,
		})
		if err != nil {
			return nil, err
		}
		return NewAnthropicExecutor(client, p.MaxTokens), nil

	case config.ProviderOpenAI:
		key, err := config.GetAPIKey(p)
		if err != nil {
			return nil, err
		}
		exec, err := NewOpenAIExecutor(OpenAIConfig{
			APIKey:    key,
			BaseURL:   p.BaseURL,
			Model:     orDefault(p.Model, DefaultOpenAIModel),
			MaxTokens: p.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return exec, nil

	case config.ProviderGemini:
		key, err := config.GetAPIKey(p)
		if err != nil {
			return nil, err
		}
		exec, err := NewGeminiExecutor(ctx, GeminiConfig{
			APIKey:    key,
			Model:     orDefault(p.Model, DefaultGeminiModel),
			MaxTokens: p.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return exec, nil

	default:
		return nil, fmt.Errorf("unknown provider %q", p.Name)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
