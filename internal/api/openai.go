package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/ShayCichocki/maestro/internal/agent"
)

// OpenAIConfig holds configuration for the OpenAI executor.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string // Optional custom endpoint
	Model     string
	MaxTokens int
}

// OpenAIExecutor runs agent requests as chat completions.
type OpenAIExecutor struct {
	client    openai.Client
	model     string
	maxTokens int64
	tracker   *TokenTracker
}

// NewOpenAIExecutor creates an executor using the official SDK.
func NewOpenAIExecutor(cfg OpenAIConfig) (*OpenAIExecutor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api_key is required for openai")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required for openai")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIExecutor{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
		tracker:   NewTokenTracker(PricingFor(cfg.Model)),
	}, nil
}

// Tracker returns the executor's token tracker.
func (e *OpenAIExecutor) Tracker() *TokenTracker {
	return e.tracker
}

// Execute implements agent.Executor.
func (e *OpenAIExecutor) Execute(ctx context.Context, req agent.Request) (*agent.Response, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     shared.ChatModel(e.model),
		Messages:  messages,
		MaxTokens: openai.Int(e.maxTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("openai request: %w", err)
	}
	e.tracker.Add(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, errors.New("openai response contained no text")
	}

	return &agent.Response{
		Content:      resp.Choices[0].Message.Content,
		Raw:          resp,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}
