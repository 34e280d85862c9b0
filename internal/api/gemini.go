package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/ShayCichocki/maestro/internal/agent"
)

// GeminiConfig holds configuration for the Gemini executor.
type GeminiConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
}

// GeminiExecutor runs agent requests against Google Gemini.
type GeminiExecutor struct {
	client    *genai.Client
	model     string
	maxTokens int32
	tracker   *TokenTracker
}

// NewGeminiExecutor creates an executor using the official SDK. Call Close
// when done.
func NewGeminiExecutor(ctx context.Context, cfg GeminiConfig) (*GeminiExecutor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api_key is required for gemini")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required for gemini")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiExecutor{
		client:    client,
		model:     cfg.Model,
		maxTokens: int32(cfg.MaxTokens),
		tracker:   NewTokenTracker(PricingFor(cfg.Model)),
	}, nil
}

// Close closes the underlying client.
func (e *GeminiExecutor) Close() error {
	return e.client.Close()
}

// Tracker returns the executor's token tracker.
func (e *GeminiExecutor) Tracker() *TokenTracker {
	return e.tracker
}

// Execute implements agent.Executor. Each call gets its own model handle
// because the system instruction is set per request.
func (e *GeminiExecutor) Execute(ctx context.Context, req agent.Request) (*agent.Response, error) {
	model := e.client.GenerativeModel(e.model)
	maxTokens := e.maxTokens
	model.MaxOutputTokens = &maxTokens
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}

	resp, err := model.StartChat().SendMessage(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}

	var in, out int64
	if resp.UsageMetadata != nil {
		in = int64(resp.UsageMetadata.PromptTokenCount)
		out = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	e.tracker.Add(in, out)

	content := geminiText(resp)
	if content == "" {
		return nil, errors.New("gemini response contained no text")
	}

	return &agent.Response{
		Content:      content,
		Raw:          resp,
		Model:        e.model,
		InputTokens:  in,
		OutputTokens: out,
	}, nil
}

// geminiText joins the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}
