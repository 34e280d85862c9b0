package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/generative-ai-go/genai"

	"github.com/ShayCichocki/maestro/internal/agent"
	"github.com/ShayCichocki/maestro/internal/config"
)

func TestNewClient_WithAPIKey(t *testing.T) {
	cfg := ClientConfig{
		APIKey: "test-key-123",
		Model:  anthropic.ModelClaudeSonnet4_20250514,
	}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if client.Model() != anthropic.ModelClaudeSonnet4_20250514 {
		t.Errorf("Model = %q, want %q", client.Model(), anthropic.ModelClaudeSonnet4_20250514)
	}

	if client.Tracker() == nil {
		t.Error("Tracker should not be nil")
	}
}

func TestNewClient_WithEnvVar(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-test-key")

	if _, err := NewClient(ClientConfig{}); err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
}

func TestNewClient_NoAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := NewClient(ClientConfig{})
	if err == nil {
		t.Fatal("NewClient should fail without API key")
	}

	expected := "ANTHROPIC_API_KEY environment variable is not set"
	if err.Error() != expected {
		t.Errorf("Error = %q, want %q", err.Error(), expected)
	}
}

func TestNewClient_DefaultModel(t *testing.T) {
	client, err := NewClient(ClientConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if client.Model() != anthropic.ModelClaudeSonnet4_20250514 {
		t.Errorf("Expected model %s, got %s", anthropic.ModelClaudeSonnet4_20250514, client.Model())
	}
}

func TestTranslateModelForBedrock(t *testing.T) {
	tests := []struct {
		in   anthropic.Model
		want anthropic.Model
	}{
		{anthropic.ModelClaudeSonnet4_20250514, "us.anthropic.claude-sonnet-4-20250514-v1:0"},
		{anthropic.ModelClaude3_5Haiku20241022, "us.anthropic.claude-3-5-haiku-20241022-v1:0"},
		{"us.anthropic.custom-v1:0", "us.anthropic.custom-v1:0"},
	}
	for _, tt := range tests {
		if got := translateModelForBedrock(tt.in); got != tt.want {
			t.Errorf("translateModelForBedrock(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	direct, err := NewClient(ClientConfig{APIKey: "k"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if got := direct.TranslateModel(anthropic.ModelClaudeSonnet4_20250514); got != anthropic.ModelClaudeSonnet4_20250514 {
		t.Errorf("direct client should not translate, got %q", got)
	}
}

func TestNewClient_Bedrock(t *testing.T) {
	if os.Getenv("AWS_REGION") == "" && os.Getenv("AWS_DEFAULT_REGION") == "" {
		t.Skip("AWS_REGION not set, skipping Bedrock test")
	}

	client, err := NewClient(ClientConfig{
		UseAWSBedrock: true,
		AWSRegion:     "us-west-2",
		Model:         anthropic.ModelClaudeSonnet4_20250514,
	})
	if err != nil {
		t.Fatalf("NewClient with Bedrock failed: %v", err)
	}

	if client.Model() != "us.anthropic.claude-sonnet-4-20250514-v1:0" {
		t.Errorf("expected Bedrock profile, got %q", client.Model())
	}
}

func TestAnthropicExecutor_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "be terse") {
			t.Errorf("expected system prompt in request, got %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "msg_1", "type": "message", "role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "hello "}, {"type": "text", "text": "world"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 3}
		}`)
	}))
	defer srv.Close()

	client, err := NewClient(ClientConfig{APIKey: "test-key", BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	exec := NewAnthropicExecutor(client, 0)

	resp, err := exec.Execute(context.Background(), agent.Request{Prompt: "hi", System: "be terse"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello world" {
		t.Errorf("expected joined text, got %q", resp.Content)
	}
	if resp.InputTokens != 12 || resp.OutputTokens != 3 {
		t.Errorf("unexpected usage: %d/%d", resp.InputTokens, resp.OutputTokens)
	}
	if in, out := exec.Tracker().Total(); in != 12 || out != 3 || exec.Tracker().Calls() != 1 {
		t.Errorf("expected tracked usage, got %d/%d", in, out)
	}
}

func TestAnthropicExecutor_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)
	}))
	defer srv.Close()

	client, err := NewClient(ClientConfig{APIKey: "test-key", BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = NewAnthropicExecutor(client, 100).Execute(context.Background(), agent.Request{Prompt: "hi"})
	if err == nil || !strings.Contains(err.Error(), "anthropic request") {
		t.Errorf("expected wrapped request error, got %v", err)
	}
}

func TestOpenAIExecutor_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "system") || !strings.Contains(string(body), "translate") {
			t.Errorf("expected system message, got %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "bonjour"}}],
			"usage": {"prompt_tokens": 7, "completion_tokens": 2, "total_tokens": 9}
		}`)
	}))
	defer srv.Close()

	exec, err := NewOpenAIExecutor(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := exec.Execute(context.Background(), agent.Request{Prompt: "hello in French", System: "translate"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "bonjour" || resp.Model != "gpt-4o" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if in, out := exec.Tracker().Total(); in != 7 || out != 2 {
		t.Errorf("expected tracked usage, got %d/%d", in, out)
	}
}

func TestNewOpenAIExecutor_RequiresFields(t *testing.T) {
	if _, err := NewOpenAIExecutor(OpenAIConfig{Model: "gpt-4o"}); err == nil {
		t.Error("expected error without api key")
	}
	if _, err := NewOpenAIExecutor(OpenAIConfig{APIKey: "sk-test"}); err == nil {
		t.Error("expected error without model")
	}
}

func TestNewGeminiExecutor_RequiresFields(t *testing.T) {
	if _, err := NewGeminiExecutor(context.Background(), GeminiConfig{Model: "gemini-2.0-flash"}); err == nil {
		t.Error("expected error without api key")
	}
	if _, err := NewGeminiExecutor(context.Background(), GeminiConfig{APIKey: "k"}); err == nil {
		t.Error("expected error without model")
	}
}

func TestGeminiText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("one "), genai.Blob{MIMEType: "image/png"}, genai.Text("two")}},
		}},
	}
	if got := geminiText(resp); got != "one two" {
		t.Errorf("geminiText() = %q, want %q", got, "one two")
	}
	if got := geminiText(&genai.GenerateContentResponse{}); got != "" {
		t.Errorf("expected empty text for no candidates, got %q", got)
	}
}

func TestNewExecutor(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	t.Run("unknown provider", func(t *testing.T) {
		if _, err := NewExecutor(context.Background(), config.Provider{Name: "llama"}); err == nil {
			t.Error("expected error for unknown provider")
		}
	})

	t.Run("missing key", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")
		_, err := NewExecutor(context.Background(), config.Provider{Name: config.ProviderAnthropic})
		if !errors.Is(err, config.ErrNoAPIKey) {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})

	t.Run("openai with default model", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-test-key")
		exec, err := NewExecutor(context.Background(), config.Provider{Name: config.ProviderOpenAI})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		oe, ok := exec.(*OpenAIExecutor)
		if !ok || oe.model != DefaultOpenAIModel {
			t.Errorf("expected OpenAI executor with default model, got %T", exec)
		}
		if _, ok := exec.(Tracked); !ok {
			t.Error("expected executor to track tokens")
		}
	})

	t.Run("anthropic", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
		exec, err := NewExecutor(context.Background(), config.Provider{Name: config.ProviderAnthropic, MaxTokens: 256})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ae, ok := exec.(*AnthropicExecutor)
		if !ok || ae.maxTokens != 256 {
			t.Errorf("expected Anthropic executor with max tokens, got %T", exec)
		}
	})
}
