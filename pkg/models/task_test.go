package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"
)

func TestMode_Valid(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		want bool
	}{
		{"sequential is valid", ModeSequential, true},
		{"parallel is valid", ModeParallel, true},
		{"conditional is valid", ModeConditional, true},
		{"dag is valid", ModeDAG, true},
		{"empty string is invalid", Mode(""), false},
		{"unknown mode is invalid", Mode("fanout"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mode.Valid(); got != tt.want {
				t.Errorf("Mode(%q).Valid() = %v, want %v", tt.mode, got, tt.want)
			}
		})
	}
}

func TestTask_Timeout(t *testing.T) {
	if got := (Task{}).Timeout(); got != 0 {
		t.Errorf("expected zero timeout, got %v", got)
	}
	if got := (Task{TimeoutMS: 1500}).Timeout(); got != 1500*time.Millisecond {
		t.Errorf("expected 1.5s, got %v", got)
	}
}

func TestStep_ResultKey(t *testing.T) {
	s := Step{Task: Task{ID: "search"}}
	if s.ResultKey() != "search" {
		t.Errorf("expected step ID as key, got %q", s.ResultKey())
	}
	s.OutputKey = "papers"
	if s.ResultKey() != "papers" {
		t.Errorf("expected output key, got %q", s.ResultKey())
	}
}

func TestRetryPolicy_Attempts(t *testing.T) {
	tests := []struct {
		policy RetryPolicy
		want   int
	}{
		{RetryPolicy{}, 1},
		{RetryPolicy{Kind: RetryNone, MaxRetries: 5}, 1},
		{RetryPolicy{Kind: RetryFixed, MaxRetries: 2}, 3},
		{RetryPolicy{Kind: RetryExponential, MaxRetries: 0}, 1},
	}
	for _, tt := range tests {
		if got := tt.policy.Attempts(); got != tt.want {
			t.Errorf("%+v.Attempts() = %d, want %d", tt.policy, got, tt.want)
		}
	}
}

func TestRetryPolicy_Delay(t *testing.T) {
	fixed := RetryPolicy{Kind: RetryFixed, MaxRetries: 3, DelayMS: 100}
	for attempt := 1; attempt <= 3; attempt++ {
		if got := fixed.Delay(attempt); got != 100*time.Millisecond {
			t.Errorf("fixed attempt %d: expected 100ms, got %v", attempt, got)
		}
	}

	exp := RetryPolicy{Kind: RetryExponential, MaxRetries: 3, DelayMS: 100}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	for i, w := range want {
		if got := exp.Delay(i + 1); got != w {
			t.Errorf("exponential attempt %d: expected %v, got %v", i+1, w, got)
		}
	}

	if got := (RetryPolicy{Kind: RetryNone, DelayMS: 100}).Delay(1); got != 0 {
		t.Errorf("expected no delay for none policy, got %v", got)
	}
}

func TestRetryPolicy_DelayIsCapped(t *testing.T) {
	tests := []struct {
		name    string
		policy  RetryPolicy
		attempt int
		want    time.Duration
	}{
		{"exponential large base", RetryPolicy{Kind: RetryExponential, DelayMS: 1 << 40}, 20, MaxRetryDelay},
		{"exponential many attempts", RetryPolicy{Kind: RetryExponential, DelayMS: 1000}, 100, MaxRetryDelay},
		{"exponential just under cap", RetryPolicy{Kind: RetryExponential, DelayMS: 1000}, 12, 2048 * time.Second},
		{"exponential crosses cap", RetryPolicy{Kind: RetryExponential, DelayMS: 1000}, 13, MaxRetryDelay},
		{"fixed huge", RetryPolicy{Kind: RetryFixed, DelayMS: math.MaxInt64}, 1, MaxRetryDelay},
		{"none huge", RetryPolicy{Kind: RetryNone, DelayMS: math.MaxInt64}, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.policy.Delay(tt.attempt)
			if got != tt.want {
				t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
			if got < 0 {
				t.Errorf("Delay(%d) wrapped negative: %v", tt.attempt, got)
			}
		})
	}
}

func TestWorkflow_JSONShape(t *testing.T) {
	raw := `{
		"name": "review",
		"mode": "dag",
		"steps": [
			{"id": "a", "prompt": "search", "agentRef": "searcher"},
			{"id": "b", "prompt": "analyze", "agentRef": "analyzer", "dependencies": ["a"], "stopOnFailure": true}
		],
		"retryPolicy": {"kind": "fixed", "maxRetries": 2, "delayMs": 10}
	}`

	var wf Workflow
	if err := json.Unmarshal([]byte(raw), &wf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wf.Mode != ModeDAG {
		t.Errorf("expected dag mode, got %q", wf.Mode)
	}
	if len(wf.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(wf.Steps))
	}
	b, ok := wf.Step("b")
	if !ok {
		t.Fatal("expected step b")
	}
	if b.AgentRef != "analyzer" || !b.StopOnFailure || len(b.Dependencies) != 1 {
		t.Errorf("step b decoded incorrectly: %+v", b)
	}
	if wf.RetryPolicy.Kind != RetryFixed || wf.RetryPolicy.MaxRetries != 2 {
		t.Errorf("retry policy decoded incorrectly: %+v", wf.RetryPolicy)
	}
}

func TestWorkflow_YAMLShape(t *testing.T) {
	raw := `
name: review
mode: conditional
steps:
  - id: a
    prompt: search
    agentRef: searcher
    condition: isFirst
  - id: b
    prompt: recover
    agentRef: fixer
    condition: hasFailures
`
	var wf Workflow
	if err := yaml.Unmarshal([]byte(raw), &wf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wf.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(wf.Steps))
	}
	if wf.Steps[0].ID != "a" || wf.Steps[0].Condition != ConditionIsFirst {
		t.Errorf("step a decoded incorrectly: %+v", wf.Steps[0])
	}
	if wf.Steps[1].Prompt != "recover" || wf.Steps[1].Condition != ConditionHasFailures {
		t.Errorf("step b decoded incorrectly: %+v", wf.Steps[1])
	}
}
