package scheduler

import (
	"path/filepath"
	"testing"

	"github.com/ShayCichocki/maestro/pkg/models"
)

func TestParseWorkflow_YAML(t *testing.T) {
	data := []byte(`
name: review
mode: dag
retryPolicy:
  kind: exponential
  maxRetries: 2
  delayMs: 500
steps:
  - id: search
    agentRef: literature-search
    prompt: find papers on sleep
    timeoutMs: 60000
  - id: synthesize
    agentRef: synthesizer
    prompt: summarize
    dependencies: [search]
    stopOnFailure: true
    outputKey: summary
`)
	wf, err := ParseWorkflow(data, FormatYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wf.Mode != models.ModeDAG || len(wf.Steps) != 2 {
		t.Fatalf("unexpected workflow: %+v", wf)
	}
	s := wf.Steps[1]
	if s.ID != "synthesize" || s.AgentRef != "synthesizer" || !s.StopOnFailure || s.ResultKey() != "summary" {
		t.Errorf("unexpected step: %+v", s)
	}
	if len(s.Dependencies) != 1 || s.Dependencies[0] != "search" {
		t.Errorf("expected dependency on search, got %v", s.Dependencies)
	}
	if wf.Steps[0].TimeoutMS != 60000 {
		t.Errorf("expected timeout 60000, got %d", wf.Steps[0].TimeoutMS)
	}
	if wf.RetryPolicy.Kind != models.RetryExponential || wf.RetryPolicy.MaxRetries != 2 {
		t.Errorf("unexpected retry policy: %+v", wf.RetryPolicy)
	}
	if r := Validate(wf); !r.Valid {
		t.Errorf("expected parsed workflow to validate, got %v", r.Errors)
	}
}

func TestParseWorkflow_JSON(t *testing.T) {
	data := []byte(`{"name": "fan", "mode": "parallel", "steps": [
		{"id": "a", "agentRef": "x", "prompt": "p", "condition": "has:seed"}
	]}`)
	wf, err := ParseWorkflow(data, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wf.Steps[0].Condition != "has:seed" || wf.Steps[0].Prompt != "p" {
		t.Errorf("unexpected step: %+v", wf.Steps[0])
	}

	if _, err := ParseWorkflow([]byte(`{`), FormatJSON); err == nil {
		t.Error("expected error for malformed json")
	}
	if _, err := ParseWorkflow(data, "toml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestSaveAndLoadWorkflow(t *testing.T) {
	dir := t.TempDir()
	wf := &models.Workflow{
		Name:  "saved",
		Mode:  models.ModeSequential,
		Steps: []models.Step{step("a", "x"), step("b", "y", "a")},
	}

	for _, name := range []string{"wf.json", "nested/wf.yaml"} {
		path := filepath.Join(dir, name)
		if err := SaveWorkflow(path, wf); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := LoadWorkflow(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Name != "saved" || len(got.Steps) != 2 || got.Steps[1].Dependencies[0] != "a" {
			t.Errorf("%s: unexpected workflow %+v", name, got)
		}
	}

	if _, err := LoadWorkflow(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"a.yaml": FormatYAML,
		"a.YML":  FormatYAML,
		"a.json": FormatJSON,
		"a":      FormatJSON,
	}
	for path, want := range tests {
		if got := FormatFromPath(path); got != want {
			t.Errorf("FormatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}
