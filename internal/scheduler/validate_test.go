package scheduler

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ShayCichocki/maestro/internal/graph"
	"github.com/ShayCichocki/maestro/pkg/models"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		wf      *models.Workflow
		valid   bool
		wantErr string
		cycle   bool
	}{
		{
			name:  "valid dag",
			wf:    &models.Workflow{Name: "ok", Mode: models.ModeDAG, Steps: []models.Step{step("a", "x"), step("b", "x", "a")}},
			valid: true,
		},
		{
			name:    "nil",
			wf:      nil,
			wantErr: "nil",
		},
		{
			name:    "missing name",
			wf:      &models.Workflow{Mode: models.ModeSequential, Steps: []models.Step{step("a", "x")}},
			wantErr: "name is required",
		},
		{
			name:    "unknown mode",
			wf:      &models.Workflow{Name: "w", Mode: "round-robin", Steps: []models.Step{step("a", "x")}},
			wantErr: "unknown mode",
		},
		{
			name:    "no steps",
			wf:      &models.Workflow{Name: "w", Mode: models.ModeParallel},
			wantErr: "no steps",
		},
		{
			name:    "duplicate ids",
			wf:      &models.Workflow{Name: "w", Mode: models.ModeParallel, Steps: []models.Step{step("a", "x"), step("a", "y")}},
			wantErr: "duplicate step id",
		},
		{
			name:    "missing agent",
			wf:      &models.Workflow{Name: "w", Mode: models.ModeParallel, Steps: []models.Step{step("a", "")}},
			wantErr: "no agentRef",
		},
		{
			name:    "unknown dependency",
			wf:      &models.Workflow{Name: "w", Mode: models.ModeDAG, Steps: []models.Step{step("a", "x", "ghost")}},
			wantErr: "unknown step",
		},
		{
			name: "unknown condition",
			wf: &models.Workflow{Name: "w", Mode: models.ModeConditional, Steps: []models.Step{
				{Task: models.Task{ID: "a"}, AgentRef: "x", Condition: "sometimes"},
			}},
			wantErr: "unknown condition",
		},
		{
			name: "bad retry",
			wf: &models.Workflow{Name: "w", Mode: models.ModeSequential, Steps: []models.Step{step("a", "x")},
				RetryPolicy: models.RetryPolicy{Kind: "linear"}},
			wantErr: "retry policy",
		},
		{
			name:    "self dependency",
			wf:      &models.Workflow{Name: "w", Mode: models.ModeDAG, Steps: []models.Step{step("A", "x", "A")}},
			wantErr: "circular dependency",
			cycle:   true,
		},
		{
			name: "three step cycle",
			wf: &models.Workflow{Name: "w", Mode: models.ModeDAG, Steps: []models.Step{
				step("A", "x", "C"), step("B", "x", "A"), step("C", "x", "B"),
			}},
			wantErr: "circular dependency",
			cycle:   true,
		},
		{
			name: "cycle outside dag mode",
			wf: &models.Workflow{Name: "w", Mode: models.ModeSequential, Steps: []models.Step{
				step("A", "x", "B"), step("B", "x", "A"),
			}},
			wantErr: "circular dependency",
			cycle:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Validate(tt.wf)
			if r.Valid != tt.valid {
				t.Fatalf("expected valid=%v, got %v (%v)", tt.valid, r.Valid, r.Errors)
			}
			if tt.wantErr != "" && !strings.Contains(strings.Join(r.Errors, "; "), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, r.Errors)
			}
			if (r.Cycle != nil) != tt.cycle {
				t.Errorf("expected cycle=%v, got %v", tt.cycle, r.Cycle)
			}
			if tt.valid && r.Err("w") != nil {
				t.Error("expected nil error for valid workflow")
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	wf := &models.Workflow{Mode: "nope", Steps: []models.Step{step("", "x"), step("b", "")}}
	r := Validate(wf)
	if len(r.Errors) < 4 {
		t.Errorf("expected every problem reported, got %v", r.Errors)
	}
}

func TestValidCondition(t *testing.T) {
	for _, c := range []models.Condition{"", "always", "hasResults", "hasFailures", "noFailures", "isFirst", "has:draft"} {
		if !ValidCondition(c) {
			t.Errorf("expected %q valid", c)
		}
	}
	for _, c := range []models.Condition{"has:", "never", "HASRESULTS"} {
		if ValidCondition(c) {
			t.Errorf("expected %q invalid", c)
		}
	}
}

func TestRounds(t *testing.T) {
	wf := &models.Workflow{
		Name: "diamond",
		Mode: models.ModeDAG,
		Steps: []models.Step{
			{Task: models.Task{ID: "search"}, AgentRef: "a"},
			{Task: models.Task{ID: "analyze", Dependencies: []string{"search"}}, AgentRef: "a"},
			{Task: models.Task{ID: "methods", Dependencies: []string{"search"}}, AgentRef: "a"},
			{Task: models.Task{ID: "gaps", Dependencies: []string{"analyze", "methods"}}, AgentRef: "a"},
		},
	}
	rounds, err := Rounds(wf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]string{{"search"}, {"analyze", "methods"}, {"gaps"}}
	if !reflect.DeepEqual(rounds, want) {
		t.Errorf("expected %v, got %v", want, rounds)
	}

	wf.Steps[0].Dependencies = []string{"gaps"}
	if _, err := Rounds(wf); !errors.Is(err, graph.ErrCycleDetected) {
		t.Errorf("expected ErrCycleDetected, got %v", err)
	}
}
