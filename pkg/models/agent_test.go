package models

import (
	"errors"
	"testing"
	"time"
)

func TestExecutionMode_Concurrent(t *testing.T) {
	tests := []struct {
		mode ExecutionMode
		want bool
	}{
		{ExecutionSequential, false},
		{ExecutionParallel, true},
		{ExecutionFork, true},
		{ExecutionMode(""), false},
	}
	for _, tt := range tests {
		if got := tt.mode.Concurrent(); got != tt.want {
			t.Errorf("ExecutionMode(%q).Concurrent() = %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func TestParseTaskType(t *testing.T) {
	tests := []struct {
		in   string
		want TaskType
		ok   bool
	}{
		{"literature", TaskTypeLiterature, true},
		{"  Citation\n", TaskTypeCitation, true},
		{"PLAGIARISM", TaskTypePlagiarism, true},
		{"poetry", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseTaskType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseTaskType(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestWorkflowResult_Add(t *testing.T) {
	r := &WorkflowResult{}
	r.Add(Outcome{TaskID: "a", Success: true})
	failed := Outcome{TaskID: "b"}
	failed.Fail(errors.New("boom"))
	r.Add(failed)

	if len(r.Results) != 1 || len(r.Failures) != 1 {
		t.Fatalf("expected 1 result and 1 failure, got %d and %d", len(r.Results), len(r.Failures))
	}
	if r.Failures[0].Error != "boom" {
		t.Errorf("expected failure message, got %q", r.Failures[0].Error)
	}
	if r.Succeeded() {
		t.Error("expected run with failures to report unsuccessful")
	}
	if _, ok := r.Outcome("b"); !ok {
		t.Error("expected outcome lookup for failed step")
	}
	if len(r.Outcomes()) != 2 {
		t.Errorf("expected 2 outcomes, got %d", len(r.Outcomes()))
	}
}

func TestOutcome_Finish(t *testing.T) {
	start := time.Now()
	o := Outcome{StartedAt: start}
	o.Finish(start.Add(250 * time.Millisecond))
	if o.DurationMS != 250 {
		t.Errorf("expected 250ms duration, got %d", o.DurationMS)
	}
}
