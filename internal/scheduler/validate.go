package scheduler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ShayCichocki/maestro/internal/graph"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// ValidationResult reports every problem found in a workflow definition.
type ValidationResult struct {
	Valid  bool
	Errors []string
	// Cycle holds the cycle witness when the dependency graph is cyclic.
	Cycle *graph.CycleError
}

func (r *ValidationResult) addf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Err returns nil for a valid workflow and a *ValidationError otherwise.
func (r ValidationResult) Err(workflow string) error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Workflow: workflow, Errors: r.Errors, Cycle: r.Cycle}
}

// Validate checks a workflow's shape before anything runs. Dependency
// cycles are rejected in every mode, not only dag, since a cyclic
// declaration can never be satisfied.
func Validate(wf *models.Workflow) ValidationResult {
	var r ValidationResult
	if wf == nil {
		r.addf("workflow is nil")
		return r
	}

	if strings.TrimSpace(wf.Name) == "" {
		r.addf("workflow name is required")
	}
	if !wf.Mode.Valid() {
		r.addf("unknown mode %q", wf.Mode)
	}
	if len(wf.Steps) == 0 {
		r.addf("workflow has no steps")
	}

	policy := wf.RetryPolicy
	if !policy.Kind.Valid() {
		r.addf("unknown retry policy %q", policy.Kind)
	}
	if policy.MaxRetries < 0 {
		r.addf("maxRetries must not be negative")
	}
	if policy.DelayMS < 0 {
		r.addf("retry delay must not be negative")
	}

	ids := make(map[string]bool, len(wf.Steps))
	structural := false
	for i, s := range wf.Steps {
		if s.ID == "" {
			r.addf("step %d has no id", i)
			structural = true
			continue
		}
		if ids[s.ID] {
			r.addf("duplicate step id %q", s.ID)
			structural = true
		}
		ids[s.ID] = true

		if s.AgentRef == "" {
			r.addf("step %q has no agentRef", s.ID)
		}
		if s.TimeoutMS < 0 {
			r.addf("step %q has a negative timeout", s.ID)
		}
		if !ValidCondition(s.Condition) {
			r.addf("step %q has unknown condition %q", s.ID, s.Condition)
		}
	}

	for _, s := range wf.Steps {
		for _, dep := range s.Dependencies {
			if !ids[dep] {
				r.addf("step %q depends on unknown step %q", s.ID, dep)
				structural = true
			}
		}
	}

	if !structural && len(wf.Steps) > 0 {
		g, err := buildGraph(wf.Steps)
		if err != nil {
			r.addf("%v", err)
		} else if err := g.Validate(); err != nil {
			var ce *graph.CycleError
			if errors.As(err, &ce) {
				r.Cycle = ce
			}
			r.addf("%v", err)
		}
	}

	r.Valid = len(r.Errors) == 0
	return r
}

// Rounds groups step IDs into the waves a dag run dispatches: every step
// depends only on steps in earlier rounds. Conditions are not evaluated.
func Rounds(wf *models.Workflow) ([][]string, error) {
	g, err := buildGraph(wf.Steps)
	if err != nil {
		return nil, err
	}
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}
	rounds := make([][]string, len(levels))
	for i, level := range levels {
		ids := make([]string, len(level))
		for j, n := range level {
			ids[j] = g.ID(n)
		}
		rounds[i] = ids
	}
	return rounds, nil
}

func buildGraph(steps []models.Step) (*graph.Graph, error) {
	nodes := make([]graph.Node, len(steps))
	for i, s := range steps {
		nodes[i] = graph.Node{ID: s.ID, Deps: s.Dependencies}
	}
	return graph.Build(nodes)
}
