package scheduler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ShayCichocki/maestro/internal/graph"
)

// ErrInvalidWorkflow is matched by every *ValidationError.
var ErrInvalidWorkflow = errors.New("invalid workflow")

// ValidationError is returned by Execute for a workflow that fails
// validation. Nothing has run when it is returned.
type ValidationError struct {
	Workflow string
	Errors   []string
	// Cycle is set when the dependency graph has a cycle.
	Cycle *graph.CycleError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("workflow %q is invalid: %s", e.Workflow, strings.Join(e.Errors, "; "))
}

// Unwrap exposes ErrInvalidWorkflow and, for cyclic workflows, the cycle.
func (e *ValidationError) Unwrap() []error {
	errs := []error{ErrInvalidWorkflow}
	if e.Cycle != nil {
		errs = append(errs, e.Cycle)
	}
	return errs
}

// CircularDependencyError is raised when a DAG run reaches a state where
// steps remain but none is ready. The run is abandoned.
type CircularDependencyError struct {
	Workflow  string
	Remaining []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("workflow %q: no ready steps while %d remain: %s",
		e.Workflow, len(e.Remaining), strings.Join(e.Remaining, ", "))
}

// Unwrap lets errors.Is match graph.ErrCycleDetected.
func (e *CircularDependencyError) Unwrap() error {
	return graph.ErrCycleDetected
}
