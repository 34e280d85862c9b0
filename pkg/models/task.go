package models

import "time"

// Task represents a unit of work submitted to the engine.
// Tasks are immutable once submitted; identity is ID.
type Task struct {
	// ID is the unique identifier for this task within its batch or workflow.
	ID string `json:"id" yaml:"id"`
	// Name is a short human-readable label.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Prompt is the instruction passed to the agent.
	Prompt string `json:"prompt" yaml:"prompt"`
	// AllowedCapabilities restricts what the agent may use (tools, skills).
	AllowedCapabilities []string `json:"allowedCapabilities,omitempty" yaml:"allowedCapabilities,omitempty"`
	// TimeoutMS bounds a single agent call. Zero means no per-task bound.
	TimeoutMS int64 `json:"timeoutMs,omitempty" yaml:"timeoutMs,omitempty"`
	// Dependencies lists task IDs in the same batch that must run first.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// Timeout returns the per-call bound as a duration.
func (t Task) Timeout() time.Duration {
	if t.TimeoutMS <= 0 {
		return 0
	}
	return time.Duration(t.TimeoutMS) * time.Millisecond
}

// Label returns the task name, falling back to its ID.
func (t Task) Label() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// Condition names a predicate evaluated against the execution context
// before a conditional step is launched.
type Condition string

const (
	// ConditionAlways is always met. An empty condition means the same.
	ConditionAlways Condition = "always"
	// ConditionHasResults is met once any prior step succeeded.
	ConditionHasResults Condition = "hasResults"
	// ConditionHasFailures is met once any prior step failed.
	ConditionHasFailures Condition = "hasFailures"
	// ConditionNoFailures is met while no prior step has failed.
	ConditionNoFailures Condition = "noFailures"
	// ConditionIsFirst is met only for the first step of the workflow.
	ConditionIsFirst Condition = "isFirst"
)

// ConditionHasKeyPrefix prefixes conditions of the form "has:<key>",
// met when the context holds the named key.
const ConditionHasKeyPrefix = "has:"

// Step is a workflow-scoped task bound to an agent.
type Step struct {
	Task `yaml:",inline"`
	// AgentRef names the agent that executes this step.
	AgentRef string `json:"agentRef" yaml:"agentRef"`
	// Condition is evaluated before launch in conditional mode.
	Condition Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
	// StopOnFailure halts the rest of the workflow when this step fails.
	StopOnFailure bool `json:"stopOnFailure,omitempty" yaml:"stopOnFailure,omitempty"`
	// OutputKey is the context key the step's content is stored under.
	// Defaults to the step ID.
	OutputKey string `json:"outputKey,omitempty" yaml:"outputKey,omitempty"`
}

// ResultKey returns the context key for this step's output.
func (s Step) ResultKey() string {
	if s.OutputKey != "" {
		return s.OutputKey
	}
	return s.ID
}

// Mode selects the workflow execution strategy.
type Mode string

const (
	// ModeSequential runs steps in array order.
	ModeSequential Mode = "sequential"
	// ModeParallel launches every step at once with settle-all collection.
	ModeParallel Mode = "parallel"
	// ModeConditional runs steps in order, skipping those whose condition is unmet.
	ModeConditional Mode = "conditional"
	// ModeDAG runs steps in dependency-respecting rounds.
	ModeDAG Mode = "dag"
)

// Valid returns true if the mode is a known value.
func (m Mode) Valid() bool {
	switch m {
	case ModeSequential, ModeParallel, ModeConditional, ModeDAG:
		return true
	default:
		return false
	}
}

// RetryKind selects how failed attempts are retried.
type RetryKind string

const (
	RetryNone        RetryKind = "none"
	RetryFixed       RetryKind = "fixed"
	RetryExponential RetryKind = "exponential"
)

// Valid returns true if the kind is a known value. Empty is treated as none.
func (k RetryKind) Valid() bool {
	switch k {
	case "", RetryNone, RetryFixed, RetryExponential:
		return true
	default:
		return false
	}
}

// RetryPolicy controls per-task retries.
type RetryPolicy struct {
	Kind       RetryKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	MaxRetries int       `json:"maxRetries,omitempty" yaml:"maxRetries,omitempty"`
	DelayMS    int64     `json:"delayMs,omitempty" yaml:"delayMs,omitempty"`
}

// Attempts returns the total number of attempts the policy allows.
func (p RetryPolicy) Attempts() int {
	if p.Kind == "" || p.Kind == RetryNone || p.MaxRetries <= 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// MaxRetryDelay caps the wait between attempts.
const MaxRetryDelay = time.Hour

// Delay returns the wait before the given retry. attempt is 1 for the
// first retry. Exponential delays double after every failed attempt.
// The result never exceeds MaxRetryDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.DelayMS <= 0 {
		return 0
	}
	base := MaxRetryDelay
	if p.DelayMS < MaxRetryDelay.Milliseconds() {
		base = time.Duration(p.DelayMS) * time.Millisecond
	}
	switch p.Kind {
	case RetryFixed:
		return base
	case RetryExponential:
		shift := attempt - 1
		if shift > 30 || base > MaxRetryDelay>>uint(shift) {
			return MaxRetryDelay
		}
		return base << uint(shift)
	default:
		return 0
	}
}

// Workflow is a named, declarative graph of steps plus an execution mode.
// It is the save/load format for predefined pipelines.
type Workflow struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Mode        Mode        `json:"mode" yaml:"mode"`
	Steps       []Step      `json:"steps" yaml:"steps"`
	RetryPolicy RetryPolicy `json:"retryPolicy,omitempty" yaml:"retryPolicy,omitempty"`
}

// Step returns the step with the given ID.
func (w *Workflow) Step(id string) (Step, bool) {
	for _, s := range w.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}
