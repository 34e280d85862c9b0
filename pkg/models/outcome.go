package models

import "time"

// Outcome is the terminal record of one task attempt.
// A retried task keeps only its last attempt.
type Outcome struct {
	TaskID  string `json:"taskId"`
	AgentID string `json:"agentId,omitempty"`
	Success bool   `json:"success"`
	// Value is the agent's content on success.
	Value string `json:"value,omitempty"`
	// Error is the failure message; Err keeps the typed error in-process.
	Error      string    `json:"error,omitempty"`
	Err        error     `json:"-"`
	Attempts   int       `json:"attempts"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	DurationMS int64     `json:"executionTimeMs"`
}

// Finish stamps the outcome end time and duration.
func (o *Outcome) Finish(at time.Time) {
	o.FinishedAt = at
	o.DurationMS = at.Sub(o.StartedAt).Milliseconds()
}

// Fail marks the outcome failed with err.
func (o *Outcome) Fail(err error) {
	o.Success = false
	o.Err = err
	if err != nil {
		o.Error = err.Error()
	}
}

// WorkflowResult aggregates the terminal outcomes of one workflow run.
// It is not modified after being returned.
type WorkflowResult struct {
	RunID    string    `json:"runId"`
	Workflow string    `json:"workflow"`
	Mode     Mode      `json:"mode"`
	Results  []Outcome `json:"results"`
	Failures []Outcome `json:"failures"`
	// Skipped lists step IDs that never executed.
	Skipped    []string  `json:"skipped,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	DurationMS int64     `json:"executionTimeMs"`
}

// Outcomes returns results followed by failures.
func (r *WorkflowResult) Outcomes() []Outcome {
	out := make([]Outcome, 0, len(r.Results)+len(r.Failures))
	out = append(out, r.Results...)
	return append(out, r.Failures...)
}

// Outcome returns the terminal outcome for a step, if it ran.
func (r *WorkflowResult) Outcome(id string) (Outcome, bool) {
	for _, o := range r.Outcomes() {
		if o.TaskID == id {
			return o, true
		}
	}
	return Outcome{}, false
}

// Succeeded returns true if the run recorded no failures.
func (r *WorkflowResult) Succeeded() bool {
	return len(r.Failures) == 0
}

// Add files an outcome into results or failures.
func (r *WorkflowResult) Add(o Outcome) {
	if o.Success {
		r.Results = append(r.Results, o)
		return
	}
	r.Failures = append(r.Failures, o)
}
