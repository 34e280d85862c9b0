// Package scheduler executes named workflows against a shared session
// context in one of four modes: sequential, parallel, conditional or dag.
//
// Step failures are always contained in the returned WorkflowResult. Only
// structural problems (an invalid definition, or a dag run that stops
// making progress) are returned as errors.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/maestro/internal/agent"
	"github.com/ShayCichocki/maestro/internal/logging"
	"github.com/ShayCichocki/maestro/internal/session"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// Engine runs workflows. It holds no per-run state and is safe for
// concurrent use by multiple runs with separate contexts.
type Engine struct {
	resolver agent.Resolver
	logger   *logging.Logger
	events   *EventEmitter
	sleep    agent.Sleeper
	now      func() time.Time
	newID    func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the debug logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l.With("scheduler") }
}

// WithEvents sets the emitter that receives run and step events.
func WithEvents(em *EventEmitter) Option {
	return func(e *Engine) { e.events = em }
}

// WithSleeper replaces the wait between retries.
func WithSleeper(s agent.Sleeper) Option {
	return func(e *Engine) { e.sleep = s }
}

// WithClock replaces the time source used for outcome timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRunIDs replaces the run ID generator.
func WithRunIDs(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// New creates an engine that resolves step agents through resolver.
func New(resolver agent.Resolver, opts ...Option) *Engine {
	e := &Engine{
		resolver: resolver,
		sleep:    agent.Sleep,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate checks wf without running it.
func (e *Engine) Validate(wf *models.Workflow) ValidationResult {
	return Validate(wf)
}

// run is the per-execution state.
type run struct {
	id     string
	wf     *models.Workflow
	sctx   *session.Context
	result *models.WorkflowResult
}

// Execute validates and runs wf against sctx. A nil sctx gets a fresh
// context. The returned result is complete and no longer modified.
//
// Cancelling ctx stops new steps from launching and aborts in-flight
// agent calls, which are recorded as *agent.CanceledError failures, or as
// *agent.TimeoutError when ctx's deadline expired.
func (e *Engine) Execute(ctx context.Context, wf *models.Workflow, sctx *session.Context) (*models.WorkflowResult, error) {
	name := ""
	if wf != nil {
		name = wf.Name
	}
	if err := Validate(wf).Err(name); err != nil {
		e.logger.Log("rejecting workflow %q: %v", name, err)
		return nil, err
	}
	if sctx == nil {
		sctx = session.New()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &run{
		id:   e.newID(),
		wf:   wf,
		sctx: sctx,
		result: &models.WorkflowResult{
			Workflow:  wf.Name,
			Mode:      wf.Mode,
			StartedAt: e.now(),
		},
	}
	r.result.RunID = r.id

	e.logger.Log("run %s: starting workflow %q (%s, %d steps)", r.id, wf.Name, wf.Mode, len(wf.Steps))
	e.emit(r, Event{Type: EventWorkflowStarted})

	var err error
	switch wf.Mode {
	case models.ModeSequential:
		e.runSequential(runCtx, r, false)
	case models.ModeConditional:
		e.runSequential(runCtx, r, true)
	case models.ModeParallel:
		e.runParallel(runCtx, r)
	case models.ModeDAG:
		err = e.runDAG(runCtx, r)
	}

	elapsed := e.now().Sub(r.result.StartedAt)
	r.result.DurationMS = elapsed.Milliseconds()
	e.emit(r, Event{Type: EventWorkflowCompleted, Duration: elapsed, Error: err,
		Message: fmt.Sprintf("%d succeeded, %d failed, %d skipped",
			len(r.result.Results), len(r.result.Failures), len(r.result.Skipped))})

	if err != nil {
		e.logger.Log("run %s: aborted: %v", r.id, err)
		return nil, err
	}
	e.logger.Log("run %s: done in %dms (%d ok, %d failed, %d skipped)",
		r.id, r.result.DurationMS, len(r.result.Results), len(r.result.Failures), len(r.result.Skipped))
	return r.result, nil
}

// runSequential runs steps in array order. In conditional mode each step's
// condition is checked against the context first; an unmet condition
// skips the step without recording an outcome.
func (e *Engine) runSequential(ctx context.Context, r *run, conditional bool) {
	for i, step := range r.wf.Steps {
		if ctx.Err() != nil {
			e.skip(r, r.wf.Steps[i:], "run canceled")
			return
		}
		if conditional && !evaluate(step.Condition, conditionState{ctx: r.sctx, index: i}) {
			e.skip(r, []models.Step{step}, fmt.Sprintf("condition %q not met", step.Condition))
			continue
		}

		o := e.runStep(ctx, r, step, r.sctx)
		e.record(r, o)

		if !o.Success && step.StopOnFailure {
			e.logger.Log("run %s: step %s failed with stopOnFailure, halting", r.id, step.ID)
			e.skip(r, r.wf.Steps[i+1:], "halted after "+step.ID+" failed")
			return
		}
	}
}

// runParallel launches every step at once and waits for all of them.
func (e *Engine) runParallel(ctx context.Context, r *run) {
	for _, o := range e.runBatch(ctx, r, r.wf.Steps) {
		e.record(r, o)
	}
}

// runDAG runs rounds of ready steps until every step has executed. A step
// is ready when all of its dependencies have executed, successfully or
// not. A failed step with StopOnFailure ends the run after its round.
func (e *Engine) runDAG(ctx context.Context, r *run) error {
	g, err := buildGraph(r.wf.Steps)
	if err != nil {
		return err
	}

	executed := make([]bool, g.Len())
	remaining := g.Len()
	round := 0

	for remaining > 0 {
		if ctx.Err() != nil {
			break
		}

		ready := g.Ready(func(i int) bool { return executed[i] })
		if len(ready) == 0 {
			var left []string
			for i, done := range executed {
				if !done {
					left = append(left, g.ID(i))
				}
			}
			return &CircularDependencyError{Workflow: r.wf.Name, Remaining: left}
		}

		round++
		steps := make([]models.Step, len(ready))
		for j, idx := range ready {
			steps[j] = r.wf.Steps[idx]
		}
		e.logger.Log("run %s: round %d: %d ready", r.id, round, len(steps))

		halt := false
		for j, o := range e.runBatch(ctx, r, steps) {
			executed[ready[j]] = true
			remaining--
			e.record(r, o)
			if !o.Success && steps[j].StopOnFailure {
				halt = true
			}
		}
		if halt {
			e.logger.Log("run %s: stopOnFailure step failed in round %d, halting", r.id, round)
			break
		}
	}

	var rest []models.Step
	for i, done := range executed {
		if !done {
			rest = append(rest, r.wf.Steps[i])
		}
	}
	e.skip(r, rest, "not reached")
	return nil
}

// runBatch executes steps concurrently with settle-all semantics. Each
// step writes into its own scope; scopes are committed in the order the
// steps were given once the whole batch has finished, so when siblings
// write the same key the later-declared step wins.
func (e *Engine) runBatch(ctx context.Context, r *run, steps []models.Step) []models.Outcome {
	outcomes := make([]models.Outcome, len(steps))
	scopes := make([]*session.Scope, len(steps))

	var g errgroup.Group
	for i, step := range steps {
		scopes[i] = r.sctx.NewScope()
		g.Go(func() error {
			outcomes[i] = e.runStep(ctx, r, step, scopes[i])
			return nil
		})
	}
	_ = g.Wait()

	r.sctx.CommitScopes(scopes...)
	return outcomes
}

// runStep executes one step with the workflow's retry policy and writes
// its content to store under the step's result key.
func (e *Engine) runStep(ctx context.Context, r *run, step models.Step, store session.Store) models.Outcome {
	o := models.Outcome{
		TaskID:    step.ID,
		AgentID:   step.AgentRef,
		StartedAt: e.now(),
		Attempts:  1,
	}
	r.sctx.RegisterAgent(step.AgentRef)
	e.emit(r, Event{Type: EventStepStarted, StepID: step.ID, AgentID: step.AgentRef})

	exec, err := e.resolve(step.AgentRef)
	if err != nil {
		o.Fail(&agent.ExecutionError{Agent: step.AgentRef, Task: step.ID, Err: err})
		o.Finish(e.now())
		e.stepDone(r, step, o)
		return o
	}

	req := agent.Request{
		Prompt:              agent.EnrichPrompt(step.Prompt, dependencyOutputs(r.wf, step, store)),
		AllowedCapabilities: step.AllowedCapabilities,
		Timeout:             step.Timeout(),
		TaskID:              step.ID,
		AgentID:             step.AgentRef,
	}
	resp, attempts, err := agent.InvokeWithRetry(ctx, exec, req, agent.RetryOptions{
		Policy: r.wf.RetryPolicy,
		Sleep:  e.sleep,
		OnRetry: func(attempt int, wait time.Duration, err error) {
			e.logger.Log("run %s: step %s attempt %d in %s after: %v", r.id, step.ID, attempt, wait, err)
			e.emit(r, Event{Type: EventStepRetrying, StepID: step.ID, AgentID: step.AgentRef,
				Attempt: attempt, Error: err})
		},
	})
	o.Attempts = attempts
	if err != nil {
		o.Fail(err)
	} else {
		o.Success = true
		o.Value = resp.Content
		store.Set(step.ResultKey(), resp.Content)
	}
	o.Finish(e.now())
	e.stepDone(r, step, o)
	return o
}

func (e *Engine) resolve(name string) (agent.Executor, error) {
	if e.resolver == nil {
		return nil, agent.ErrNoExecutor
	}
	return e.resolver.Resolve(name)
}

// dependencyOutputs collects the stored outputs of step's dependencies
// in declaration order. Dependencies without output are left out.
func dependencyOutputs(wf *models.Workflow, step models.Step, store session.Store) []agent.Prior {
	var priors []agent.Prior
	for _, id := range step.Dependencies {
		dep, ok := wf.Step(id)
		if !ok {
			continue
		}
		v, ok := store.Get(dep.ResultKey())
		if !ok {
			continue
		}
		content, ok := v.(string)
		if !ok {
			content = fmt.Sprint(v)
		}
		priors = append(priors, agent.Prior{Label: dep.Label(), Content: content})
	}
	return priors
}

func (e *Engine) record(r *run, o models.Outcome) {
	r.result.Add(o)
	r.sctx.AppendResult(o)
}

func (e *Engine) skip(r *run, steps []models.Step, reason string) {
	for _, s := range steps {
		r.result.Skipped = append(r.result.Skipped, s.ID)
		e.emit(r, Event{Type: EventStepSkipped, StepID: s.ID, AgentID: s.AgentRef, Message: reason})
	}
	if len(steps) > 0 {
		e.logger.Log("run %s: skipped %d step(s): %s", r.id, len(steps), reason)
	}
}

func (e *Engine) stepDone(r *run, step models.Step, o models.Outcome) {
	d := time.Duration(o.DurationMS) * time.Millisecond
	if o.Success {
		e.logger.Log("run %s: step %s ok (%dms, %d attempt(s))", r.id, step.ID, o.DurationMS, o.Attempts)
		e.emit(r, Event{Type: EventStepCompleted, StepID: step.ID, AgentID: step.AgentRef, Duration: d})
		return
	}
	e.logger.Log("run %s: step %s failed: %s", r.id, step.ID, o.Error)
	e.emit(r, Event{Type: EventStepFailed, StepID: step.ID, AgentID: step.AgentRef, Duration: d, Error: o.Err})
}

func (e *Engine) emit(r *run, ev Event) {
	if e.events == nil {
		return
	}
	ev.RunID = r.id
	ev.Workflow = r.wf.Name
	ev.Timestamp = e.now()
	e.events.Emit(ev)
}
