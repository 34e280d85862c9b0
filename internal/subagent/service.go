// Package subagent runs ad-hoc batches of tasks against a single agent:
// bounded parallel batches, dependency-gated sequential runs, and DAG
// rounds, each with per-task timeout and retry.
package subagent

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/maestro/internal/agent"
	"github.com/ShayCichocki/maestro/internal/graph"
	"github.com/ShayCichocki/maestro/internal/logging"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// Config controls how a batch is executed.
type Config struct {
	// MaxConcurrent is the batch size for parallel execution. Values below
	// one are treated as one.
	MaxConcurrent int
	// Timeout bounds each call for tasks that set no timeout of their own.
	Timeout time.Duration
	// Retry is applied to every task.
	Retry models.RetryPolicy
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 3,
		Timeout:       5 * time.Minute,
		Retry:         models.RetryPolicy{Kind: models.RetryNone},
	}
}

func (c Config) batchSize() int {
	if c.MaxConcurrent < 1 {
		return 1
	}
	return c.MaxConcurrent
}

// Service executes task batches. It is safe for concurrent use; there is
// no limit shared across simultaneous batches.
type Service struct {
	exec    agent.Executor
	agentID string
	cfg     Config
	logger  *logging.Logger
	sleep   agent.Sleeper
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the debug logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.logger = l.With("subagent") }
}

// WithAgentID names the agent in requests and outcomes.
func WithAgentID(id string) Option {
	return func(s *Service) { s.agentID = id }
}

// WithSleeper replaces the wait between retries.
func WithSleeper(fn agent.Sleeper) Option {
	return func(s *Service) { s.sleep = fn }
}

// WithClock replaces the time source used for outcome timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a service that sends every task to exec.
func New(exec agent.Executor, cfg Config, opts ...Option) *Service {
	s := &Service{
		exec:  exec,
		cfg:   cfg,
		sleep: agent.Sleep,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the service's default configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// ExecuteParallel runs tasks in batches of cfg.MaxConcurrent. Each batch
// is fully awaited before the next starts, so no more than MaxConcurrent
// calls are ever in flight. Dependencies are ignored. Outcomes are in
// task order.
//
// Once ctx is cancelled no further batch is launched; tasks that never
// started have no outcome.
func (s *Service) ExecuteParallel(ctx context.Context, tasks []models.Task, cfg Config) ([]models.Outcome, error) {
	if err := checkIDs(tasks); err != nil {
		return nil, err
	}

	size := cfg.batchSize()
	outcomes := make([]models.Outcome, 0, len(tasks))
	for start := 0; start < len(tasks); start += size {
		if ctx.Err() != nil {
			s.logger.Log("canceled with %d of %d tasks not started", len(tasks)-start, len(tasks))
			break
		}
		end := min(start+size, len(tasks))
		s.logger.Log("batch %d-%d of %d", start+1, end, len(tasks))
		outcomes = append(outcomes, s.runBatch(ctx, tasks[start:end], nil, cfg)...)
	}
	return outcomes, nil
}

// ExecuteSequential runs tasks one at a time in order. Each task's prompt
// is enriched with the outputs of every earlier successful task. A task
// whose dependencies have not all succeeded by the time it is reached is
// skipped and has no outcome.
func (s *Service) ExecuteSequential(ctx context.Context, tasks []models.Task) ([]models.Outcome, error) {
	if _, err := buildGraph(tasks); err != nil {
		return nil, err
	}

	var (
		outcomes  []models.Outcome
		priors    []agent.Prior
		succeeded = make(map[string]bool, len(tasks))
	)
	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		if dep, ok := unmetDependency(task, succeeded); !ok {
			s.logger.Log("skipping %s: dependency %s did not succeed", task.ID, dep)
			continue
		}

		o := s.runTask(ctx, task, priors, s.cfg)
		outcomes = append(outcomes, o)
		if o.Success {
			succeeded[task.ID] = true
			priors = append(priors, agent.Prior{Label: task.Label(), Content: o.Value})
		}
	}
	return outcomes, nil
}

// ExecuteDAG runs tasks in dependency rounds. Every round's ready tasks
// run in batches of MaxConcurrent and each task sees the outputs of its
// own dependencies. Tasks with a dependency that did not succeed are
// skipped, as are their dependents. A cyclic batch is rejected before
// anything runs.
func (s *Service) ExecuteDAG(ctx context.Context, tasks []models.Task) ([]models.Outcome, error) {
	g, err := buildGraph(tasks)
	if err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	var (
		outcomes  []models.Outcome
		done      = make([]bool, g.Len())
		succeeded = make(map[string]bool, len(tasks))
		values    = make(map[string]string, len(tasks))
		size      = s.cfg.batchSize()
	)

	for round := 1; ; round++ {
		ready := g.Ready(func(i int) bool { return done[i] })
		if len(ready) == 0 {
			break
		}
		if ctx.Err() != nil {
			break
		}

		var runnable []int
		for _, i := range ready {
			done[i] = true
			if dep, ok := unmetDependency(tasks[i], succeeded); !ok {
				s.logger.Log("skipping %s: dependency %s did not succeed", tasks[i].ID, dep)
				continue
			}
			runnable = append(runnable, i)
		}
		s.logger.Log("round %d: %d ready, %d runnable", round, len(ready), len(runnable))

		for start := 0; start < len(runnable); start += size {
			if ctx.Err() != nil {
				break
			}
			chunk := runnable[start:min(start+size, len(runnable))]
			batch := make([]models.Task, len(chunk))
			priors := make([][]agent.Prior, len(chunk))
			for j, i := range chunk {
				batch[j] = tasks[i]
				for _, dep := range tasks[i].Dependencies {
					priors[j] = append(priors[j], agent.Prior{Label: labelOf(tasks, dep), Content: values[dep]})
				}
			}
			for _, o := range s.runBatch(ctx, batch, priors, s.cfg) {
				outcomes = append(outcomes, o)
				if o.Success {
					succeeded[o.TaskID] = true
					values[o.TaskID] = o.Value
				}
			}
		}
	}
	return outcomes, nil
}

// runBatch runs tasks concurrently and waits for all of them. priors, if
// non-nil, is indexed like tasks.
func (s *Service) runBatch(ctx context.Context, tasks []models.Task, priors [][]agent.Prior, cfg Config) []models.Outcome {
	outcomes := make([]models.Outcome, len(tasks))
	var g errgroup.Group
	for i, task := range tasks {
		var p []agent.Prior
		if priors != nil {
			p = priors[i]
		}
		g.Go(func() error {
			outcomes[i] = s.runTask(ctx, task, p, cfg)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (s *Service) runTask(ctx context.Context, task models.Task, priors []agent.Prior, cfg Config) models.Outcome {
	timeout := task.Timeout()
	if timeout == 0 {
		timeout = cfg.Timeout
	}

	o := models.Outcome{TaskID: task.ID, AgentID: s.agentID, StartedAt: s.now()}
	req := agent.Request{
		Prompt:              agent.EnrichPrompt(task.Prompt, priors),
		AllowedCapabilities: task.AllowedCapabilities,
		Timeout:             timeout,
		TaskID:              task.ID,
		AgentID:             s.agentID,
	}
	resp, attempts, err := agent.InvokeWithRetry(ctx, s.exec, req, agent.RetryOptions{
		Policy: cfg.Retry,
		Sleep:  s.sleep,
		OnRetry: func(attempt int, wait time.Duration, err error) {
			s.logger.Log("task %s: attempt %d in %s after: %v", task.ID, attempt, wait, err)
		},
	})
	o.Attempts = attempts
	if err != nil {
		o.Fail(err)
		s.logger.Log("task %s failed after %d attempt(s): %v", task.ID, attempts, err)
	} else {
		o.Success = true
		o.Value = resp.Content
	}
	o.Finish(s.now())
	return o
}

func checkIDs(tasks []models.Task) error {
	seen := make(map[string]bool, len(tasks))
	for i, t := range tasks {
		if t.ID == "" {
			return fmt.Errorf("task %d: %w", i, graph.ErrEmptyID)
		}
		if seen[t.ID] {
			return fmt.Errorf("task %s: %w", t.ID, graph.ErrDuplicateNode)
		}
		seen[t.ID] = true
	}
	return nil
}

func buildGraph(tasks []models.Task) (*graph.Graph, error) {
	if err := checkIDs(tasks); err != nil {
		return nil, err
	}
	nodes := make([]graph.Node, len(tasks))
	for i, t := range tasks {
		nodes[i] = graph.Node{ID: t.ID, Deps: t.Dependencies}
	}
	return graph.Build(nodes)
}

func unmetDependency(task models.Task, succeeded map[string]bool) (string, bool) {
	for _, dep := range task.Dependencies {
		if !succeeded[dep] {
			return dep, false
		}
	}
	return "", true
}

func labelOf(tasks []models.Task, id string) string {
	for _, t := range tasks {
		if t.ID == id {
			return t.Label()
		}
	}
	return id
}
