// Package router turns a request into a workflow: classify it, pick the
// agents for its task type, decide whether they can run together, and
// hand the result to the scheduler.
package router

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ShayCichocki/maestro/internal/classifier"
	"github.com/ShayCichocki/maestro/internal/logging"
	"github.com/ShayCichocki/maestro/internal/registry"
	"github.com/ShayCichocki/maestro/internal/scheduler"
	"github.com/ShayCichocki/maestro/internal/session"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// NoAgentFoundError is returned when none of a task type's agents are
// registered.
type NoAgentFoundError struct {
	Type models.TaskType
	// Candidates are the names the table listed for Type.
	Candidates []string
}

func (e *NoAgentFoundError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("no agents configured for task type %q", e.Type)
	}
	return fmt.Sprintf("no registered agent for task type %q (tried %s)", e.Type, strings.Join(e.Candidates, ", "))
}

// Request is a routing request.
type Request struct {
	Text string
	// Type skips classification when set.
	Type models.TaskType
	// StopOnFailure ends a sequential route at the first failed agent.
	// By default later agents still run.
	StopOnFailure bool
	// Retry is applied to every agent call.
	Retry models.RetryPolicy
}

// Plan is a routing decision before execution.
type Plan struct {
	Selection classifier.Selection
	Agents    []models.AgentMetadata
	Mode      models.Mode
	Workflow  *models.Workflow
}

// Result is a routing decision plus the outcome of running it.
type Result struct {
	Plan
	Result *models.WorkflowResult
}

// Router dispatches requests to agents.
type Router struct {
	classifier *classifier.Classifier
	registry   registry.Registry
	engine     *scheduler.Engine
	table      Table
	logger     *logging.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithTable replaces the routing table.
func WithTable(t Table) Option {
	return func(r *Router) { r.table = t }
}

// WithLogger sets the debug logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Router) { r.logger = l.With("router") }
}

// New creates a router. A nil classifier falls back to keyword-only
// classification.
func New(cls *classifier.Classifier, reg registry.Registry, engine *scheduler.Engine, opts ...Option) *Router {
	if cls == nil {
		cls = classifier.New()
	}
	r := &Router{
		classifier: cls,
		registry:   reg,
		engine:     engine,
		table:      DefaultTable(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Plan classifies req and builds the workflow that would handle it.
func (r *Router) Plan(ctx context.Context, req Request) (*Plan, error) {
	sel := r.classifier.ClassifyDetailed(ctx, classifier.Request{Text: req.Text, Type: req.Type})
	r.logger.Log("classified as %s via %s", sel.Type, sel.Source)

	candidates := r.table.Agents(sel.Type)
	var agents []models.AgentMetadata
	for _, name := range candidates {
		md, ok := r.registry.Get(name)
		if !ok {
			r.logger.Log("dropping unregistered agent %s", name)
			continue
		}
		agents = append(agents, md)
	}
	if len(agents) == 0 {
		return nil, &NoAgentFoundError{Type: sel.Type, Candidates: candidates}
	}

	mode := SelectMode(agents)
	return &Plan{
		Selection: sel,
		Agents:    agents,
		Mode:      mode,
		Workflow:  buildWorkflow(sel.Type, req, agents, mode),
	}, nil
}

// Route plans req and runs it against sctx.
func (r *Router) Route(ctx context.Context, req Request, sctx *session.Context) (*Result, error) {
	plan, err := r.Plan(ctx, req)
	if err != nil {
		return nil, err
	}
	r.logger.Log("routing %s to %d agent(s) in %s mode", plan.Selection.Type, len(plan.Agents), plan.Mode)

	res, err := r.engine.Execute(ctx, plan.Workflow, sctx)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", plan.Selection.Type, err)
	}
	return &Result{Plan: *plan, Result: res}, nil
}

// SelectMode picks parallel only when no agent declares dependencies and
// every agent may run alongside others.
func SelectMode(agents []models.AgentMetadata) models.Mode {
	for _, md := range agents {
		if len(md.Dependencies) > 0 || !md.Execution.Mode.Concurrent() {
			return models.ModeSequential
		}
	}
	return models.ModeParallel
}

// buildWorkflow makes one step per agent, keyed by agent name. In
// sequential mode each step depends on the one before it and on any
// declared dependency that runs earlier, so outputs flow down the chain.
func buildWorkflow(tt models.TaskType, req Request, agents []models.AgentMetadata, mode models.Mode) *models.Workflow {
	wf := &models.Workflow{
		Name:        "route-" + string(tt),
		Description: req.Text,
		Mode:        mode,
		RetryPolicy: req.Retry,
	}

	earlier := make(map[string]bool, len(agents))
	for i, md := range agents {
		s := models.Step{
			Task: models.Task{
				ID:                  md.Name,
				Prompt:              req.Text,
				AllowedCapabilities: md.Capabilities,
				TimeoutMS:           md.TimeoutMS,
			},
			AgentRef: md.Name,
		}
		if mode == models.ModeSequential {
			s.StopOnFailure = req.StopOnFailure
			if i > 0 {
				s.Dependencies = append(s.Dependencies, agents[i-1].Name)
			}
			for _, dep := range md.Dependencies {
				if earlier[dep] && !slices.Contains(s.Dependencies, dep) {
					s.Dependencies = append(s.Dependencies, dep)
				}
			}
		}
		earlier[md.Name] = true
		wf.Steps = append(wf.Steps, s)
	}
	return wf
}
