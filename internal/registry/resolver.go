package registry

import (
	"context"
	"fmt"

	"github.com/ShayCichocki/maestro/internal/agent"
	"github.com/ShayCichocki/maestro/pkg/models"
)

// Resolver binds registered agents to a backing executor. Each resolved
// executor fills in the agent's name, instructions and capabilities when
// the request leaves them unset.
type Resolver struct {
	reg     Registry
	backend agent.Executor
}

var _ agent.Resolver = (*Resolver)(nil)

// NewResolver creates a resolver over reg that sends every call to backend.
func NewResolver(reg Registry, backend agent.Executor) *Resolver {
	return &Resolver{reg: reg, backend: backend}
}

// Resolve returns an executor for a registered agent.
func (r *Resolver) Resolve(name string) (agent.Executor, error) {
	md, ok := r.reg.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", agent.ErrUnknownAgent, name)
	}
	return &boundExecutor{md: md, backend: r.backend}, nil
}

type boundExecutor struct {
	md      models.AgentMetadata
	backend agent.Executor
}

func (b *boundExecutor) Execute(ctx context.Context, req agent.Request) (*agent.Response, error) {
	if b.backend == nil {
		return nil, agent.ErrNoExecutor
	}
	if req.AgentID == "" {
		req.AgentID = b.md.Name
	}
	if req.System == "" {
		req.System = b.md.Instructions
	}
	if len(req.AllowedCapabilities) == 0 {
		req.AllowedCapabilities = b.md.Capabilities
	}
	return b.backend.Execute(ctx, req)
}
