// Package registry holds agent metadata: which agents exist, what they
// depend on, and how they may be scheduled.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ShayCichocki/maestro/pkg/models"
)

// ErrInvalidAgent is returned when metadata fails validation.
var ErrInvalidAgent = errors.New("invalid agent definition")

// Registry looks up agent metadata by name. Unknown names report false.
type Registry interface {
	Get(name string) (models.AgentMetadata, bool)
}

// MemoryRegistry is a thread-safe in-memory Registry.
type MemoryRegistry struct {
	mu     sync.RWMutex
	agents map[string]models.AgentMetadata
}

var _ Registry = (*MemoryRegistry)(nil)

// NewMemory creates a registry holding agents. Invalid entries are an error.
func NewMemory(agents ...models.AgentMetadata) (*MemoryRegistry, error) {
	r := &MemoryRegistry{agents: make(map[string]models.AgentMetadata)}
	for _, md := range agents {
		if err := r.Register(md); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Validate checks that md can be registered.
func Validate(md models.AgentMetadata) error {
	if md.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidAgent)
	}
	if md.Execution.Mode != "" && !md.Execution.Mode.Valid() {
		return fmt.Errorf("%w: %s: unknown execution mode %q", ErrInvalidAgent, md.Name, md.Execution.Mode)
	}
	for _, dep := range md.Dependencies {
		if dep == md.Name {
			return fmt.Errorf("%w: %s depends on itself", ErrInvalidAgent, md.Name)
		}
	}
	return nil
}

// Register adds or replaces md.
func (r *MemoryRegistry) Register(md models.AgentMetadata) error {
	if err := Validate(md); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[md.Name] = md
	return nil
}

// Deregister removes the named agent.
func (r *MemoryRegistry) Deregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, name)
}

// Get returns the metadata for name.
func (r *MemoryRegistry) Get(name string) (models.AgentMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	md, ok := r.agents[name]
	return md, ok
}

// Replace swaps the whole agent set in one step. Nothing changes if any
// entry is invalid.
func (r *MemoryRegistry) Replace(agents []models.AgentMetadata) error {
	next := make(map[string]models.AgentMetadata, len(agents))
	for _, md := range agents {
		if err := Validate(md); err != nil {
			return err
		}
		next[md.Name] = md
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = next
	return nil
}

// List returns all agents sorted by name.
func (r *MemoryRegistry) List() []models.AgentMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.AgentMetadata, 0, len(r.agents))
	for _, md := range r.agents {
		out = append(out, md)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns all agent names sorted.
func (r *MemoryRegistry) Names() []string {
	agents := r.List()
	names := make([]string, len(agents))
	for i, md := range agents {
		names[i] = md.Name
	}
	return names
}

// Len returns the number of registered agents.
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
