// Package agent defines the contract between the orchestration core and
// the agents it drives. Agents are opaque: the core hands them a request
// and stores whatever text comes back.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Request is a single call to an agent.
type Request struct {
	// Prompt is the task text.
	Prompt string
	// System is an optional system instruction for LLM-backed agents.
	System string
	// AllowedCapabilities restricts what the agent may use.
	AllowedCapabilities []string
	// Timeout bounds the call. Zero means no bound beyond the caller's context.
	Timeout time.Duration
	// TaskID and AgentID identify the call for logs and errors.
	TaskID  string
	AgentID string
}

// Response is what an agent returns on success.
type Response struct {
	// Content is opaque text. The core never interprets it.
	Content string
	// Raw optionally carries the provider's native response.
	Raw          any
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Executor is implemented by every agent.
type Executor interface {
	Execute(ctx context.Context, req Request) (*Response, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, req Request) (*Response, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Text returns an executor that always answers with content.
func Text(content string) Executor {
	return ExecutorFunc(func(ctx context.Context, req Request) (*Response, error) {
		return &Response{Content: content}, nil
	})
}

// ErrUnknownAgent is returned when a name resolves to no executor.
var ErrUnknownAgent = errors.New("unknown agent")

// Resolver maps agent names to executors.
type Resolver interface {
	Resolve(name string) (Executor, error)
}

// Directory is an in-memory Resolver with an optional fallback executor
// used for names that were never registered.
type Directory struct {
	mu        sync.RWMutex
	executors map[string]Executor
	fallback  Executor
}

// NewDirectory creates a directory. fallback may be nil.
func NewDirectory(fallback Executor) *Directory {
	return &Directory{
		executors: make(map[string]Executor),
		fallback:  fallback,
	}
}

// Register binds name to exec, replacing any previous binding.
func (d *Directory) Register(name string, exec Executor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.executors[name] = exec
}

// Resolve returns the executor bound to name, or the fallback.
func (d *Directory) Resolve(name string) (Executor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if exec, ok := d.executors[name]; ok {
		return exec, nil
	}
	if d.fallback != nil {
		return d.fallback, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, name)
}

// Names returns the registered names in sorted order.
func (d *Directory) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.executors))
	for n := range d.executors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
