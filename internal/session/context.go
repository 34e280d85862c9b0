// Package session implements the execution context shared by every step
// of one workflow run: keyed data, an append-only message history, the
// set of participating agents, and the outcomes recorded so far.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/maestro/pkg/models"
)

// Store is the keyed data surface shared by a Context and its scopes.
type Store interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Delete(key string)
	Has(key string) bool
}

// Context is the session-scoped store threaded through a workflow run.
// It is safe for concurrent use.
//
// Values are stored in their JSON form: an int reads back as float64, a
// []string as []any and a struct as map[string]any. A value that cannot be
// encoded is stored as given and will not survive Export.
type Context struct {
	mu       sync.RWMutex
	data     map[string]any
	agents   map[string]struct{}
	history  []Message
	handlers map[string][]Handler
	results  []models.Outcome

	now   func() time.Time
	newID func() string
}

// Option configures a Context.
type Option func(*Context)

// WithClock overrides the message timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Context) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator overrides message ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(c *Context) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// New creates an empty context.
func New(opts ...Option) *Context {
	c := &Context{
		data:     make(map[string]any),
		agents:   make(map[string]struct{}),
		handlers: make(map[string][]Handler),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Store = (*Context)(nil)

// Get returns the value stored under key.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	return v, ok
}

// GetString returns the value under key if it is a string.
func (c *Context) GetString(key string) (string, bool) {
	v, ok := c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Set stores value under key. Last writer wins.
func (c *Context) Set(key string, value any) {
	value = normalize(value)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// Delete removes key.
func (c *Context) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Has returns true if key is present.
func (c *Context) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.data[key]
	return ok
}

// Keys returns the stored keys in sorted order.
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge folds partial into the store. When both the existing and the new
// value under a key are objects, their fields are merged one level deep
// with the new fields winning; any other value is overwritten.
func (c *Context) Merge(partial map[string]any) {
	partial = normalizeMap(partial)
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range partial {
		c.data[k] = mergeValue(c.data[k], v)
	}
}

// Update sets every entry of values under a single lock.
func (c *Context) Update(values map[string]any) {
	values = normalizeMap(values)
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range values {
		c.data[k] = v
	}
}

// Clear drops all data, agents, history and recorded outcomes.
// Registered handlers are kept.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]any)
	c.agents = make(map[string]struct{})
	c.history = nil
	c.results = nil
}

// RegisterAgent adds id to the participating agents.
func (c *Context) RegisterAgent(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agents[id] = struct{}{}
}

// HasAgent returns true if id participates in this session.
func (c *Context) HasAgent(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.agents[id]
	return ok
}

// Agents returns the participating agents in sorted order.
func (c *Context) Agents() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedAgents(c.agents)
}

// OnMessage registers h for messages addressed to agent. Handlers for the
// same agent run in registration order.
func (c *Context) OnMessage(agent string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[agent] = append(c.handlers[agent], h)
}

// SendMessage appends msg to the history and delivers it to the handlers
// of each recipient. Missing IDs and timestamps are filled in. Handlers run
// on the caller's goroutine after the history lock is released.
func (c *Context) SendMessage(msg Message) Message {
	c.mu.Lock()
	if msg.ID == "" {
		msg.ID = c.newID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = c.now()
	}
	msg.To = append(Recipients(nil), msg.To...)
	c.history = append(c.history, msg)

	var deliver []Handler
	for _, to := range msg.To {
		deliver = append(deliver, c.handlers[to]...)
	}
	c.mu.Unlock()

	for _, h := range deliver {
		h(msg)
	}
	return msg
}

// History returns a copy of the message log in insertion order.
func (c *Context) History() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.history))
	copy(out, c.history)
	return out
}

// AppendResult records a step outcome for later steps to inspect.
func (c *Context) AppendResult(o models.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, o)
}

// PreviousResults returns the outcomes recorded so far, in order.
func (c *Context) PreviousResults() []models.Outcome {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Outcome, len(c.results))
	copy(out, c.results)
	return out
}

// Failures returns the recorded outcomes that did not succeed.
func (c *Context) Failures() []models.Outcome {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []models.Outcome
	for _, o := range c.results {
		if !o.Success {
			out = append(out, o)
		}
	}
	return out
}

func sortedAgents(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

func mergeValue(old, next any) any {
	oldMap, ok := old.(map[string]any)
	if !ok {
		return next
	}
	nextMap, ok := next.(map[string]any)
	if !ok {
		return next
	}
	merged := make(map[string]any, len(oldMap)+len(nextMap))
	for k, v := range oldMap {
		merged[k] = v
	}
	for k, v := range nextMap {
		merged[k] = v
	}
	return merged
}
