package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is a detached copy of a context's data and agents.
// History is not part of a snapshot.
type Snapshot struct {
	Data   map[string]any `json:"data"`
	Agents []string       `json:"agents"`
}

// Export is the full serialized form of a context.
type Export struct {
	Data       map[string]any `json:"data"`
	Agents     []string       `json:"agents"`
	Messages   []Message      `json:"messages"`
	ExportedAt time.Time      `json:"exportedAt"`
}

// Snapshot returns a deep copy of the current data and agents.
func (c *Context) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Data:   copyMap(c.data),
		Agents: sortedAgents(c.agents),
	}
}

// Restore replaces data and agents with a copy of s. History and recorded
// outcomes are left as they are.
func (c *Context) Restore(s Snapshot) {
	data := normalizeMap(s.Data)
	if data == nil {
		data = make(map[string]any)
	}
	agents := make(map[string]struct{}, len(s.Agents))
	for _, a := range s.Agents {
		agents[a] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.agents = agents
}

// Export serializes data, agents and the full history to JSON.
func (c *Context) Export() ([]byte, error) {
	c.mu.RLock()
	exp := Export{
		Data:       c.data,
		Agents:     sortedAgents(c.agents),
		Messages:   c.history,
		ExportedAt: c.now().UTC(),
	}
	if exp.Messages == nil {
		exp.Messages = []Message{}
	}
	b, err := json.MarshalIndent(exp, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("export context: %w", err)
	}
	return b, nil
}

// Import replaces data, agents and history with the contents of an
// exported document. Missing data, agents or messages default to empty.
func (c *Context) Import(b []byte) error {
	var exp Export
	if err := json.Unmarshal(b, &exp); err != nil {
		return fmt.Errorf("import context: %w", err)
	}

	data := exp.Data
	if data == nil {
		data = make(map[string]any)
	}
	agents := make(map[string]struct{}, len(exp.Agents))
	for _, a := range exp.Agents {
		agents[a] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.agents = agents
	c.history = exp.Messages
	return nil
}

// normalize returns v as it reads back after a JSON round trip. The result
// shares nothing with v.
func normalize(v any) any {
	switch t := v.(type) {
	case nil, string, bool, float64:
		return v
	case map[string]any:
		return normalizeMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
