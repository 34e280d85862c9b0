package session

import "sync"

type scopeOp struct {
	key    string
	value  any
	delete bool
}

// Scope is a private write overlay over a Context. Reads fall through to
// the parent unless the scope has written the key; writes stay local
// until committed. Steps that run concurrently each get a scope so that
// sibling writes never interleave.
type Scope struct {
	parent *Context

	mu      sync.Mutex
	ops     []scopeOp
	current map[string]scopeOp
}

var _ Store = (*Scope)(nil)

// NewScope creates an overlay on c.
func (c *Context) NewScope() *Scope {
	return &Scope{
		parent:  c,
		current: make(map[string]scopeOp),
	}
}

func (s *Scope) Get(key string) (any, bool) {
	s.mu.Lock()
	op, ok := s.current[key]
	s.mu.Unlock()
	if ok {
		if op.delete {
			return nil, false
		}
		return op.value, true
	}
	return s.parent.Get(key)
}

func (s *Scope) Set(key string, value any) {
	s.record(scopeOp{key: key, value: normalize(value)})
}

func (s *Scope) Delete(key string) {
	s.record(scopeOp{key: key, delete: true})
}

func (s *Scope) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Merge applies the same object-merge rule as Context.Merge against the
// scope's current view.
func (s *Scope) Merge(partial map[string]any) {
	for k, v := range partial {
		old, _ := s.Get(k)
		s.Set(k, mergeValue(old, v))
	}
}

func (s *Scope) record(op scopeOp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, op)
	s.current[op.key] = op
}

func (s *Scope) drain() []scopeOp {
	s.mu.Lock()
	defer s.mu.Unlock()
	ops := s.ops
	s.ops = nil
	s.current = make(map[string]scopeOp)
	return ops
}

// Commit applies the scope's writes to its parent.
func (s *Scope) Commit() {
	s.parent.CommitScopes(s)
}

// CommitScopes applies the writes of each scope, in the order given,
// under a single lock. When several scopes wrote the same key the last
// one in the list wins. Scopes belonging to another context are ignored.
func (c *Context) CommitScopes(scopes ...*Scope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range scopes {
		if s == nil || s.parent != c {
			continue
		}
		for _, op := range s.drain() {
			if op.delete {
				delete(c.data, op.key)
				continue
			}
			c.data[op.key] = op.value
		}
	}
}
