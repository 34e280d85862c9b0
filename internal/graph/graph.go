// Package graph provides the dependency graph used for step scheduling.
//
// Nodes are interned into dense integer indices at build time; all
// traversal works on index adjacency lists rather than IDs.
package graph

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrCycleDetected indicates a circular dependency was found in the graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// ErrDuplicateNode indicates two nodes share an ID.
var ErrDuplicateNode = errors.New("duplicate node id")

// ErrEmptyID indicates a node without an ID.
var ErrEmptyID = errors.New("empty node id")

// CycleError carries a witness path for a detected cycle. The first and
// last elements are the same node.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return ErrCycleDetected.Error()
	}
	return fmt.Sprintf("%s: %s", ErrCycleDetected, strings.Join(e.Path, " -> "))
}

// Is reports whether target is ErrCycleDetected.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycleDetected
}

// UnknownDependencyError reports a dependency on a node outside the graph.
type UnknownDependencyError struct {
	Node       string
	Dependency string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("%s depends on unknown node %s", e.Node, e.Dependency)
}

// Node is the input shape for Build.
type Node struct {
	ID   string
	Deps []string
}

// Graph is an immutable dependency graph. Edges point from a node to the
// nodes it depends on.
type Graph struct {
	ids        []string
	index      map[string]int
	deps       [][]int
	dependents [][]int
}

// Build interns nodes in declaration order and resolves their edges.
// It reports structural problems (empty or duplicate IDs, unknown
// dependencies) but not cycles; call FindCycle or Validate for those.
func Build(nodes []Node) (*Graph, error) {
	g := &Graph{
		ids:        make([]string, len(nodes)),
		index:      make(map[string]int, len(nodes)),
		deps:       make([][]int, len(nodes)),
		dependents: make([][]int, len(nodes)),
	}

	for i, n := range nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("node %d: %w", i, ErrEmptyID)
		}
		if _, exists := g.index[n.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
		}
		g.ids[i] = n.ID
		g.index[n.ID] = i
	}

	for i, n := range nodes {
		seen := make(map[int]bool, len(n.Deps))
		for _, dep := range n.Deps {
			j, ok := g.index[dep]
			if !ok {
				return nil, &UnknownDependencyError{Node: n.ID, Dependency: dep}
			}
			if seen[j] {
				continue
			}
			seen[j] = true
			g.deps[i] = append(g.deps[i], j)
			g.dependents[j] = append(g.dependents[j], i)
		}
	}

	return g, nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.ids)
}

// ID returns the ID of node i.
func (g *Graph) ID(i int) string {
	return g.ids[i]
}

// Index returns the index of the node with the given ID.
func (g *Graph) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Deps returns the indices node i depends on.
func (g *Graph) Deps(i int) []int {
	return g.deps[i]
}

// FindCycle returns a cycle witness path, or nil if the graph is acyclic.
// It runs an iterative depth-first search with an explicit stack; a
// dependency that is still on the stack closes a cycle. Roots and edges
// are visited in declaration order so the witness is deterministic.
func (g *Graph) FindCycle() []string {
	const (
		white = iota
		gray
		black
	)

	type frame struct {
		node int
		edge int
	}

	color := make([]uint8, len(g.ids))
	depth := make([]int, len(g.ids))

	for root := range g.ids {
		if color[root] != white {
			continue
		}

		color[root] = gray
		depth[root] = 0
		stack := []frame{{node: root}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.edge == len(g.deps[top.node]) {
				color[top.node] = black
				stack = stack[:len(stack)-1]
				continue
			}

			next := g.deps[top.node][top.edge]
			top.edge++

			switch color[next] {
			case gray:
				path := make([]string, 0, len(stack)-depth[next]+1)
				for _, f := range stack[depth[next]:] {
					path = append(path, g.ids[f.node])
				}
				return append(path, g.ids[next])
			case white:
				color[next] = gray
				depth[next] = len(stack)
				stack = append(stack, frame{node: next})
			}
		}
	}

	return nil
}

// Validate returns a *CycleError if the graph contains a cycle.
func (g *Graph) Validate() error {
	if path := g.FindCycle(); path != nil {
		return &CycleError{Path: path}
	}
	return nil
}

// Levels groups nodes into topological rounds: every node in a round
// depends only on nodes in earlier rounds. Nodes within a round keep
// declaration order.
func (g *Graph) Levels() ([][]int, error) {
	remaining := make([]int, len(g.ids))
	for i := range g.ids {
		remaining[i] = len(g.deps[i])
	}

	var current []int
	for i, n := range remaining {
		if n == 0 {
			current = append(current, i)
		}
	}

	var levels [][]int
	placed := 0
	for len(current) > 0 {
		levels = append(levels, current)
		placed += len(current)

		var next []int
		for _, i := range current {
			for _, d := range g.dependents[i] {
				remaining[d]--
				if remaining[d] == 0 {
					next = append(next, d)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if placed != len(g.ids) {
		return levels, &CycleError{Path: g.FindCycle()}
	}
	return levels, nil
}

// Ready returns, in declaration order, the nodes that are not yet
// executed and whose dependencies all are.
func (g *Graph) Ready(executed func(i int) bool) []int {
	var ready []int
	for i := range g.ids {
		if executed(i) {
			continue
		}
		ok := true
		for _, d := range g.deps[i] {
			if !executed(d) {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, i)
		}
	}
	return ready
}
