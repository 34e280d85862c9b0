package graph

import (
	"errors"
	"reflect"
	"testing"
)

func diamond(t *testing.T) *Graph {
	t.Helper()
	g, err := Build([]Node{
		{ID: "A"},
		{ID: "B", Deps: []string{"A"}},
		{ID: "C", Deps: []string{"A"}},
		{ID: "D", Deps: []string{"B", "C"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return g
}

func ids(g *Graph, idx []int) []string {
	out := make([]string, len(idx))
	for i, n := range idx {
		out[i] = g.ID(n)
	}
	return out
}

func TestBuild_UnknownDependency(t *testing.T) {
	_, err := Build([]Node{{ID: "A", Deps: []string{"missing"}}})
	var unknown *UnknownDependencyError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownDependencyError, got %v", err)
	}
	if unknown.Node != "A" || unknown.Dependency != "missing" {
		t.Errorf("unexpected error fields: %+v", unknown)
	}
}

func TestBuild_DuplicateNode(t *testing.T) {
	_, err := Build([]Node{{ID: "A"}, {ID: "A"}})
	if !errors.Is(err, ErrDuplicateNode) {
		t.Fatalf("expected ErrDuplicateNode, got %v", err)
	}
}

func TestBuild_EmptyID(t *testing.T) {
	_, err := Build([]Node{{ID: ""}})
	if !errors.Is(err, ErrEmptyID) {
		t.Fatalf("expected ErrEmptyID, got %v", err)
	}
}

func TestBuild_DeduplicatesEdges(t *testing.T) {
	g, err := Build([]Node{{ID: "A"}, {ID: "B", Deps: []string{"A", "A"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(g.Deps(1)) != 1 {
		t.Errorf("expected 1 dependency, got %d", len(g.Deps(1)))
	}
	levels, err := g.Levels()
	if err != nil || len(levels) != 2 {
		t.Errorf("expected 2 levels from a single edge, got %v (%v)", levels, err)
	}
}

func TestFindCycle_Acyclic(t *testing.T) {
	g := diamond(t)
	if path := g.FindCycle(); path != nil {
		t.Errorf("expected no cycle, got %v", path)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFindCycle_SelfDependency(t *testing.T) {
	g, err := Build([]Node{{ID: "A", Deps: []string{"A"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path := g.FindCycle()
	if !reflect.DeepEqual(path, []string{"A", "A"}) {
		t.Errorf("expected [A A], got %v", path)
	}
	if err := g.Validate(); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("expected ErrCycleDetected, got %v", err)
	}
}

func TestFindCycle_Witness(t *testing.T) {
	g, err := Build([]Node{
		{ID: "root"},
		{ID: "A", Deps: []string{"root", "C"}},
		{ID: "B", Deps: []string{"A"}},
		{ID: "C", Deps: []string{"B"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := g.FindCycle()
	want := []string{"A", "C", "B", "A"}
	if !reflect.DeepEqual(path, want) {
		t.Errorf("expected %v, got %v", want, path)
	}

	var cycle *CycleError
	if !errors.As(g.Validate(), &cycle) {
		t.Fatal("expected CycleError")
	}
	if cycle.Error() != "circular dependency detected: A -> C -> B -> A" {
		t.Errorf("unexpected message: %q", cycle.Error())
	}
}

func TestLevels_Diamond(t *testing.T) {
	g := diamond(t)
	levels, err := g.Levels()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got [][]string
	for _, level := range levels {
		got = append(got, ids(g, level))
	}
	want := [][]string{{"A"}, {"B", "C"}, {"D"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestLevels_Cycle(t *testing.T) {
	g, err := Build([]Node{
		{ID: "A"},
		{ID: "B", Deps: []string{"A", "C"}},
		{ID: "C", Deps: []string{"B"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	levels, err := g.Levels()
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}
	if len(levels) != 1 || g.ID(levels[0][0]) != "A" {
		t.Errorf("expected only A to be placed, got %v", levels)
	}
}

func TestReady(t *testing.T) {
	g := diamond(t)
	executed := make([]bool, g.Len())
	done := func(i int) bool { return executed[i] }

	if got := ids(g, g.Ready(done)); !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("round 1: expected [A], got %v", got)
	}

	executed[0] = true
	if got := ids(g, g.Ready(done)); !reflect.DeepEqual(got, []string{"B", "C"}) {
		t.Errorf("round 2: expected [B C], got %v", got)
	}

	executed[1] = true
	if got := ids(g, g.Ready(done)); !reflect.DeepEqual(got, []string{"C"}) {
		t.Errorf("expected D to wait for C, got %v", got)
	}

	executed[2] = true
	if got := ids(g, g.Ready(done)); !reflect.DeepEqual(got, []string{"D"}) {
		t.Errorf("round 3: expected [D], got %v", got)
	}
}

func TestIndex(t *testing.T) {
	g := diamond(t)
	i, ok := g.Index("C")
	if !ok || i != 2 {
		t.Errorf("expected C at index 2, got %d (%v)", i, ok)
	}
	if _, ok := g.Index("Z"); ok {
		t.Error("expected unknown ID to be absent")
	}
}
