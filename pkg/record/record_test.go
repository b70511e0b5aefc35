package record

import (
	"testing"

	"github.com/orneryd/cypherengine/pkg/graph"
)

func TestCloneIsIndependent(t *testing.T) {
	m := NewMap()
	m.Add("a")
	r := New(m)
	r.SetScalar("a", "x")

	cp := r.Clone()
	cp.SetScalar("a", "y")

	slot, _ := r.Get("a")
	if slot.Scalar != "x" {
		t.Fatalf("expected original record untouched, got %v", slot.Scalar)
	}
}

func TestSetNodeAndGet(t *testing.T) {
	m := NewMap()
	m.Add("n")
	r := New(m)
	n := &graph.Node{ID: 1}
	r.SetNode("n", n)

	slot, ok := r.Get("n")
	if !ok || slot.Type != SlotNode || slot.Node != n {
		t.Fatalf("expected bound node slot, got %+v", slot)
	}
}

func TestUnknownAliasIgnored(t *testing.T) {
	m := NewMap()
	r := New(m)
	r.SetScalar("missing", 1) // must not panic
	if _, ok := r.Get("missing"); ok {
		t.Fatalf("expected no slot for unregistered alias")
	}
}

func TestPathLength(t *testing.T) {
	p := &Path{Nodes: []*graph.Node{{ID: 1}, {ID: 2}}, Edges: []*graph.Edge{{ID: 1}}}
	if p.Length() != 1 {
		t.Fatalf("expected length 1, got %d", p.Length())
	}
}
