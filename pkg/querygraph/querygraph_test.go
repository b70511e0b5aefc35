package querygraph

import "testing"

func TestConnectedComponentsSplitsDisjointPatterns(t *testing.T) {
	g := New()
	a := &Node{Alias: "a"}
	b := &Node{Alias: "b"}
	c := &Node{Alias: "c"}
	d := &Node{Alias: "d"}
	g.AddNode(a)
	g.AddNode(b)
	g.AddNode(c)
	g.AddNode(d)
	g.AddEdge(&Edge{Alias: "r1", Src: a, Dest: b, MinHops: 1, MaxHops: 1})
	g.AddEdge(&Edge{Alias: "r2", Src: c, Dest: d, MinHops: 1, MaxHops: 1})

	comps := g.ConnectedComponents()
	if len(comps) != 2 {
		t.Fatalf("expected 2 components, got %d", len(comps))
	}
	for _, comp := range comps {
		if len(comp.Nodes) != 2 || len(comp.Edges) != 1 {
			t.Fatalf("expected each component to have 2 nodes/1 edge, got %d/%d", len(comp.Nodes), len(comp.Edges))
		}
	}
}

func TestConnectedComponentsMergesChain(t *testing.T) {
	g := New()
	a, b, c := &Node{Alias: "a"}, &Node{Alias: "b"}, &Node{Alias: "c"}
	g.AddNode(a)
	g.AddNode(b)
	g.AddNode(c)
	g.AddEdge(&Edge{Alias: "r1", Src: a, Dest: b, MinHops: 1, MaxHops: 1})
	g.AddEdge(&Edge{Alias: "r2", Src: b, Dest: c, MinHops: 1, MaxHops: 1})

	comps := g.ConnectedComponents()
	if len(comps) != 1 {
		t.Fatalf("expected a single connected component, got %d", len(comps))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := New()
	a := &Node{Alias: "a", LabelNames: []string{"Person"}}
	g.AddNode(a)

	cp := g.Clone()
	cp.Nodes[0].LabelNames[0] = "Other"
	if g.Nodes[0].LabelNames[0] != "Person" {
		t.Fatalf("expected original graph untouched by clone mutation")
	}
}

func TestIsVariableLength(t *testing.T) {
	e := &Edge{MinHops: 1, MaxHops: 3}
	if !e.IsVariableLength() {
		t.Fatalf("expected variable-length edge to report true")
	}
	e2 := &Edge{MinHops: 1, MaxHops: 1}
	if e2.IsVariableLength() {
		t.Fatalf("expected fixed-hop edge to report false")
	}
}
