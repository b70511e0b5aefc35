// Package querygraph is the in-memory representation of a MATCH/CREATE/
// MERGE pattern (spec §3.2) — distinct from the stored graph. It is built
// by the plan builder from the AST and consumed by the algebra-conversion
// step that turns connected components into traversal expressions.
package querygraph

import (
	"github.com/orneryd/cypherengine/pkg/arithmetic"
	"github.com/orneryd/cypherengine/pkg/graph"
)

// Direction is the traversal direction an edge pattern was written with.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
	Both
)

// Node is one pattern node: its alias, resolved label ids, and any map
// literal properties a CREATE/MERGE pattern needs to set on a newly
// created node (spec §3.2). MATCH ignores Properties: a `{prop: val}`
// map literal on a MATCH pattern node is expected to already have been
// folded into the clause's WHERE filter tree by the caller, the way most
// Cypher engines desugar inline property-match syntax.
type Node struct {
	Alias      string
	LabelNames []string
	LabelIDs   []graph.LabelID
	Properties map[string]arithmetic.Expression
}

// Edge is one pattern edge: alias, allowed relation types, direction,
// hop bounds, and its endpoints. Non-variable-length edges always have
// MinHops == MaxHops == 1 (spec §3.2 invariant).
type Edge struct {
	Alias        string
	TypeNames    []string
	TypeIDs      []graph.RelationID
	Direction    Direction
	MinHops      int
	MaxHops      int
	ShortestPath bool
	Src, Dest    *Node
	Properties   map[string]arithmetic.Expression // CREATE/MERGE only, see Node.Properties
}

// IsVariableLength reports whether this edge spans more than one hop.
func (e *Edge) IsVariableLength() bool { return e.MinHops != 1 || e.MaxHops != 1 }

// Path is a named sequence of alternating node/edge pattern elements.
type Path struct {
	Alias    string
	Elements []any // alternating *Node, *Edge, *Node, ...
}

// Graph is one pattern: its nodes, edges, and any named paths.
type Graph struct {
	Nodes []*Node
	Edges []*Edge
	Paths []*Path
}

// New returns an empty query graph.
func New() *Graph { return &Graph{} }

// AddNode appends a node without checking for a duplicate alias. Aliases
// must be unique within a query graph (spec §3.2 invariant), so callers
// deduplicate re-references to a bound alias before calling AddNode.
func (g *Graph) AddNode(n *Node) { g.Nodes = append(g.Nodes, n) }

// AddEdge appends an edge. Both endpoints must already be members of g
// (spec §3.2 invariant).
func (g *Graph) AddEdge(e *Edge) { g.Edges = append(g.Edges, e) }

// NodeByAlias finds a pattern node by alias.
func (g *Graph) NodeByAlias(alias string) *Node {
	for _, n := range g.Nodes {
		if n.Alias == alias {
			return n
		}
	}
	return nil
}

// Clone deep-copies the query graph for use in a sub-plan (spec §3.2:
// "cloned for sub-plans").
func (g *Graph) Clone() *Graph {
	out := &Graph{}
	nodeByAlias := make(map[string]*Node, len(g.Nodes))
	for _, n := range g.Nodes {
		cp := &Node{Alias: n.Alias, LabelNames: append([]string(nil), n.LabelNames...), LabelIDs: append([]graph.LabelID(nil), n.LabelIDs...), Properties: cloneProps(n.Properties)}
		out.Nodes = append(out.Nodes, cp)
		nodeByAlias[n.Alias] = cp
	}
	for _, e := range g.Edges {
		cp := &Edge{
			Alias: e.Alias, TypeNames: append([]string(nil), e.TypeNames...),
			TypeIDs: append([]graph.RelationID(nil), e.TypeIDs...),
			Direction: e.Direction, MinHops: e.MinHops, MaxHops: e.MaxHops,
			ShortestPath: e.ShortestPath,
			Src:          nodeByAlias[e.Src.Alias], Dest: nodeByAlias[e.Dest.Alias],
			Properties: cloneProps(e.Properties),
		}
		out.Edges = append(out.Edges, cp)
	}
	return out
}

// ConnectedComponents partitions the query graph's edges (and any
// resulting isolated nodes) into maximal sub-patterns reachable through
// pattern edges (spec glossary: "connected component"). Each component is
// returned as its own Graph sharing the same *Node/*Edge pointers as g.
func (g *Graph) ConnectedComponents() []*Graph {
	parent := make(map[string]string, len(g.Nodes))
	var find func(string) string
	find = func(a string) string {
		if parent[a] != a {
			parent[a] = find(parent[a])
		}
		return parent[a]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}
	for _, n := range g.Nodes {
		parent[n.Alias] = n.Alias
	}
	for _, e := range g.Edges {
		union(e.Src.Alias, e.Dest.Alias)
	}

	groups := make(map[string]*Graph)
	for _, n := range g.Nodes {
		root := find(n.Alias)
		grp, ok := groups[root]
		if !ok {
			grp = &Graph{}
			groups[root] = grp
		}
		grp.Nodes = append(grp.Nodes, n)
	}
	for _, e := range g.Edges {
		root := find(e.Src.Alias)
		groups[root].Edges = append(groups[root].Edges, e)
	}

	out := make([]*Graph, 0, len(groups))
	for _, grp := range groups {
		out = append(out, grp)
	}
	return out
}

func cloneProps(in map[string]arithmetic.Expression) map[string]arithmetic.Expression {
	if in == nil {
		return nil
	}
	out := make(map[string]arithmetic.Expression, len(in))
	for k, v := range in {
		out[k] = v.Clone()
	}
	return out
}
