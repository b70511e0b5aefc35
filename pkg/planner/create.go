package planner

import (
	"github.com/orneryd/cypherengine/pkg/arithmetic"
	"github.com/orneryd/cypherengine/pkg/ast"
	"github.com/orneryd/cypherengine/pkg/graph"
	"github.com/orneryd/cypherengine/pkg/operators"
	"github.com/orneryd/cypherengine/pkg/querygraph"
)

// buildCreate translates a CREATE clause (spec §4.3, §4.2.7): every
// pattern node/edge not already bound by an earlier clause becomes a new
// entity; aliases already bound are matched, not re-created.
func (b *builder) buildCreate(c *ast.CreateClause, prior operators.Op) (operators.Op, error) {
	base := prior
	if base == nil {
		base = newUnitSource()
	}
	nodes, edges := b.patternToWrite(c.Pattern)
	return operators.NewCreate(base, nodes, edges), nil
}

// buildMerge translates a MERGE clause (spec §4.2.7): a Match branch and a
// Create branch, each independently driven from a clone of the incoming
// stream (operators are built to support exactly this — Clone() returns
// an independently iterable copy of a whole subtree), joined by the
// Merge operator's "use Match's rows if any, else run Create" contract.
//
// Both branches must see the query's alias-bound state as it stood before
// MERGE ran — not whichever speculative bindings MATCH's component build
// leaves behind — because whether MATCH or CREATE actually fires is a
// runtime, per-row decision, not something this builder can predict.
// b.bound is therefore snapshotted and restored between the two branches.
func (b *builder) buildMerge(c *ast.MergeClause, prior operators.Op) (operators.Op, error) {
	snapshot := make(map[string]bool, len(b.bound))
	for k, v := range b.bound {
		snapshot[k] = v
	}

	baseOp := func() operators.Op {
		if prior == nil {
			return newUnitSource()
		}
		return prior.Clone()
	}

	matchRoot := baseOp()
	for _, comp := range c.Pattern.ConnectedComponents() {
		var err error
		matchRoot, err = b.buildComponent(comp, matchRoot)
		if err != nil {
			return nil, err
		}
	}

	b.bound = snapshot
	nodes, edges := b.patternToWrite(c.Pattern)
	createRoot := operators.NewCreate(baseOp(), nodes, edges)

	onMatch, err := b.updateSets(c.OnMatchSets)
	if err != nil {
		return nil, err
	}
	onCreate, err := b.updateSets(c.OnCreateSets)
	if err != nil {
		return nil, err
	}
	return operators.NewMerge(matchRoot, onMatch, createRoot, onCreate), nil
}

// patternToWrite converts a pattern's not-yet-bound nodes/edges into the
// Create operator's NodePattern/EdgePattern shape, resolving label,
// relation, and property names against the schema registry and marking
// every alias it introduces as bound.
func (b *builder) patternToWrite(g *querygraph.Graph) ([]operators.NodePattern, []operators.EdgePattern) {
	reg := b.store.Schema()
	var nodes []operators.NodePattern
	for _, n := range g.Nodes {
		if b.bound[n.Alias] {
			continue
		}
		nodes = append(nodes, operators.NodePattern{
			Alias:      n.Alias,
			Labels:     append([]graph.LabelID(nil), n.LabelIDs...),
			Properties: b.propsFor(n.Properties),
		})
		b.m.Add(n.Alias)
		b.bound[n.Alias] = true
	}

	var edges []operators.EdgePattern
	for _, e := range g.Edges {
		rel := graph.RelationID(graph.UnknownID)
		switch {
		case len(e.TypeIDs) > 0:
			rel = e.TypeIDs[0]
		case len(e.TypeNames) > 0:
			rel = reg.FindOrAddRelationID(e.TypeNames[0])
		}
		edges = append(edges, operators.EdgePattern{
			Alias:      e.Alias,
			SrcAlias:   e.Src.Alias,
			DestAlias:  e.Dest.Alias,
			Relation:   rel,
			Properties: b.propsFor(e.Properties),
		})
		if e.Alias != "" {
			b.m.Add(e.Alias)
			b.bound[e.Alias] = true
		}
	}
	return nodes, edges
}

func (b *builder) propsFor(props map[string]arithmetic.Expression) []operators.PropertySet {
	if len(props) == 0 {
		return nil
	}
	out := make([]operators.PropertySet, 0, len(props))
	for name, expr := range props {
		out = append(out, operators.PropertySet{Attribute: b.attrID(name), Expr: expr})
	}
	return out
}
