package planner

import (
	"github.com/orneryd/cypherengine/pkg/algebra"
	"github.com/orneryd/cypherengine/pkg/arithmetic"
	"github.com/orneryd/cypherengine/pkg/ast"
	"github.com/orneryd/cypherengine/pkg/filtertree"
	"github.com/orneryd/cypherengine/pkg/graph"
	"github.com/orneryd/cypherengine/pkg/operators"
	"github.com/orneryd/cypherengine/pkg/querygraph"
)

// buildMatch translates one MATCH/OPTIONAL MATCH clause into an operator
// tree (spec §4.3): each connected component of the pattern becomes its
// own scan+traversal chain, nested under the previous component so the
// combined stream is their implicit cartesian product, and a WHERE
// predicate is attached as a single Filter above the whole clause — the
// optimizer's filter-placement pass (spec §4.5 rule 3) is responsible for
// pushing individual conjuncts down, not this builder.
func (b *builder) buildMatch(c *ast.MatchClause, prior operators.Op) (operators.Op, error) {
	if !c.Optional {
		cur := prior
		for _, comp := range c.Pattern.ConnectedComponents() {
			var err error
			cur, err = b.buildComponent(comp, cur)
			if err != nil {
				return nil, err
			}
		}
		return b.applyWhere(c.Where, cur), nil
	}

	left := prior
	if left == nil {
		left = newUnitSource()
	}
	var leftMod []string
	if prior != nil {
		leftMod = prior.Modifies()
	}
	arg := operators.NewArgument(leftMod)
	var right operators.Op = arg
	for _, comp := range c.Pattern.ConnectedComponents() {
		var err error
		right, err = b.buildComponent(comp, right)
		if err != nil {
			return nil, err
		}
	}
	right = b.applyWhere(c.Where, right)
	return operators.NewOptional(left, right, arg), nil
}

func (b *builder) applyWhere(where filtertree.Tree, cur operators.Op) operators.Op {
	if where == nil {
		return cur
	}
	return operators.NewFilter(cur, where)
}

// buildComponent builds one connected component's scan+traversal chain,
// nested under prior so an existing stream fans out across it (spec
// §4.3's implicit cartesian product between independently-matched
// components). Traversal order is a plain BFS from the component's first
// already-bound node (falling back to its first node) — picking a
// smarter order by selectivity is the optimizer's traversal-ordering pass
// (spec §4.5 rule 7), not the builder's.
func (b *builder) buildComponent(comp *querygraph.Graph, prior operators.Op) (operators.Op, error) {
	if len(comp.Nodes) == 0 {
		return prior, nil
	}
	if sp, ok := soleShortestPathEdge(comp); ok {
		return b.buildShortestPath(comp, sp, prior)
	}

	type edgeRef struct {
		other *querygraph.Node
		edge  *querygraph.Edge
	}
	adj := make(map[string][]edgeRef, len(comp.Nodes))
	for _, e := range comp.Edges {
		adj[e.Src.Alias] = append(adj[e.Src.Alias], edgeRef{other: e.Dest, edge: e})
		adj[e.Dest.Alias] = append(adj[e.Dest.Alias], edgeRef{other: e.Src, edge: e})
	}

	start := comp.Nodes[0]
	for _, n := range comp.Nodes {
		if b.bound[n.Alias] {
			start = n
			break
		}
	}

	cur, err := b.scanForNode(start, prior)
	if err != nil {
		return nil, err
	}
	visited := map[string]bool{start.Alias: true}
	used := map[*querygraph.Edge]bool{}
	queue := []*querygraph.Node{start}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, ref := range adj[u.Alias] {
			if used[ref.edge] || visited[ref.other.Alias] {
				continue
			}
			used[ref.edge] = true
			visited[ref.other.Alias] = true
			cur, err = b.buildEdgeStep(cur, u, ref.other, ref.edge, true)
			if err != nil {
				return nil, err
			}
			b.m.Add(ref.other.Alias)
			b.bound[ref.other.Alias] = true
			if ref.edge.Alias != "" {
				b.m.Add(ref.edge.Alias)
				b.bound[ref.edge.Alias] = true
			}
			queue = append(queue, ref.other)
		}
	}
	// Edges left over connect two already-visited nodes (a cycle-closing
	// edge within the pattern): verify reachability without binding a new
	// slot, via ExpandInto.
	for _, e := range comp.Edges {
		if used[e] {
			continue
		}
		used[e] = true
		cur, err = b.buildEdgeStep(cur, e.Src, e.Dest, e, false)
		if err != nil {
			return nil, err
		}
		if e.Alias != "" {
			b.m.Add(e.Alias)
			b.bound[e.Alias] = true
		}
	}
	return cur, nil
}

func soleShortestPathEdge(comp *querygraph.Graph) (*querygraph.Edge, bool) {
	if len(comp.Edges) != 1 || !comp.Edges[0].ShortestPath {
		return nil, false
	}
	return comp.Edges[0], true
}

// buildShortestPath handles a `shortestPath(...)` pattern (original_source
// supplement: this engine requires both endpoints already bound by an
// earlier clause, surfacing ErrUnboundEndpoint at build time rather than
// letting ShortestPathTraverse fail every row at runtime).
func (b *builder) buildShortestPath(comp *querygraph.Graph, e *querygraph.Edge, prior operators.Op) (operators.Op, error) {
	if !b.bound[e.Src.Alias] || !b.bound[e.Dest.Alias] {
		return nil, ErrUnboundEndpoint
	}
	expr := b.edgeExpression(e)
	pathAlias := e.Alias
	if pathAlias == "" {
		pathAlias = e.Src.Alias + "_" + e.Dest.Alias + "_path"
	}
	b.m.Add(pathAlias)
	b.bound[pathAlias] = true
	return operators.NewShortestPathTraverse(prior, expr, pathAlias, e.MinHops, e.MaxHops), nil
}

// scanForNode returns the operator stream that makes n's alias resolvable:
// if it's already bound by an earlier clause, prior already carries it and
// nothing new is added; otherwise a scan is introduced, nested under prior
// when prior is non-nil so every existing row is fanned out across it.
func (b *builder) scanForNode(n *querygraph.Node, prior operators.Op) (operators.Op, error) {
	if b.bound[n.Alias] {
		return prior, nil
	}
	var scan operators.Op
	if len(n.LabelIDs) == 0 {
		scan = operators.NewAllNodeScan(n.Alias, prior)
	} else {
		scan = operators.NewLabelScan(n.Alias, n.LabelIDs[0], prior)
		for _, extra := range n.LabelIDs[1:] {
			scan = operators.NewFilter(scan, &filtertree.Expr{Expression: &hasLabelExpr{Alias: n.Alias, Label: extra}})
		}
	}
	b.m.Add(n.Alias)
	b.bound[n.Alias] = true
	return scan, nil
}

// buildEdgeStep advances the chain by one pattern edge. fanOut true means
// `to` is a fresh alias bound by this step (a traversal); false means both
// endpoints are already bound and the edge is only verified (ExpandInto).
func (b *builder) buildEdgeStep(cur operators.Op, from, to *querygraph.Node, e *querygraph.Edge, fanOut bool) (operators.Op, error) {
	if !fanOut {
		expr := b.edgeExpression(e)
		return operators.NewExpandInto(cur, expr, e.Alias, relationIDs(b.store, e)), nil
	}

	expr := b.edgeExpressionDirected(from, to, e)
	dir := traverseDir(from, e)
	if e.IsVariableLength() && !e.ShortestPath {
		return operators.NewVariableLengthTraverse(cur, expr, to.Alias, e.MinHops, e.MaxHops), nil
	}
	return operators.NewConditionalTraverse(cur, expr, to.Alias, e.Alias, relationIDs(b.store, e), dir), nil
}

// realEndpoints returns the pattern edge's true (storage) src/dest aliases:
// an Outgoing edge is stored Src->Dest; Incoming is stored Dest->Src; Both
// is storage-direction-agnostic and is resolved by the caller instead.
func realEndpoints(e *querygraph.Edge) (srcAlias, destAlias string) {
	if e.Direction == querygraph.Incoming {
		return e.Dest.Alias, e.Src.Alias
	}
	return e.Src.Alias, e.Dest.Alias
}

// traverseDir reports the querygraph.Direction to hand to
// ConditionalTraverse's edge enumeration (spec §4.4 step 5) for a step
// walking from `from`: Both enumerates edges either way; otherwise it is
// Outgoing when walking in storage direction, Incoming when walking
// against it.
func traverseDir(from *querygraph.Node, e *querygraph.Edge) querygraph.Direction {
	if e.Direction == querygraph.Both {
		return querygraph.Both
	}
	realSrc, _ := realEndpoints(e)
	if from.Alias == realSrc {
		return querygraph.Outgoing
	}
	return querygraph.Incoming
}

// edgeExpressionDirected builds the algebraic expression for a fan-out
// traversal step from `from` to `to` (spec §3.4, §4.4): the relation
// matrix (or union of several relation-type matrices), transposed
// relative to the pattern's storage direction when walking against it,
// or both ways at once for an undirected (`Both`) pattern edge.
func (b *builder) edgeExpressionDirected(from, to *querygraph.Node, e *querygraph.Edge) *algebra.Expression {
	rels := relationIDs(b.store, e)
	var flags []bool
	if e.Direction == querygraph.Both {
		flags = []bool{false, true}
	} else {
		realSrc, _ := realEndpoints(e)
		flags = []bool{from.Alias != realSrc}
	}
	return b.algebraExpression(from.Alias, to.Alias, e.Alias, rels, flags)
}

// edgeExpression builds a non-fan-out (ExpandInto) expression: always
// oriented in the pattern's storage direction, since ExpandInto checks
// src->dest membership directly without a direction switch.
func (b *builder) edgeExpression(e *querygraph.Edge) *algebra.Expression {
	realSrc, realDest := realEndpoints(e)
	rels := relationIDs(b.store, e)
	return b.algebraExpression(realSrc, realDest, e.Alias, rels, []bool{false})
}

func (b *builder) algebraExpression(source, dest, edgeAlias string, rels []graph.RelationID, transposeFlags []bool) *algebra.Expression {
	var operands []algebra.Node
	for _, rel := range rels {
		m := b.store.GetRelationMatrix(rel)
		for _, tf := range transposeFlags {
			operands = append(operands, &algebra.Operand{M: m, Transposed: tf})
		}
	}
	var relPart algebra.Node
	if len(operands) == 1 {
		relPart = operands[0]
	} else {
		relPart = &algebra.Add{Children: operands}
	}
	root := &algebra.Multiply{Children: []algebra.Node{relPart}}
	return &algebra.Expression{Root: root, Source: source, Destination: dest, Edge: edgeAlias}
}

// relationIDs resolves a pattern edge's allowed relation types; an edge
// with no type restriction matches every relation type currently known to
// the schema (spec §3.2: an untyped edge pattern matches any relationship).
func relationIDs(store graph.Store, e *querygraph.Edge) []graph.RelationID {
	if len(e.TypeIDs) > 0 {
		return e.TypeIDs
	}
	reg := store.Schema()
	names := reg.AllRelations()
	out := make([]graph.RelationID, 0, len(names))
	for _, name := range names {
		out = append(out, reg.GetRelationID(name))
	}
	return out
}

// hasLabelExpr is a narrow arithmetic.Expression checking whether a bound
// node carries an additional label beyond the one its physical scan
// already selected on (spec §3.2: a pattern node may name more than one
// label, all of which must match).
type hasLabelExpr struct {
	Alias string
	Label graph.LabelID
}

func (h *hasLabelExpr) Aliases() []string { return []string{h.Alias} }
func (h *hasLabelExpr) Clone() arithmetic.Expression {
	return &hasLabelExpr{Alias: h.Alias, Label: h.Label}
}

func (h *hasLabelExpr) Eval(ctx *arithmetic.Context) (any, error) {
	slot, ok := ctx.Record.Get(h.Alias)
	if !ok || slot.Node == nil {
		return false, nil
	}
	return slot.Node.HasLabel(h.Label), nil
}
