package operators

import (
	"fmt"

	"github.com/orneryd/cypherengine/pkg/algebra"
	"github.com/orneryd/cypherengine/pkg/graph"
	"github.com/orneryd/cypherengine/pkg/matrix"
	"github.com/orneryd/cypherengine/pkg/querygraph"
	"github.com/orneryd/cypherengine/pkg/record"
)

const defaultBatchSize = 16

// ConditionalTraverse takes one step along an algebraic expression `A * R`
// in batches (spec §4.2.2, §4.4). Up to BatchSize child records are
// assembled into a filter matrix F, spliced in as the expression's
// leftmost operand, and the product's tuple iterator yields (batch_row,
// dest_id) pairs — one emitted record per pair, further fanned out per
// matching edge when an edge alias is bound.
type ConditionalTraverse struct {
	Base
	Expr        *algebra.Expression
	DestAlias   string
	EdgeAlias   string
	Relations   []graph.RelationID
	Dir         querygraph.Direction

	batch    []*record.Record
	it       *matrix.TupleIterator
	edgeBuf  []*graph.Edge
	edgeIdx  int
	curRow   int
	curDest  graph.NodeID
	done     bool
}

// NewConditionalTraverse builds a conditional-traverse operator. expr must
// already have its filter-matrix leftmost operand slot available (i.e. be
// a Multiply whose leftmost operand is replaced once via PrependOperand on
// first use, per spec §4.4 step 1).
func NewConditionalTraverse(child Op, expr *algebra.Expression, destAlias, edgeAlias string, relations []graph.RelationID, dir querygraph.Direction) *ConditionalTraverse {
	modifies := []string{destAlias}
	if edgeAlias != "" {
		modifies = append(modifies, edgeAlias)
	}
	return &ConditionalTraverse{
		Base:      Base{NameStr: "Conditional Traverse", ChildOps: []Op{child}, ModifiesList: modifies},
		Expr:      expr,
		DestAlias: destAlias,
		EdgeAlias: edgeAlias,
		Relations: relations,
		Dir:       dir,
	}
}

func (t *ConditionalTraverse) Init(ctx *ExecContext) error {
	if err := t.initChildren(ctx); err != nil {
		return err
	}
	bs := ctx.BatchSize
	if bs <= 0 {
		bs = defaultBatchSize
	}
	t.batch = make([]*record.Record, 0, bs)
	return nil
}

func (t *ConditionalTraverse) Reset() error {
	t.batch = t.batch[:0]
	t.it = nil
	t.edgeBuf = nil
	t.done = false
	return t.resetChildren()
}

// fillBatch pulls up to cap(batch) source records from the child,
// building the filter matrix F and evaluating the expression into M.
func (t *ConditionalTraverse) fillBatch() error {
	t.batch = t.batch[:0]
	for len(t.batch) < cap(t.batch) {
		rec, err := t.child().Consume()
		if err != nil {
			return err
		}
		if rec == nil {
			break
		}
		t.batch = append(t.batch, rec)
	}
	if len(t.batch) == 0 {
		t.done = true
		return nil
	}
	srcIDs := make([]uint64, len(t.batch))
	for i, rec := range t.batch {
		slot, _ := rec.Get(t.Expr.Source)
		if slot.Node != nil {
			srcIDs[i] = uint64(slot.Node.ID)
		}
	}
	f := matrix.Select(srcIDs)
	t.Expr.PrependOperand(&algebra.Operand{M: f})
	m := t.Expr.Evaluate()
	// undo the splice so a future fillBatch call starts from the
	// un-prepended expression shape again.
	t.Expr.PopSourceOperand()
	t.it = matrix.NewTupleIterator(m)
	return nil
}

func (t *ConditionalTraverse) Consume() (*record.Record, error) {
	for {
		if t.edgeIdx < len(t.edgeBuf) {
			rec := t.batch[t.curRow].Clone()
			rec.SetNode(t.DestAlias, t.mustNode(t.curDest))
			rec.SetEdge(t.EdgeAlias, t.edgeBuf[t.edgeIdx])
			t.edgeIdx++
			return rec, nil
		}
		if t.it == nil {
			if t.done {
				return nil, nil
			}
			if err := t.fillBatch(); err != nil {
				return nil, err
			}
			if t.done {
				return nil, nil
			}
		}
		tup, ok := t.it.Next()
		if !ok {
			t.it = nil
			continue
		}
		destNode := t.mustNode(graph.NodeID(tup.Col))
		if destNode == nil {
			continue
		}
		if t.EdgeAlias == "" {
			rec := t.batch[tup.Row].Clone()
			rec.SetNode(t.DestAlias, destNode)
			return rec, nil
		}
		srcSlot, _ := t.batch[tup.Row].Get(t.Expr.Source)
		if srcSlot.Node == nil {
			continue
		}
		edges := t.edgesBetween(srcSlot.Node.ID, destNode.ID)
		if len(edges) == 0 {
			continue
		}
		t.curRow = int(tup.Row)
		t.curDest = destNode.ID
		t.edgeBuf = edges
		t.edgeIdx = 0
	}
}

func (t *ConditionalTraverse) mustNode(id graph.NodeID) *graph.Node {
	n, ok := t.Ctx.Store.GetNode(id)
	if !ok {
		return nil
	}
	return n
}

func (t *ConditionalTraverse) edgesBetween(src, dest graph.NodeID) []*graph.Edge {
	switch t.Dir {
	case querygraph.Incoming:
		return t.Ctx.Store.EdgesBetween(dest, src, t.Relations)
	case querygraph.Both:
		out := t.Ctx.Store.EdgesBetween(src, dest, t.Relations)
		return append(out, t.Ctx.Store.EdgesBetween(dest, src, t.Relations)...)
	default:
		return t.Ctx.Store.EdgesBetween(src, dest, t.Relations)
	}
}

func (t *ConditionalTraverse) Clone() Op {
	return NewConditionalTraverse(t.child().Clone(), t.Expr.Clone(), t.DestAlias, t.EdgeAlias, append([]graph.RelationID(nil), t.Relations...), t.Dir)
}

func (t *ConditionalTraverse) Free() { t.freeChildren() }

// VariableLengthTraverse expands a min-max hop range (spec §4.2.2) by
// repeatedly evaluating the single-hop expression, BFS-style, tracking
// visited destination ids per source to avoid cycles within one path.
type VariableLengthTraverse struct {
	Base
	Expr      *algebra.Expression
	DestAlias string
	MinHops   int
	MaxHops   int

	frontier []frontierEntry
	fIdx     int
	visited  map[graph.NodeID]bool
}

type frontierEntry struct {
	rec *record.Record
	id  graph.NodeID
	hop int
}

func NewVariableLengthTraverse(child Op, expr *algebra.Expression, destAlias string, minHops, maxHops int) *VariableLengthTraverse {
	return &VariableLengthTraverse{
		Base:      Base{NameStr: "Conditional Variable Length Traverse", ChildOps: []Op{child}, ModifiesList: []string{destAlias}},
		Expr:      expr, DestAlias: destAlias, MinHops: minHops, MaxHops: maxHops,
	}
}

func (t *VariableLengthTraverse) Init(ctx *ExecContext) error { return t.initChildren(ctx) }

func (t *VariableLengthTraverse) Reset() error {
	t.frontier = nil
	t.fIdx = 0
	t.visited = nil
	return t.resetChildren()
}

func (t *VariableLengthTraverse) Consume() (*record.Record, error) {
	for {
		for t.fIdx < len(t.frontier) {
			e := t.frontier[t.fIdx]
			t.fIdx++
			if e.hop > t.MaxHops {
				continue
			}
			next := t.step(e.id)
			for _, nid := range next {
				if t.visited[nid] {
					continue
				}
				t.visited[nid] = true
				t.frontier = append(t.frontier, frontierEntry{rec: e.rec, id: nid, hop: e.hop + 1})
			}
			if e.hop >= t.MinHops {
				n := t.mustNode(e.id)
				if n == nil {
					continue
				}
				rec := e.rec.Clone()
				rec.SetNode(t.DestAlias, n)
				return rec, nil
			}
		}
		rec, err := t.child().Consume()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, nil
		}
		slot, _ := rec.Get(t.Expr.Source)
		if slot.Node == nil {
			continue
		}
		t.frontier = []frontierEntry{{rec: rec, id: slot.Node.ID, hop: 0}}
		t.fIdx = 0
		t.visited = map[graph.NodeID]bool{slot.Node.ID: true}
	}
}

// step evaluates the expression's single-hop matrix for one source id,
// returning every raw neighbor id. Consume is what filters these against
// the per-source visited set before enqueueing or emitting them.
func (t *VariableLengthTraverse) step(src graph.NodeID) []graph.NodeID {
	f := matrix.Select([]uint64{uint64(src)})
	t.Expr.PrependOperand(&algebra.Operand{M: f})
	m := t.Expr.Evaluate()
	t.Expr.PopSourceOperand()
	it := matrix.NewTupleIterator(m)
	var out []graph.NodeID
	for {
		tup, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, graph.NodeID(tup.Col))
	}
	return out
}

func (t *VariableLengthTraverse) mustNode(id graph.NodeID) *graph.Node {
	n, _ := t.Ctx.Store.GetNode(id)
	return n
}

func (t *VariableLengthTraverse) Clone() Op {
	return NewVariableLengthTraverse(t.child().Clone(), t.Expr.Clone(), t.DestAlias, t.MinHops, t.MaxHops)
}

func (t *VariableLengthTraverse) Free() { t.freeChildren() }

// ExpandInto checks that an already-bound destination is reachable,
// without writing a new slot (spec §4.2.2).
type ExpandInto struct {
	Base
	Expr      *algebra.Expression
	EdgeAlias string
	Relations []graph.RelationID
}

func NewExpandInto(child Op, expr *algebra.Expression, edgeAlias string, relations []graph.RelationID) *ExpandInto {
	var modifies []string
	if edgeAlias != "" {
		modifies = []string{edgeAlias}
	}
	return &ExpandInto{Base: Base{NameStr: "Expand Into", ChildOps: []Op{child}, ModifiesList: modifies}, Expr: expr, EdgeAlias: edgeAlias, Relations: relations}
}

func (e *ExpandInto) Init(ctx *ExecContext) error { return e.initChildren(ctx) }
func (e *ExpandInto) Reset() error                { return e.resetChildren() }

func (e *ExpandInto) Consume() (*record.Record, error) {
	for {
		rec, err := e.child().Consume()
		if err != nil || rec == nil {
			return rec, err
		}
		srcSlot, _ := rec.Get(e.Expr.Source)
		destSlot, _ := rec.Get(e.Expr.Destination)
		if srcSlot.Node == nil || destSlot.Node == nil {
			continue
		}
		if len(e.Relations) > 0 {
			reachable := false
			for _, rel := range e.Relations {
				row := e.Ctx.Store.GetRelationMatrix(rel).Row(uint64(srcSlot.Node.ID))
				if row != nil && row.Contains(uint32(destSlot.Node.ID)) {
					reachable = true
					break
				}
			}
			if !reachable {
				continue
			}
		}
		if e.EdgeAlias == "" {
			return rec, nil
		}
		edges := e.Ctx.Store.EdgesBetween(srcSlot.Node.ID, destSlot.Node.ID, e.Relations)
		if len(edges) == 0 {
			continue
		}
		out := rec.Clone()
		out.SetEdge(e.EdgeAlias, edges[0])
		return out, nil
	}
}

func (e *ExpandInto) Clone() Op {
	return NewExpandInto(e.child().Clone(), e.Expr.Clone(), e.EdgeAlias, append([]graph.RelationID(nil), e.Relations...))
}
func (e *ExpandInto) Free() { e.freeChildren() }

// ShortestPathTraverse finds one path per (src, dest) pair respecting
// min/max hops (spec §4.2.2), failing with a validation error if either
// endpoint is unbound — the spec's original_source-derived invariant that
// shortest-path requires both pattern endpoints already matched.
type ShortestPathTraverse struct {
	Base
	Expr      *algebra.Expression
	PathAlias string
	MinHops   int
	MaxHops   int
}

func NewShortestPathTraverse(child Op, expr *algebra.Expression, pathAlias string, minHops, maxHops int) *ShortestPathTraverse {
	return &ShortestPathTraverse{
		Base:      Base{NameStr: "Shortest Path Traverse", ChildOps: []Op{child}, ModifiesList: []string{pathAlias}},
		Expr:      expr, PathAlias: pathAlias, MinHops: minHops, MaxHops: maxHops,
	}
}

func (s *ShortestPathTraverse) Init(ctx *ExecContext) error { return s.initChildren(ctx) }
func (s *ShortestPathTraverse) Reset() error                { return s.resetChildren() }

func (s *ShortestPathTraverse) Consume() (*record.Record, error) {
	for {
		rec, err := s.child().Consume()
		if err != nil || rec == nil {
			return rec, err
		}
		srcSlot, _ := rec.Get(s.Expr.Source)
		destSlot, _ := rec.Get(s.Expr.Destination)
		if srcSlot.Node == nil || destSlot.Node == nil {
			return nil, fmt.Errorf("operators: shortest path requires both endpoints bound")
		}
		path := s.bfs(srcSlot.Node.ID, destSlot.Node.ID)
		if path == nil {
			continue
		}
		out := rec.Clone()
		out.SetPath(s.PathAlias, path)
		return out, nil
	}
}

func (s *ShortestPathTraverse) bfs(src, dest graph.NodeID) *record.Path {
	type qitem struct {
		id   graph.NodeID
		path []graph.NodeID
	}
	visited := map[graph.NodeID]bool{src: true}
	queue := []qitem{{id: src, path: []graph.NodeID{src}}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if len(cur.path)-1 > s.MaxHops {
			continue
		}
		if cur.id == dest && len(cur.path)-1 >= s.MinHops {
			return s.materialize(cur.path)
		}
		f := matrix.Select([]uint64{uint64(cur.id)})
		s.Expr.PrependOperand(&algebra.Operand{M: f})
		m := s.Expr.Evaluate()
		s.Expr.PopSourceOperand()
		it := matrix.NewTupleIterator(m)
		for {
			tup, ok := it.Next()
			if !ok {
				break
			}
			next := graph.NodeID(tup.Col)
			if visited[next] {
				continue
			}
			visited[next] = true
			np := append(append([]graph.NodeID(nil), cur.path...), next)
			queue = append(queue, qitem{id: next, path: np})
		}
	}
	return nil
}

func (s *ShortestPathTraverse) materialize(ids []graph.NodeID) *record.Path {
	p := &record.Path{}
	for i, id := range ids {
		n, _ := s.Ctx.Store.GetNode(id)
		p.Nodes = append(p.Nodes, n)
		if i+1 < len(ids) {
			edges := s.Ctx.Store.EdgesBetween(id, ids[i+1], nil)
			if len(edges) > 0 {
				p.Edges = append(p.Edges, edges[0])
			}
		}
	}
	return p
}

func (s *ShortestPathTraverse) Clone() Op {
	return NewShortestPathTraverse(s.child().Clone(), s.Expr.Clone(), s.PathAlias, s.MinHops, s.MaxHops)
}
func (s *ShortestPathTraverse) Free() { s.freeChildren() }
