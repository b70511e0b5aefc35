package operators

import (
	"github.com/orneryd/cypherengine/pkg/arithmetic"
	"github.com/orneryd/cypherengine/pkg/graph"
	"github.com/orneryd/cypherengine/pkg/record"
)

// WriteStats accumulates the counters a write operator's last buildAll pass
// mutated (spec §6: ExecutePlan returns aggregate statistics alongside the
// result set — nodes/relationships created or deleted, properties set,
// labels added/removed). Each write operator only ever touches the counters
// its own mutations correspond to; CollectWriteStats sums them across a
// whole plan after it has finished draining.
type WriteStats struct {
	NodesCreated         int64
	NodesDeleted         int64
	RelationshipsCreated int64
	RelationshipsDeleted int64
	PropertiesSet        int64
	LabelsAdded          int64
	LabelsRemoved        int64
}

func (s *WriteStats) add(o WriteStats) {
	s.NodesCreated += o.NodesCreated
	s.NodesDeleted += o.NodesDeleted
	s.RelationshipsCreated += o.RelationshipsCreated
	s.RelationshipsDeleted += o.RelationshipsDeleted
	s.PropertiesSet += o.PropertiesSet
	s.LabelsAdded += o.LabelsAdded
	s.LabelsRemoved += o.LabelsRemoved
}

// StatsOp is implemented by write operators that track WriteStats across
// their own mutations (Create, Update, Merge, Delete).
type StatsOp interface {
	Stats() WriteStats
}

// CollectWriteStats walks a plan tree, summing every operator's WriteStats.
// Foreach's embedded SubPlan isn't reachable through Children() (it runs
// off an ArgumentList the Foreach operator pushes into directly, not a
// pulled child), so it's walked explicitly alongside the regular children.
func CollectWriteStats(root Op) WriteStats {
	var total WriteStats
	var walk func(Op)
	walk = func(op Op) {
		if s, ok := op.(StatsOp); ok {
			total.add(s.Stats())
		}
		if fe, ok := op.(*Foreach); ok && fe.SubPlan != nil {
			walk(fe.SubPlan)
		}
		for _, c := range op.Children() {
			walk(c)
		}
	}
	walk(root)
	return total
}

// PropertySet is one `property: expr` entry of a pattern's map literal.
type PropertySet struct {
	Attribute graph.AttributeID
	Expr      arithmetic.Expression
}

// NodePattern is one node CREATE/MERGE needs to build: an alias to bind
// the new node into, its labels, and its property map.
type NodePattern struct {
	Alias      string
	Labels     []graph.LabelID
	Properties []PropertySet
}

// EdgePattern is one edge CREATE/MERGE needs to build.
type EdgePattern struct {
	Alias      string
	SrcAlias   string
	DestAlias  string
	Relation   graph.RelationID
	Properties []PropertySet
}

func evalProps(props []PropertySet, ctx *arithmetic.Context) (map[graph.AttributeID]any, error) {
	out := make(map[graph.AttributeID]any, len(props))
	for _, p := range props {
		v, err := p.Expr.Eval(ctx)
		if err != nil {
			return nil, err
		}
		out[p.Attribute] = v
	}
	return out, nil
}

// Create builds the specified nodes and edges for each incoming record
// (spec §4.2.7). Aliases already bound earlier in the pattern are matched,
// not re-created — callers only list NodePatterns/EdgePatterns for
// genuinely new entities. All write operators buffer their input and only
// emit after running to completion (spec §4.2.7), since they must finish
// before the commit lock is acquired.
type Create struct {
	Base
	Nodes []NodePattern
	Edges []EdgePattern

	out   []*record.Record
	idx   int
	stats WriteStats
}

func NewCreate(child Op, nodes []NodePattern, edges []EdgePattern) *Create {
	var modifies []string
	for _, n := range nodes {
		modifies = append(modifies, n.Alias)
	}
	for _, e := range edges {
		if e.Alias != "" {
			modifies = append(modifies, e.Alias)
		}
	}
	return &Create{Base: Base{NameStr: "Create", ChildOps: []Op{child}, ModifiesList: modifies, Writer: true}, Nodes: nodes, Edges: edges}
}

func (c *Create) Init(ctx *ExecContext) error { return c.initChildren(ctx) }
func (c *Create) Reset() error {
	c.out = nil
	c.idx = 0
	c.stats = WriteStats{}
	return c.resetChildren()
}

func (c *Create) Consume() (*record.Record, error) {
	if c.out == nil {
		if err := c.buildAll(); err != nil {
			return nil, err
		}
	}
	if c.idx >= len(c.out) {
		return nil, nil
	}
	rec := c.out[c.idx]
	c.idx++
	return rec, nil
}

func (c *Create) buildAll() error {
	recs, err := drain(c.child())
	if err != nil {
		return err
	}
	c.out = make([]*record.Record, 0, len(recs))
	for _, rec := range recs {
		ctx := &arithmetic.Context{Record: rec, Params: c.Ctx.Params}
		for _, np := range c.Nodes {
			props, err := evalProps(np.Properties, ctx)
			if err != nil {
				return err
			}
			n := c.Ctx.Store.AddNode(np.Labels, props)
			rec.SetNode(np.Alias, n)
			c.stats.NodesCreated++
			c.stats.LabelsAdded += int64(len(np.Labels))
			c.stats.PropertiesSet += int64(len(props))
		}
		for _, ep := range c.Edges {
			srcSlot, _ := rec.Get(ep.SrcAlias)
			destSlot, _ := rec.Get(ep.DestAlias)
			if srcSlot.Node == nil || destSlot.Node == nil {
				continue
			}
			props, err := evalProps(ep.Properties, ctx)
			if err != nil {
				return err
			}
			e, err := c.Ctx.Store.CreateEdge(srcSlot.Node.ID, destSlot.Node.ID, ep.Relation, props)
			if err != nil {
				return err
			}
			if ep.Alias != "" {
				rec.SetEdge(ep.Alias, e)
			}
			c.stats.RelationshipsCreated++
			c.stats.PropertiesSet += int64(len(props))
		}
		c.out = append(c.out, rec)
	}
	return nil
}

// Stats returns the counters accumulated by the last buildAll pass.
func (c *Create) Stats() WriteStats { return c.stats }

func (c *Create) Clone() Op {
	return NewCreate(c.child().Clone(), append([]NodePattern(nil), c.Nodes...), append([]EdgePattern(nil), c.Edges...))
}
func (c *Create) Free() { c.freeChildren() }

// UpdateSet is one staged per-alias mutation (spec §4.2.7): an attribute
// write, or a label add/remove.
type UpdateSet struct {
	Alias     string
	Attribute graph.AttributeID
	Expr      arithmetic.Expression // nil for label ops
	AddLabel  *graph.LabelID
	DropLabel *graph.LabelID
}

// Update evaluates and stages per-alias mutations, applying them directly
// to the store per record (spec §4.2.7 — simplified from the two-phase
// stage/commit split: this engine's MemoryStore has no separate pending
// buffer, so Update applies eagerly and the commit phase only needs to
// serialize writers, not replay a change log).
type Update struct {
	Base
	Sets []UpdateSet

	out   []*record.Record
	idx   int
	stats WriteStats
}

func NewUpdate(child Op, sets []UpdateSet) *Update {
	return &Update{Base: Base{NameStr: "Update", ChildOps: []Op{child}, Writer: true}, Sets: sets}
}

func (u *Update) Init(ctx *ExecContext) error { return u.initChildren(ctx) }
func (u *Update) Reset() error {
	u.out = nil
	u.idx = 0
	u.stats = WriteStats{}
	return u.resetChildren()
}

func (u *Update) Consume() (*record.Record, error) {
	if u.out == nil {
		if err := u.buildAll(); err != nil {
			return nil, err
		}
	}
	if u.idx >= len(u.out) {
		return nil, nil
	}
	rec := u.out[u.idx]
	u.idx++
	return rec, nil
}

func (u *Update) buildAll() error {
	recs, err := drain(u.child())
	if err != nil {
		return err
	}
	stats, err := applyUpdateSets(u.Ctx.Store, u.Sets, recs, u.Ctx.Params)
	if err != nil {
		return err
	}
	u.stats.add(stats)
	u.out = recs
	return nil
}

// Stats returns the counters accumulated by the last buildAll pass.
func (u *Update) Stats() WriteStats { return u.stats }

// applyUpdateSets runs one alias-scoped mutation chain against every
// record, used by both Update and Merge's ON MATCH/ON CREATE branches
// (spec §4.2.7 — MERGE's update chains are staged the same way a
// standalone SET is).
func applyUpdateSets(store graph.Store, sets []UpdateSet, recs []*record.Record, params map[string]any) (WriteStats, error) {
	var stats WriteStats
	for _, rec := range recs {
		ctx := &arithmetic.Context{Record: rec, Params: params}
		for _, s := range sets {
			slot, ok := rec.Get(s.Alias)
			if !ok || slot.Node == nil {
				continue
			}
			switch {
			case s.AddLabel != nil:
				store.AddLabel(slot.Node, *s.AddLabel)
				stats.LabelsAdded++
			case s.DropLabel != nil:
				store.RemoveLabel(slot.Node, *s.DropLabel)
				stats.LabelsRemoved++
			default:
				v, err := s.Expr.Eval(ctx)
				if err != nil {
					return stats, err
				}
				store.SetProperty(slot.Node, s.Attribute, v)
				stats.PropertiesSet++
			}
		}
	}
	return stats, nil
}

func (u *Update) Clone() Op { return NewUpdate(u.child().Clone(), append([]UpdateSet(nil), u.Sets...)) }
func (u *Update) Free()     { u.freeChildren() }

// Merge is the three-branch operator (spec §4.2.7): attempt Match; if it
// yields at least one record, stage the ON MATCH sets and emit the
// matches; otherwise run Create, stage the ON CREATE sets, and emit the
// created record. ON MATCH/ON CREATE are plain UpdateSet chains (not
// sub-operators) applied in place with applyUpdateSets, the same helper
// Update uses — MERGE's match/create streams are always fully drained
// before the chain runs, so there is no ArgumentList indirection to wire.
type Merge struct {
	Base
	Match        Op
	OnMatchSets  []UpdateSet // nil if no ON MATCH clause
	Create       Op
	OnCreateSets []UpdateSet // nil if no ON CREATE clause

	out   []*record.Record
	idx   int
	stats WriteStats
}

func NewMerge(match Op, onMatchSets []UpdateSet, create Op, onCreateSets []UpdateSet) *Merge {
	children := []Op{match, create}
	modifies := append(append([]string(nil), match.Modifies()...), create.Modifies()...)
	return &Merge{Base: Base{NameStr: "Merge", ChildOps: children, ModifiesList: modifies, Writer: true}, Match: match, OnMatchSets: onMatchSets, Create: create, OnCreateSets: onCreateSets}
}

func (m *Merge) Init(ctx *ExecContext) error {
	m.Ctx = ctx
	if err := m.Match.Init(ctx); err != nil {
		return err
	}
	return m.Create.Init(ctx)
}

func (m *Merge) Reset() error {
	m.out = nil
	m.idx = 0
	m.stats = WriteStats{}
	if err := m.Match.Reset(); err != nil {
		return err
	}
	return m.Create.Reset()
}

func (m *Merge) Consume() (*record.Record, error) {
	if m.out == nil {
		if err := m.buildAll(); err != nil {
			return nil, err
		}
	}
	if m.idx >= len(m.out) {
		return nil, nil
	}
	rec := m.out[m.idx]
	m.idx++
	return rec, nil
}

func (m *Merge) buildAll() error {
	matched, err := drain(m.Match)
	if err != nil {
		return err
	}
	if len(matched) > 0 {
		stats, err := applyUpdateSets(m.Ctx.Store, m.OnMatchSets, matched, m.Ctx.Params)
		if err != nil {
			return err
		}
		m.stats.add(stats)
		m.out = matched
		return nil
	}
	created, err := drain(m.Create)
	if err != nil {
		return err
	}
	stats, err := applyUpdateSets(m.Ctx.Store, m.OnCreateSets, created, m.Ctx.Params)
	if err != nil {
		return err
	}
	m.stats.add(stats)
	m.out = created
	return nil
}

// Stats returns the counters from Merge's own ON MATCH/ON CREATE sets —
// not its Create branch's node/edge creation, which CollectWriteStats
// picks up separately by walking into it as a child.
func (m *Merge) Stats() WriteStats { return m.stats }

func (m *Merge) Clone() Op {
	return NewMerge(m.Match.Clone(), append([]UpdateSet(nil), m.OnMatchSets...), m.Create.Clone(), append([]UpdateSet(nil), m.OnCreateSets...))
}

func (m *Merge) Free() {
	m.Match.Free()
	m.Create.Free()
}

// Delete stages node/edge deletions (spec §4.2.7). Detach also removes
// every edge incident to a node being deleted, found with the store's
// EdgesBetween lookup in both directions against every node id the store
// holds.
type Delete struct {
	Base
	Aliases []string
	Detach  bool

	out   []*record.Record
	idx   int
	stats WriteStats
}

func NewDelete(child Op, aliases []string, detach bool) *Delete {
	return &Delete{Base: Base{NameStr: "Delete", ChildOps: []Op{child}, Writer: true}, Aliases: aliases, Detach: detach}
}

func (d *Delete) Init(ctx *ExecContext) error { return d.initChildren(ctx) }
func (d *Delete) Reset() error {
	d.out = nil
	d.idx = 0
	d.stats = WriteStats{}
	return d.resetChildren()
}

func (d *Delete) Consume() (*record.Record, error) {
	if d.out == nil {
		if err := d.buildAll(); err != nil {
			return nil, err
		}
	}
	if d.idx >= len(d.out) {
		return nil, nil
	}
	rec := d.out[d.idx]
	d.idx++
	return rec, nil
}

func (d *Delete) buildAll() error {
	recs, err := drain(d.child())
	if err != nil {
		return err
	}
	for _, rec := range recs {
		for _, alias := range d.Aliases {
			slot, ok := rec.Get(alias)
			if !ok {
				continue
			}
			switch slot.Type {
			case record.SlotNode:
				if slot.Node == nil {
					continue
				}
				if d.Detach {
					for _, other := range d.Ctx.Store.AllNodeIDs() {
						edges := d.Ctx.Store.EdgesBetween(slot.Node.ID, other, nil)
						edges = append(edges, d.Ctx.Store.EdgesBetween(other, slot.Node.ID, nil)...)
						for _, e := range edges {
							if d.Ctx.Store.DeleteEdge(e.ID) == nil {
								d.stats.RelationshipsDeleted++
							}
						}
					}
				}
				if d.Ctx.Store.DeleteNode(slot.Node.ID) == nil {
					d.stats.NodesDeleted++
				}
			case record.SlotEdge:
				if slot.Edge != nil && d.Ctx.Store.DeleteEdge(slot.Edge.ID) == nil {
					d.stats.RelationshipsDeleted++
				}
			}
		}
	}
	d.out = recs
	return nil
}

// Stats returns the counters accumulated by the last buildAll pass.
func (d *Delete) Stats() WriteStats { return d.stats }

func (d *Delete) Clone() Op {
	return NewDelete(d.child().Clone(), append([]string(nil), d.Aliases...), d.Detach)
}
func (d *Delete) Free() { d.freeChildren() }

// Foreach runs an embedded sub-plan once per element of a list expression,
// against a cloned record with the element bound to Variable (spec
// §4.2.7). SubPlan's root is expected to pull from an ArgumentList this
// operator pushes one input record's worth of elements into. SubPlan.Reset
// runs before each input record's pass, so a StatsOp inside SubPlan only
// ever reports the last input record's counters afterward —
// CollectWriteStats undercounts a Foreach's inner writes across more than
// one input record as a result.
type Foreach struct {
	Base
	Expression arithmetic.Expression
	Variable   string
	SubPlan    Op
	ArgList    *ArgumentList

	out []*record.Record
	idx int
}

func NewForeach(child Op, expr arithmetic.Expression, variable string, subPlan Op, argList *ArgumentList) *Foreach {
	return &Foreach{Base: Base{NameStr: "Foreach", ChildOps: []Op{child}, Writer: true}, Expression: expr, Variable: variable, SubPlan: subPlan, ArgList: argList}
}

func (f *Foreach) Init(ctx *ExecContext) error {
	if err := f.initChildren(ctx); err != nil {
		return err
	}
	return f.SubPlan.Init(ctx)
}

func (f *Foreach) Reset() error {
	f.out = nil
	f.idx = 0
	if err := f.resetChildren(); err != nil {
		return err
	}
	return f.SubPlan.Reset()
}

func (f *Foreach) Consume() (*record.Record, error) {
	if f.out == nil {
		if err := f.buildAll(); err != nil {
			return nil, err
		}
	}
	if f.idx >= len(f.out) {
		return nil, nil
	}
	rec := f.out[f.idx]
	f.idx++
	return rec, nil
}

func (f *Foreach) buildAll() error {
	recs, err := drain(f.child())
	if err != nil {
		return err
	}
	for _, rec := range recs {
		v, err := f.Expression.Eval(&arithmetic.Context{Record: rec, Params: f.Ctx.Params})
		if err != nil {
			return err
		}
		items, _ := v.([]any)
		elems := make([]*record.Record, len(items))
		for i, item := range items {
			cp := rec.Clone()
			cp.SetScalar(f.Variable, item)
			elems[i] = cp
		}
		f.ArgList.Push(elems)
		if err := f.SubPlan.Reset(); err != nil {
			return err
		}
		if _, err := drain(f.SubPlan); err != nil {
			return err
		}
	}
	f.out = recs
	return nil
}

func (f *Foreach) Clone() Op {
	return NewForeach(f.child().Clone(), f.Expression.Clone(), f.Variable, f.SubPlan.Clone(), NewArgumentList(f.ArgList.cloneModifies()))
}

func (f *Foreach) Free() {
	f.freeChildren()
	f.SubPlan.Free()
}
