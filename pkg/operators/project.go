package operators

import (
	"fmt"
	"sort"

	"github.com/orneryd/cypherengine/pkg/arithmetic"
	"github.com/orneryd/cypherengine/pkg/graph"
	"github.com/orneryd/cypherengine/pkg/record"
)

// ProjectItem is one `expr AS alias` entry a Project or Aggregate writes.
type ProjectItem struct {
	Expr  arithmetic.Expression
	Alias string
}

// Project evaluates a list of arithmetic expressions and writes results
// into the record's named slots, dropping everything else (spec §4.2.6).
type Project struct {
	Base
	Items []ProjectItem
}

func NewProject(child Op, items []ProjectItem) *Project {
	aliases := make([]string, len(items))
	for i, it := range items {
		aliases[i] = it.Alias
	}
	return &Project{Base: Base{NameStr: "Project", ChildOps: []Op{child}, ModifiesList: aliases}, Items: items}
}

func (p *Project) Init(ctx *ExecContext) error { return p.initChildren(ctx) }
func (p *Project) Reset() error                { return p.resetChildren() }

func (p *Project) Consume() (*record.Record, error) {
	rec, err := p.child().Consume()
	if err != nil || rec == nil {
		return rec, err
	}
	out := record.New(p.Ctx.Map)
	ctx := &arithmetic.Context{Record: rec, Params: p.Ctx.Params}
	for _, it := range p.Items {
		v, err := it.Expr.Eval(ctx)
		if err != nil {
			return nil, err
		}
		setProjected(out, it.Alias, v)
	}
	return out, nil
}

// setProjected writes a projected value into the slot type matching its
// Go type, so a bare `RETURN n` round-trips through Project still carrying
// a node/edge/path value rather than a flattened scalar.
func setProjected(rec *record.Record, alias string, v any) {
	switch t := v.(type) {
	case *graph.Node:
		rec.SetNode(alias, t)
	case *graph.Edge:
		rec.SetEdge(alias, t)
	case *record.Path:
		rec.SetPath(alias, t)
	default:
		rec.SetScalar(alias, v)
	}
}

func (p *Project) Clone() Op {
	return NewProject(p.child().Clone(), append([]ProjectItem(nil), p.Items...))
}
func (p *Project) Free() { p.freeChildren() }

// Aggregate partitions records by its non-aggregate ("key") expressions
// and steps each aggregate expression's accumulator per group (spec
// §4.2.6); at end-of-input it emits one record per group.
type Aggregate struct {
	Base
	Keys  []ProjectItem // non-aggregate projection items (group key)
	Aggs  []ProjectItem // aggregate-function projection items

	groups   map[string]*aggGroup
	order    []string
	built    bool
	emitIdx  int
}

type aggGroup struct {
	keyVals []any
	group   *arithmetic.Group
}

func NewAggregate(child Op, keys, aggs []ProjectItem) *Aggregate {
	var aliases []string
	for _, k := range keys {
		aliases = append(aliases, k.Alias)
	}
	for _, a := range aggs {
		aliases = append(aliases, a.Alias)
	}
	return &Aggregate{Base: Base{NameStr: "Aggregate", ChildOps: []Op{child}, ModifiesList: aliases}, Keys: keys, Aggs: aggs}
}

func (a *Aggregate) Init(ctx *ExecContext) error { return a.initChildren(ctx) }

func (a *Aggregate) Reset() error {
	a.groups = nil
	a.order = nil
	a.built = false
	a.emitIdx = 0
	return a.resetChildren()
}

func (a *Aggregate) build() error {
	a.groups = make(map[string]*aggGroup)
	for {
		rec, err := a.child().Consume()
		if err != nil {
			return err
		}
		if rec == nil {
			break
		}
		ctx := &arithmetic.Context{Record: rec, Params: a.Ctx.Params}
		keyVals := make([]any, len(a.Keys))
		for i, k := range a.Keys {
			v, err := k.Expr.Eval(ctx)
			if err != nil {
				return err
			}
			keyVals[i] = v
		}
		keyStr := fmt.Sprint(keyVals)
		g, ok := a.groups[keyStr]
		if !ok {
			g = &aggGroup{keyVals: keyVals, group: arithmetic.NewGroup()}
			a.groups[keyStr] = g
			a.order = append(a.order, keyStr)
		}
		ctx.Group = g.group
		for _, agg := range a.Aggs {
			op, ok := agg.Expr.(*arithmetic.Op)
			if !ok {
				continue
			}
			args, err := op.EvalArgs(ctx)
			if err != nil {
				return err
			}
			if err := g.group.Step(op, args); err != nil {
				return err
			}
		}
	}
	if len(a.Keys) == 0 && len(a.order) == 0 {
		keyStr := fmt.Sprint([]any{})
		a.groups[keyStr] = &aggGroup{group: arithmetic.NewGroup()}
		a.order = append(a.order, keyStr)
	}
	a.built = true
	return nil
}

func (a *Aggregate) Consume() (*record.Record, error) {
	if !a.built {
		if err := a.build(); err != nil {
			return nil, err
		}
	}
	if a.emitIdx >= len(a.order) {
		return nil, nil
	}
	g := a.groups[a.order[a.emitIdx]]
	a.emitIdx++
	out := record.New(a.Ctx.Map)
	for i, k := range a.Keys {
		setProjected(out, k.Alias, g.keyVals[i])
	}
	ctx := &arithmetic.Context{Group: g.group, Params: a.Ctx.Params}
	for _, agg := range a.Aggs {
		v, err := agg.Expr.Eval(ctx)
		if err != nil {
			return nil, err
		}
		setProjected(out, agg.Alias, v)
	}
	return out, nil
}

func (a *Aggregate) Clone() Op {
	return NewAggregate(a.child().Clone(), append([]ProjectItem(nil), a.Keys...), append([]ProjectItem(nil), a.Aggs...))
}
func (a *Aggregate) Free() { a.freeChildren() }

// Distinct deduplicates on a set of aliases using a hash set (spec §4.2.6).
type Distinct struct {
	Base
	Aliases []string
	seen    map[string]struct{}
}

func NewDistinct(child Op, aliases []string) *Distinct {
	return &Distinct{Base: Base{NameStr: "Distinct", ChildOps: []Op{child}}, Aliases: aliases}
}

func (d *Distinct) Init(ctx *ExecContext) error {
	d.seen = make(map[string]struct{})
	return d.initChildren(ctx)
}

func (d *Distinct) Reset() error {
	d.seen = make(map[string]struct{})
	return d.resetChildren()
}

func (d *Distinct) Consume() (*record.Record, error) {
	for {
		rec, err := d.child().Consume()
		if err != nil || rec == nil {
			return rec, err
		}
		vals := make([]any, len(d.Aliases))
		for i, alias := range d.Aliases {
			slot, _ := rec.Get(alias)
			vals[i] = slotValue(slot)
		}
		key := fmt.Sprint(vals)
		if _, dup := d.seen[key]; dup {
			continue
		}
		d.seen[key] = struct{}{}
		return rec, nil
	}
}

func slotValue(s record.Slot) any {
	switch s.Type {
	case record.SlotNode:
		return s.Node
	case record.SlotEdge:
		return s.Edge
	case record.SlotPath:
		return s.Path
	case record.SlotScalar:
		return s.Scalar
	default:
		return nil
	}
}

func (d *Distinct) Clone() Op { return NewDistinct(d.child().Clone(), append([]string(nil), d.Aliases...)) }
func (d *Distinct) Free()     { d.freeChildren() }

// Sort collects every child record and sorts by an ordered list of
// expressions with per-expression direction (spec §4.2.6). A bounded-heap
// variant is not implemented here (LimitHint is advisory only) — the
// optimizer may still pass one through for a future cost-aware rewrite.
type Sort struct {
	Base
	Items     []OrderItem
	LimitHint int64

	buffered []*record.Record
	idx      int
	done     bool
}

// OrderItem is one ORDER BY entry.
type OrderItem struct {
	Expr arithmetic.Expression
	Desc bool
}

func NewSort(child Op, items []OrderItem) *Sort {
	return &Sort{Base: Base{NameStr: "Sort", ChildOps: []Op{child}}, Items: items}
}

func (s *Sort) Init(ctx *ExecContext) error { return s.initChildren(ctx) }

func (s *Sort) Reset() error {
	s.buffered = nil
	s.idx = 0
	s.done = false
	return s.resetChildren()
}

func (s *Sort) fill() error {
	recs, err := drain(s.child())
	if err != nil {
		return err
	}
	keys := make([][]any, len(recs))
	for i, rec := range recs {
		ctx := &arithmetic.Context{Record: rec, Params: s.Ctx.Params}
		row := make([]any, len(s.Items))
		for j, it := range s.Items {
			v, err := it.Expr.Eval(ctx)
			if err != nil {
				return err
			}
			row[j] = v
		}
		keys[i] = row
	}
	idxs := make([]int, len(recs))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool {
		for j, it := range s.Items {
			cmp := compareAny(keys[idxs[a]][j], keys[idxs[b]][j])
			if cmp == 0 {
				continue
			}
			if it.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	s.buffered = make([]*record.Record, len(recs))
	for i, idx := range idxs {
		s.buffered[i] = recs[idx]
	}
	s.done = true
	return nil
}

// compareAny orders two scalar values: numerics compare numerically,
// everything else falls back to formatted-string comparison (Cypher
// default ordering treats mixed types as comparable this way).
func compareAny(a, b any) int {
	af, aok := toFloatAny(a)
	bf, bok := toFloatAny(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func toFloatAny(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

func (s *Sort) Consume() (*record.Record, error) {
	if !s.done {
		if err := s.fill(); err != nil {
			return nil, err
		}
	}
	if s.idx >= len(s.buffered) {
		return nil, nil
	}
	rec := s.buffered[s.idx]
	s.idx++
	return rec, nil
}

func (s *Sort) Clone() Op { return NewSort(s.child().Clone(), append([]OrderItem(nil), s.Items...)) }
func (s *Sort) Free()     { s.freeChildren() }

// Skip drops the first N records (spec §4.2.6).
type Skip struct {
	Base
	N       int64
	skipped int64
}

func NewSkip(child Op, n int64) *Skip {
	return &Skip{Base: Base{NameStr: "Skip", ChildOps: []Op{child}}, N: n}
}

func (s *Skip) Init(ctx *ExecContext) error { return s.initChildren(ctx) }
func (s *Skip) Reset() error {
	s.skipped = 0
	return s.resetChildren()
}

func (s *Skip) Consume() (*record.Record, error) {
	for s.skipped < s.N {
		rec, err := s.child().Consume()
		if err != nil || rec == nil {
			return nil, err
		}
		s.skipped++
	}
	return s.child().Consume()
}

func (s *Skip) Clone() Op { return NewSkip(s.child().Clone(), s.N) }
func (s *Skip) Free()     { s.freeChildren() }

// Limit passes through at most N records (spec §4.2.6).
type Limit struct {
	Base
	N       int64
	emitted int64
}

func NewLimit(child Op, n int64) *Limit {
	return &Limit{Base: Base{NameStr: "Limit", ChildOps: []Op{child}}, N: n}
}

func (l *Limit) Init(ctx *ExecContext) error { return l.initChildren(ctx) }
func (l *Limit) Reset() error {
	l.emitted = 0
	return l.resetChildren()
}

func (l *Limit) Consume() (*record.Record, error) {
	if l.emitted >= l.N {
		return nil, nil
	}
	rec, err := l.child().Consume()
	if err != nil || rec == nil {
		return rec, err
	}
	l.emitted++
	return rec, nil
}

func (l *Limit) Clone() Op { return NewLimit(l.child().Clone(), l.N) }
func (l *Limit) Free()     { l.freeChildren() }

// Results is the final root beneath which records are pulled by the
// engine into its result buffer, enforcing a configurable cap (spec
// §4.2.6). Cap <= 0 means unbounded.
type Results struct {
	Base
	Cap   int64
	count int64
}

func NewResults(child Op, cap int64) *Results {
	return &Results{Base: Base{NameStr: "Results", ChildOps: []Op{child}}, Cap: cap}
}

// Init adopts the execution context's result cap when the operator was
// built with none of its own (spec §4.2.6): the plan builder doesn't know
// the engine's configured result-set cap, only the engine's ExecContext
// does, so an explicit per-query LIMIT (Cap > 0 at construction) always
// wins but an uncapped Results defers to ctx.ResultCap.
func (r *Results) Init(ctx *ExecContext) error {
	if err := r.initChildren(ctx); err != nil {
		return err
	}
	if r.Cap <= 0 && ctx.ResultCap > 0 {
		r.Cap = ctx.ResultCap
	}
	return nil
}
func (r *Results) Reset() error {
	r.count = 0
	return r.resetChildren()
}

func (r *Results) Consume() (*record.Record, error) {
	if r.Cap > 0 && r.count >= r.Cap {
		return nil, nil
	}
	rec, err := r.child().Consume()
	if err != nil || rec == nil {
		return rec, err
	}
	r.count++
	return rec, nil
}

func (r *Results) Clone() Op { return NewResults(r.child().Clone(), r.Cap) }
func (r *Results) Free()     { r.freeChildren() }
