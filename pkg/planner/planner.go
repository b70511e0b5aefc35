// Package planner implements BuildPlan (spec §4.3, §6): the AST-clause ->
// operator-tree translation that turns an ordered list of query segments
// into the physical plan the optimizer (pkg/optimizer) rewrites and the
// engine executes.
//
// The builder deliberately favors a naive, always-correct translation of
// each clause over an optimized one — picking traversal order, scan kind,
// and filter placement is the optimizer's named responsibility (spec
// §4.5), not the builder's. Where the builder does make a choice the spec
// assigns to it directly (the first scan of a connected component, spec
// §4.3's last order constraint), it emits a plain node scan (All Node Scan
// or Label Scan) for the component's starting node.
package planner

import (
	"fmt"

	"github.com/orneryd/cypherengine/pkg/arithmetic"
	"github.com/orneryd/cypherengine/pkg/ast"
	"github.com/orneryd/cypherengine/pkg/graph"
	"github.com/orneryd/cypherengine/pkg/operators"
	"github.com/orneryd/cypherengine/pkg/procedures"
	"github.com/orneryd/cypherengine/pkg/record"
)

// builder carries the state threaded through one query's worth of
// segments: the store (for label/relation/attribute resolution and
// matrix handles), the procedure registry CALL dispatches against, and
// the record map every operator in the query shares.
//
// Sharing one record.Map across every segment — rather than a fresh map
// per segment re-bound at the plan-segment boundary (spec §3.7) — is a
// deliberate simplification: record.Map.Add is idempotent (re-adding an
// existing alias returns its existing index), so segment N+1's clauses
// referencing a WITH-projected alias from segment N resolve directly
// with no cross-segment index translation operator. Documented as an
// Open Question decision in DESIGN.md.
type builder struct {
	store graph.Store
	procs *procedures.Registry
	m     *record.Map

	// bound tracks which aliases already carry a concrete value at the
	// current point in the build — as opposed to b.m, which tracks every
	// alias ever referenced (including ones a later clause will bind).
	// Used to decide CREATE's "match, don't recreate" rule and MATCH's
	// "reuse the bound value, don't rescan" rule (spec §4.3).
	bound map[string]bool
}

// attrID resolves a property name to its interned id, registering it with
// the arithmetic package's name index (see BindPropertyNames) the first
// time this query's build touches it.
func (b *builder) attrID(name string) graph.AttributeID {
	id := b.store.Schema().FindOrAddAttributeID(name)
	arithmetic.RegisterPropertyName(name, id)
	return id
}

// BindPropertyNames registers every property name the schema already
// knows with the arithmetic package's name->id index, so a Variable node
// built from plain AST text (e.g. `n.name`) can resolve it without ever
// holding a *schema.Registry itself. Called once at the start of
// BuildQuery; attribute ids introduced mid-build (a CREATE/MERGE map
// literal, a SET target) are registered as the builder resolves them, via
// builder.attrID.
func BindPropertyNames(store graph.Store) {
	reg := store.Schema()
	for _, name := range reg.AllAttributes() {
		arithmetic.RegisterPropertyName(name, reg.GetAttributeID(name))
	}
}

// BuildQuery builds the full operator tree for an ordered list of plan
// segments (spec §3.7, §4.3). Segments are linked root-to-root: the root
// of segment N+1 becomes the parent of the root of segment N.
func BuildQuery(segments []*ast.Segment, store graph.Store, procs *procedures.Registry) (operators.Op, *record.Map, error) {
	if len(segments) == 0 {
		return nil, nil, ErrEmptyQuery
	}
	BindPropertyNames(store)
	b := &builder{store: store, procs: procs, m: record.NewMap(), bound: map[string]bool{}}
	var root operators.Op
	for _, seg := range segments {
		r, err := b.buildSegment(seg, root)
		if err != nil {
			return nil, nil, err
		}
		root = r
	}
	return root, b.m, nil
}

func (b *builder) buildSegment(seg *ast.Segment, prior operators.Op) (operators.Op, error) {
	cur := prior
	for _, clause := range seg.Clauses {
		var err error
		switch c := clause.(type) {
		case *ast.MatchClause:
			cur, err = b.buildMatch(c, cur)
		case *ast.CreateClause:
			cur, err = b.buildCreate(c, cur)
		case *ast.MergeClause:
			cur, err = b.buildMerge(c, cur)
		case *ast.WithClause:
			cur, err = b.buildWith(c, cur)
		case *ast.ReturnClause:
			cur, err = b.buildReturn(c, cur)
		case *ast.UnwindClause:
			cur, err = b.buildUnwind(c, cur)
		case *ast.SetClause:
			cur, err = b.buildSet(c, cur)
		case *ast.RemoveClause:
			cur, err = b.buildRemove(c, cur)
		case *ast.DeleteClause:
			cur, err = b.buildDelete(c, cur)
		case *ast.CallClause:
			cur, err = b.buildCall(c, cur)
		case *ast.SubqueryClause:
			cur, err = b.buildSubquery(c, cur)
		case *ast.ForeachClause:
			cur, err = b.buildForeach(c, cur)
		default:
			return nil, fmt.Errorf("%w: %T", ErrUnknownClause, clause)
		}
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

func (b *builder) buildUnwind(c *ast.UnwindClause, prior operators.Op) (operators.Op, error) {
	b.m.Add(c.Alias)
	b.bound[c.Alias] = true
	return operators.NewUnwind(prior, c.Expression, c.Alias), nil
}

func (b *builder) buildSet(c *ast.SetClause, prior operators.Op) (operators.Op, error) {
	sets, err := b.updateSets(c.Items)
	if err != nil {
		return nil, err
	}
	return operators.NewUpdate(prior, sets), nil
}

func (b *builder) buildRemove(c *ast.RemoveClause, prior operators.Op) (operators.Op, error) {
	reg := b.store.Schema()
	var sets []operators.UpdateSet
	for _, item := range c.Items {
		switch {
		case item.Label != "":
			id := reg.GetLabelID(item.Label)
			sets = append(sets, operators.UpdateSet{Alias: item.Alias, DropLabel: &id})
		default:
			attr := b.attrID(item.Property)
			sets = append(sets, operators.UpdateSet{Alias: item.Alias, Attribute: attr, Expr: &arithmetic.Constant{Value: nil}})
		}
	}
	return operators.NewUpdate(prior, sets), nil
}

func (b *builder) buildDelete(c *ast.DeleteClause, prior operators.Op) (operators.Op, error) {
	return operators.NewDelete(prior, c.Aliases, c.Detach), nil
}

// updateSets converts AST-level UpdateItems into operator-level
// UpdateSets, resolving property names to attribute ids up front (spec
// §4.3's SET/REMOVE dispatch). MergeEntity ("n += {...}") would require
// evaluating the right-hand expression to a map and fanning it out into
// one UpdateSet per key at build time, which this engine's UpdateSet
// shape (one static attribute id per entry) cannot express; rather than
// silently dropping the write, callers get ErrMergeEntityUnsupported so
// the query fails the build instead of quietly doing nothing.
func (b *builder) updateSets(items []ast.UpdateItem) ([]operators.UpdateSet, error) {
	sets := make([]operators.UpdateSet, 0, len(items))
	for _, it := range items {
		if it.Property == "" {
			return nil, fmt.Errorf("%w: %s", ErrMergeEntityUnsupported, it.Alias)
		}
		attr := b.attrID(it.Property)
		sets = append(sets, operators.UpdateSet{Alias: it.Alias, Attribute: attr, Expr: it.Expression})
	}
	return sets, nil
}

func (b *builder) buildCall(c *ast.CallClause, prior operators.Op) (operators.Op, error) {
	for _, y := range c.Yield {
		b.m.Add(y)
		b.bound[y] = true
	}
	return operators.NewProcedureCall(prior, b.procs, c.Procedure, c.Args, c.Yield), nil
}

// buildSubquery compiles `CALL { subquery }` as its own segment chain
// sharing the outer record map, then joins it back to the outer stream
// via Apply fed by an Argument (spec §4.3). Sharing the record map (see
// the builder doc comment) means the sub-plan's aliases are directly
// visible to the outer row once Apply combines them — no separate
// re-binding pass is needed the way a fresh per-segment map would need.
func (b *builder) buildSubquery(c *ast.SubqueryClause, prior operators.Op) (operators.Op, error) {
	var leftMod []string
	if prior != nil {
		leftMod = prior.Modifies()
	}
	arg := operators.NewArgument(leftMod)
	var right operators.Op = arg
	for _, seg := range c.Segments {
		r, err := b.buildSegment(seg, right)
		if err != nil {
			return nil, err
		}
		right = r
	}
	if prior == nil {
		return right, nil
	}
	return operators.NewApply(prior, right, arg), nil
}

// buildForeach builds the embedded sub-plan rooted at an Argument-List
// (spec §4.2.9, §4.3) and wraps it in Foreach.
func (b *builder) buildForeach(c *ast.ForeachClause, prior operators.Op) (operators.Op, error) {
	b.m.Add(c.Variable)
	b.bound[c.Variable] = true
	argList := operators.NewArgumentList([]string{c.Variable})
	var sub operators.Op = argList
	for _, seg := range c.Segments {
		r, err := b.buildSegment(seg, sub)
		if err != nil {
			return nil, err
		}
		sub = r
	}
	base := prior
	if base == nil {
		base = newUnitSource()
	}
	return operators.NewForeach(base, c.Expression, c.Variable, sub, argList), nil
}

// unitSource yields exactly one empty record then end-of-stream. Used as
// the left branch of an Optional/Apply wrapping the very first clause of
// a segment, where there is no real prior operator to drive it.
type unitSource struct {
	operators.Base
	emitted bool
}

func newUnitSource() *unitSource {
	return &unitSource{Base: operators.Base{NameStr: "Unit"}}
}

func (u *unitSource) Init(ctx *operators.ExecContext) error { u.Ctx = ctx; u.emitted = false; return nil }
func (u *unitSource) Reset() error                          { u.emitted = false; return nil }
func (u *unitSource) Clone() operators.Op                   { return newUnitSource() }
func (u *unitSource) Free()                                 {}

func (u *unitSource) Consume() (*record.Record, error) {
	if u.emitted {
		return nil, nil
	}
	u.emitted = true
	return record.New(u.Ctx.Map), nil
}
