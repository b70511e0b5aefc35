package planner

import (
	"fmt"

	"github.com/orneryd/cypherengine/pkg/arithmetic"
	"github.com/orneryd/cypherengine/pkg/ast"
	"github.com/orneryd/cypherengine/pkg/operators"
)

// buildWith translates a WITH clause into projection/aggregation followed
// by its optional DISTINCT, post-projection WHERE, ORDER BY, SKIP, and
// LIMIT (spec §4.3 "same as WITH"). Every projected alias becomes the only
// thing later clauses can see: buildProjection resets b.bound to exactly
// the WITH clause's output aliases before returning.
func (b *builder) buildWith(c *ast.WithClause, prior operators.Op) (operators.Op, error) {
	cur, err := b.buildProjection(c.Items, c.Distinct, prior)
	if err != nil {
		return nil, err
	}
	cur = b.applyWhere(c.Where, cur)
	cur, err = b.applyOrderSkipLimit(c.OrderBy, c.Skip, c.Limit, cur)
	if err != nil {
		return nil, err
	}
	return cur, nil
}

// buildReturn translates a RETURN clause: same projection/ordering chain
// as WITH, terminated in a Results root (spec §4.3, §4.2.6).
func (b *builder) buildReturn(c *ast.ReturnClause, prior operators.Op) (operators.Op, error) {
	cur, err := b.buildProjection(c.Items, c.Distinct, prior)
	if err != nil {
		return nil, err
	}
	cur, err = b.applyOrderSkipLimit(c.OrderBy, c.Skip, c.Limit, cur)
	if err != nil {
		return nil, err
	}
	return operators.NewResults(cur, 0), nil
}

// buildProjection splits a WITH/RETURN item list into non-aggregate
// ("key") and aggregate items by inspecting each item's top-level
// expression (spec §4.2.6): an *arithmetic.Op naming a registered
// aggregate function goes to Aggs, everything else — including an Op
// calling a scalar function — goes to Keys. Nested aggregates (an
// aggregate call wrapped in further arithmetic, e.g. `count(n) + 1`) are
// out of scope here exactly as they are for the builder's other
// deliberately-naive translations: the optimizer's rule set does not
// currently rewrite those either, so such a query is left to fail at
// evaluation when Group.Result can't find accumulator state for a
// non-top-level Op.
//
// When no item is an aggregate, Project is used instead of Aggregate: the
// two operators have different semantics when the input is empty (Project
// emits nothing, Aggregate always emits at least one group for a bare
// RETURN count(n) over zero rows) and Aggregate forces a full materialize
// of its child that a plain projection doesn't need.
func (b *builder) buildProjection(items []ast.ProjectionItem, distinct bool, prior operators.Op) (operators.Op, error) {
	if prior == nil {
		prior = newUnitSource()
	}
	var keys, aggs []operators.ProjectItem
	hasAgg := false
	for _, it := range items {
		pi := operators.ProjectItem{Expr: it.Expression, Alias: it.Alias}
		if op, ok := it.Expression.(*arithmetic.Op); ok && op.IsAggregate() {
			aggs = append(aggs, pi)
			hasAgg = true
			continue
		}
		keys = append(keys, pi)
	}

	var cur operators.Op
	if hasAgg {
		cur = operators.NewAggregate(prior, keys, aggs)
	} else {
		cur = operators.NewProject(prior, keys)
	}

	b.bound = map[string]bool{}
	for _, it := range items {
		b.m.Add(it.Alias)
		b.bound[it.Alias] = true
	}

	if distinct {
		aliases := make([]string, len(items))
		for i, it := range items {
			aliases[i] = it.Alias
		}
		cur = operators.NewDistinct(cur, aliases)
	}
	return cur, nil
}

// applyOrderSkipLimit chains ORDER BY / SKIP / LIMIT onto cur in that
// fixed order (spec §4.2.6 — Sort must see every row before Skip/Limit
// trims the stream). Skip and Limit counts must resolve to a constant at
// build time: this engine's Skip/Limit operators carry a fixed int64, so
// they are evaluated here against an arithmetic context with no
// parameters bound, and a parameterized `LIMIT $n` fails the build with an
// unbound-parameter error.
func (b *builder) applyOrderSkipLimit(orderBy []ast.SortItem, skip, limit arithmetic.Expression, cur operators.Op) (operators.Op, error) {
	if len(orderBy) > 0 {
		items := make([]operators.OrderItem, len(orderBy))
		for i, o := range orderBy {
			items[i] = operators.OrderItem{Expr: o.Expression, Desc: o.Descending}
		}
		cur = operators.NewSort(cur, items)
	}
	if skip != nil {
		n, err := constInt(skip)
		if err != nil {
			return nil, fmt.Errorf("planner: SKIP: %w", err)
		}
		cur = operators.NewSkip(cur, n)
	}
	if limit != nil {
		n, err := constInt(limit)
		if err != nil {
			return nil, fmt.Errorf("planner: LIMIT: %w", err)
		}
		cur = operators.NewLimit(cur, n)
	}
	return cur, nil
}

// constInt evaluates a SKIP/LIMIT expression to a build-time int64.
func constInt(expr arithmetic.Expression) (int64, error) {
	v, err := expr.Eval(&arithmetic.Context{})
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}
