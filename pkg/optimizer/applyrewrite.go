package optimizer

import (
	"github.com/orneryd/cypherengine/pkg/filtertree"
	"github.com/orneryd/cypherengine/pkg/operators"
)

// pathExistencePredicate is the contract a WHERE-clause path-existence
// check (`WHERE (a)-->(b)`, `WHERE NOT (a)-->(b)`) would implement for
// this rule to recognize. This engine's AST package does not currently
// parse that clause shape into an arithmetic.Expression at all, so the
// rewrite below is written against the contract the spec names (spec
// §4.5 rule 10) and is exercised the moment such an expression type is
// introduced; until then it is a documented no-op, same as
// EdgeIndexScan's thin stub.
type pathExistencePredicate interface {
	SubPlan() operators.Op
	Negated() bool
}

// applyOpsRewrite is rule 10: replace a Filter whose tree is (or has as a
// top-level conjunct) a path-existence predicate with a Semi-Apply/
// Anti-Semi-Apply built from the predicate's sub-plan, consuming that
// conjunct out of the filter.
func applyOpsRewrite(root operators.Op) operators.Op {
	return bottomUp(root, func(op operators.Op) operators.Op {
		f, ok := op.(*operators.Filter)
		if !ok {
			return op
		}
		conjuncts := filtertree.SubTrees(f.Tree)
		var remaining []filtertree.Tree
		cur := f.Children()[0]
		found := false
		for _, t := range conjuncts {
			e, ok := t.(*filtertree.Expr)
			if !ok {
				remaining = append(remaining, t)
				continue
			}
			pred, ok := e.Expression.(pathExistencePredicate)
			if !ok {
				remaining = append(remaining, t)
				continue
			}
			found = true
			arg := operators.NewArgument(subtreeAliases(cur))
			if pred.Negated() {
				cur = operators.NewAntiSemiApply(cur, pred.SubPlan(), arg)
			} else {
				cur = operators.NewSemiApply(cur, pred.SubPlan(), arg)
			}
		}
		if !found {
			return op
		}
		if len(remaining) == 0 {
			return cur
		}
		return operators.NewFilter(cur, combineAnd(remaining))
	})
}
