package optimizer

import (
	"github.com/orneryd/cypherengine/pkg/arithmetic"
	"github.com/orneryd/cypherengine/pkg/filtertree"
	"github.com/orneryd/cypherengine/pkg/graph"
	"github.com/orneryd/cypherengine/pkg/operators"
)

// scanAlias returns a nested scan's bound alias and whether op is one.
func scanAlias(op operators.Op) (string, bool) {
	switch s := op.(type) {
	case *operators.AllNodeScan:
		return s.Alias, true
	case *operators.LabelScan:
		return s.Alias, true
	default:
		return "", false
	}
}

// reduceScans is rule 4: a nested scan whose alias is already produced by
// its own child is redundant — the child already resolves it, so the
// scan would only rebind what's already bound. Splice it out in favor of
// the child directly.
func reduceScans(root operators.Op) operators.Op {
	return bottomUp(root, func(op operators.Op) operators.Op {
		alias, ok := scanAlias(op)
		if !ok || len(op.Children()) == 0 {
			return op
		}
		child := op.Children()[0]
		for _, m := range child.Modifies() {
			if m == alias {
				return child
			}
		}
		return op
	})
}

// scanSelection is rule 5: fold a Filter's internal-id-range conjunct
// (`Variable{Property:"id"}` compared against a constant — this engine
// registers no id() scalar function, so "id" is a build-time-only naming
// convention the planner never itself produces but this rule still
// recognizes) over a bare label scan into a LabelIDRangeScan, the
// operator scan.go documents as existing for exactly this purpose.
func scanSelection(root operators.Op) operators.Op {
	return bottomUp(root, func(op operators.Op) operators.Op {
		f, ok := op.(*operators.Filter)
		if !ok {
			return op
		}
		ls, ok := f.Children()[0].(*operators.LabelScan)
		if !ok || len(ls.Children()) != 0 {
			return op
		}
		conjuncts := filtertree.SubTrees(f.Tree)
		var remaining []filtertree.Tree
		var minID, maxID graph.NodeID
		hasMin, hasMax := false, false
		matched := false
		for _, t := range conjuncts {
			if cmp, id, ok := asIDPredicate(t, ls.Alias); ok {
				matched = true
				switch cmp {
				case filtertree.Eq:
					minID, maxID, hasMin, hasMax = id, id, true, true
				case filtertree.Gt:
					minID, hasMin = id+1, true
				case filtertree.Gte:
					minID, hasMin = id, true
				case filtertree.Lt:
					maxID, hasMax = id-1, true
				case filtertree.Lte:
					maxID, hasMax = id, true
				}
				continue
			}
			remaining = append(remaining, t)
		}
		if !matched {
			return op
		}
		var result operators.Op = operators.NewLabelIDRangeScan(ls.Alias, ls.Label, minID, hasMin, maxID, hasMax)
		if len(remaining) > 0 {
			result = operators.NewFilter(result, combineAnd(remaining))
		}
		return result
	})
}

// asIDPredicate recognizes `id(alias) <op> <constant>` (either operand
// order) for a numeric comparison.
func asIDPredicate(t filtertree.Tree, alias string) (filtertree.CompareOp, graph.NodeID, bool) {
	p, ok := t.(*filtertree.Predicate)
	if !ok {
		return "", 0, false
	}
	if v, c, ok := asIDVarConst(p.Left, p.Right, alias); ok {
		return p.Op, v, c
	}
	if v, c, ok := asIDVarConst(p.Right, p.Left, alias); ok {
		return flipCompare(p.Op), v, c
	}
	return "", 0, false
}

func asIDVarConst(left, right arithmetic.Expression, alias string) (graph.NodeID, bool, bool) {
	v, ok := left.(*arithmetic.Variable)
	if !ok || v.Alias != alias || v.Property != "id" {
		return 0, false, false
	}
	c, ok := right.(*arithmetic.Constant)
	if !ok {
		return 0, false, false
	}
	id, ok := asNodeID(c.Value)
	return id, true, ok
}

func asNodeID(v any) (graph.NodeID, bool) {
	switch n := v.(type) {
	case int64:
		return graph.NodeID(n), true
	case int:
		return graph.NodeID(n), true
	default:
		return 0, false
	}
}

func flipCompare(op filtertree.CompareOp) filtertree.CompareOp {
	switch op {
	case filtertree.Lt:
		return filtertree.Gt
	case filtertree.Lte:
		return filtertree.Gte
	case filtertree.Gt:
		return filtertree.Lt
	case filtertree.Gte:
		return filtertree.Lte
	default:
		return op
	}
}

func combineAnd(trees []filtertree.Tree) filtertree.Tree {
	if len(trees) == 1 {
		return trees[0]
	}
	return &filtertree.Condition{Op: filtertree.And, Children: trees}
}

// utilizeIndices is rule 6: an equality conjunct on an indexed label
// property over a bare label scan becomes an IndexScan, consuming that
// conjunct out of the filter.
func utilizeIndices(root operators.Op, store graph.Store) operators.Op {
	return bottomUp(root, func(op operators.Op) operators.Op {
		f, ok := op.(*operators.Filter)
		if !ok {
			return op
		}
		ls, ok := f.Children()[0].(*operators.LabelScan)
		if !ok || len(ls.Children()) != 0 {
			return op
		}
		conjuncts := filtertree.SubTrees(f.Tree)
		reg := store.Schema()
		for i, t := range conjuncts {
			p, ok := t.(*filtertree.Predicate)
			if !ok || p.Op != filtertree.Eq {
				continue
			}
			prop, val, ok := asIndexablePredicate(p, ls.Alias)
			if !ok {
				continue
			}
			attrID := reg.GetAttributeID(prop)
			if attrID == graph.AttributeID(graph.UnknownID) || reg.GetIndex(ls.Label, attrID) == nil {
				continue
			}
			idx := operators.NewIndexScan(ls.Alias, ls.Label, prop, val)
			remaining := append(append([]filtertree.Tree(nil), conjuncts[:i]...), conjuncts[i+1:]...)
			var result operators.Op = idx
			if len(remaining) > 0 {
				result = operators.NewFilter(idx, combineAnd(remaining))
			}
			return result
		}
		return op
	})
}

func asIndexablePredicate(p *filtertree.Predicate, alias string) (string, any, bool) {
	if v, ok := p.Left.(*arithmetic.Variable); ok && v.Alias == alias && v.Property != "" {
		if c, ok := p.Right.(*arithmetic.Constant); ok {
			return v.Property, c.Value, true
		}
	}
	if v, ok := p.Right.(*arithmetic.Variable); ok && v.Alias == alias && v.Property != "" {
		if c, ok := p.Left.(*arithmetic.Constant); ok {
			return v.Property, c.Value, true
		}
	}
	return "", nil, false
}
