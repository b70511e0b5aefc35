package optimizer

import (
	"github.com/orneryd/cypherengine/pkg/filtertree"
	"github.com/orneryd/cypherengine/pkg/operators"
)

// compactFilters is rule 1: fold a Filter directly above another Filter
// into one Filter evaluating both trees ANDed together, so filter
// placement (rule 3) and later passes see a single node per conjunction
// chain instead of a stack of them.
func compactFilters(root operators.Op) operators.Op {
	return bottomUp(root, func(op operators.Op) operators.Op {
		f, ok := op.(*operators.Filter)
		if !ok {
			return op
		}
		inner, ok := f.Children()[0].(*operators.Filter)
		if !ok {
			return op
		}
		merged := &filtertree.Condition{Op: filtertree.And, Children: []filtertree.Tree{f.Tree, inner.Tree}}
		return operators.NewFilter(inner.Children()[0], merged)
	})
}

// filterPlacement is rule 3: split a Filter's tree into its AND-conjuncts
// and push each one down to the shallowest point in its (now filter-less)
// subtree that can resolve every alias it references — subtreeAliases
// walks all the way to the leaves to decide "can resolve" rather than
// trusting Op.Modifies() alone, since that's only ever one level deep.
func filterPlacement(root operators.Op) operators.Op {
	return bottomUp(root, func(op operators.Op) operators.Op {
		f, ok := op.(*operators.Filter)
		if !ok {
			return op
		}
		conjuncts := filtertree.SubTrees(f.Tree)
		if len(conjuncts) <= 1 {
			return op
		}
		cur := f.Children()[0]
		for _, t := range conjuncts {
			cur = pushDown(cur, t, dedupe(t.CollectModified()))
		}
		return cur
	})
}

// pushDown recurses into whichever single child already resolves every
// alias required, stopping (and inserting a Filter right there) the
// moment no single child does — meaning op itself is the shallowest point
// that can.
func pushDown(op operators.Op, tree filtertree.Tree, required []string) operators.Op {
	for i, c := range op.Children() {
		if containsAll(subtreeAliases(c), required) {
			return replaceChildAt(op, i, pushDown(c, tree, required))
		}
	}
	return operators.NewFilter(op, tree)
}

// reduceDistinct is rule 11: a Distinct sitting directly above an
// Aggregate grouped on exactly the same aliases is redundant, since
// Aggregate already emits one row per distinct group.
func reduceDistinct(root operators.Op) operators.Op {
	return bottomUp(root, func(op operators.Op) operators.Op {
		d, ok := op.(*operators.Distinct)
		if !ok {
			return op
		}
		agg, ok := d.Children()[0].(*operators.Aggregate)
		if !ok {
			return op
		}
		if sameSet(d.Aliases, agg.Modifies()) {
			return agg
		}
		return op
	})
}

func sameSet(a, b []string) bool {
	return containsAll(a, b) && containsAll(b, a)
}
