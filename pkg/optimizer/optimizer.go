// Package optimizer implements the rule-based rewrite passes that run
// over a freshly built plan before execution (spec §4.5): twelve named
// rules, applied in a fixed order, each a best-effort pattern match that
// leaves the tree untouched when its shape doesn't occur rather than
// erroring. No rule ever changes a query's result set — every rewrite is
// required to preserve each operator's modifies-set invariant (the union
// of aliases it writes plus those written by its children).
//
// Rules never mutate an operator struct in place. Several operator kinds
// (applyBase's Left/Right, Merge's Match/Create) keep fields that read
// directly instead of going through Children(), so splicing a new child
// into ChildOps alone would desync them. Every rewrite instead rebuilds
// the affected subtree through the operator's own constructor — the
// rebuild helper in rewrite.go is the one place that knows how to do this
// for every operator kind pkg/operators exports.
package optimizer

import (
	"github.com/orneryd/cypherengine/pkg/graph"
	"github.com/orneryd/cypherengine/pkg/operators"
)

// Optimize runs every named pass over root in spec order and returns the
// rewritten tree. store is consulted by the cardinality-estimating passes
// (reduce count, traversal ordering) and the index-aware pass (utilize
// indices); it is never mutated.
func Optimize(root operators.Op, store graph.Store) operators.Op {
	if root == nil {
		return root
	}
	root = compactFilters(root)
	root = reduceCount(root, store)
	root = filterPlacement(root)
	root = reduceScans(root)
	root = scanSelection(root)
	root = utilizeIndices(root, store)
	root = traversalOrdering(root, store)
	root = reduceCartesianProduct(root)
	root = migrateArguments(root)
	root = applyOpsRewrite(root)
	root = reduceDistinct(root)
	root = postBuildRollup(root)
	return root
}
