package optimizer

import (
	"sort"

	"github.com/orneryd/cypherengine/pkg/graph"
	"github.com/orneryd/cypherengine/pkg/operators"
)

// traversalOrdering is rule 7: reorder a Cartesian Product's independent
// streams by ascending estimated driving-scan cardinality, so the
// cheapest stream anchors the nested-loop product instead of whichever
// order the pattern happened to list its components in. This operates at
// the stream level rather than reordering operands within a single
// traversal's algebraic expression — the narrower, cost-aware rewrite the
// spec's wording also allows for, left as a finer-grained follow-on this
// engine doesn't attempt.
func traversalOrdering(root operators.Op, store graph.Store) operators.Op {
	return bottomUp(root, func(op operators.Op) operators.Op {
		cp, ok := op.(*operators.CartesianProduct)
		if !ok {
			return op
		}
		streams := append([]operators.Op(nil), cp.Children()...)
		costs := make(map[operators.Op]int64, len(streams))
		for _, s := range streams {
			costs[s] = estimateCardinality(s, store)
		}
		sort.SliceStable(streams, func(i, j int) bool {
			return costs[streams[i]] < costs[streams[j]]
		})
		return operators.NewCartesianProduct(streams...)
	})
}

// estimateCardinality walks down a stream's leftmost spine to its driving
// leaf and estimates how many rows it alone would produce.
func estimateCardinality(op operators.Op, store graph.Store) int64 {
	for len(op.Children()) > 0 {
		op = op.Children()[0]
	}
	switch s := op.(type) {
	case *operators.AllNodeScan:
		return store.NodeCount()
	case *operators.LabelScan:
		return store.GetLabelMatrix(s.Label).Reduce()
	case *operators.LabelIDRangeScan:
		return store.GetLabelMatrix(s.Label).Reduce()
	case *operators.NodeByIDSeek:
		return int64(s.Max-s.Min) + 1
	case *operators.IndexScan, *operators.EdgeIndexScan:
		return 1
	default:
		return int64(1) << 32 // unknown shape: sort last rather than guess low
	}
}
