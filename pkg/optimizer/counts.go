package optimizer

import (
	"strings"

	"github.com/orneryd/cypherengine/pkg/arithmetic"
	"github.com/orneryd/cypherengine/pkg/graph"
	"github.com/orneryd/cypherengine/pkg/operators"
	"github.com/orneryd/cypherengine/pkg/record"
)

// onceSource yields exactly one empty record then end-of-stream — the
// operand reduceCount needs to drive a constant-valued Project from.
// Mirrors pkg/planner's unexported unitSource; duplicated rather than
// imported since planner doesn't (and shouldn't) export it.
type onceSource struct {
	operators.Base
	emitted bool
}

func newOnceSource() *onceSource { return &onceSource{Base: operators.Base{NameStr: "Unit"}} }

func (u *onceSource) Init(ctx *operators.ExecContext) error { u.Ctx = ctx; u.emitted = false; return nil }
func (u *onceSource) Reset() error                          { u.emitted = false; return nil }
func (u *onceSource) Clone() operators.Op                   { return newOnceSource() }
func (u *onceSource) Free()                                 {}

func (u *onceSource) Consume() (*record.Record, error) {
	if u.emitted {
		return nil, nil
	}
	u.emitted = true
	return record.New(u.Ctx.Map), nil
}

// reduceCount is rule 2: `RETURN count(*)` (no group keys, one bare
// count aggregate) over an unfiltered scan doesn't need to iterate a
// single row — the store already knows how many entries the scan would
// have produced.
func reduceCount(root operators.Op, store graph.Store) operators.Op {
	return bottomUp(root, func(op operators.Op) operators.Op {
		agg, ok := op.(*operators.Aggregate)
		if !ok || len(agg.Keys) != 0 || len(agg.Aggs) != 1 {
			return op
		}
		call, ok := agg.Aggs[0].Expr.(*arithmetic.Op)
		if !ok || !strings.EqualFold(call.Name, "count") || call.Distinct || len(call.Args) != 0 {
			return op
		}
		n, ok := bareScanCount(agg.Children()[0], store)
		if !ok {
			return op
		}
		item := operators.ProjectItem{Expr: &arithmetic.Constant{Value: n}, Alias: agg.Aggs[0].Alias}
		return operators.NewProject(newOnceSource(), []operators.ProjectItem{item})
	})
}

// bareScanCount reports the exact cardinality of a scan with no filter
// (or anything else) interposed between it and the Aggregate above it.
func bareScanCount(op operators.Op, store graph.Store) (int64, bool) {
	if len(op.Children()) != 0 {
		return 0, false
	}
	switch s := op.(type) {
	case *operators.AllNodeScan:
		return store.NodeCount(), true
	case *operators.LabelScan:
		return store.GetLabelMatrix(s.Label).Reduce(), true
	default:
		return 0, false
	}
}
