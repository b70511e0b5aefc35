package engine

import (
	"github.com/orneryd/cypherengine/pkg/ast"
	"github.com/orneryd/cypherengine/pkg/operators"
	"github.com/orneryd/cypherengine/pkg/record"
)

// Plan bundles a built, optimized operator tree with the bookkeeping
// ExecutePlan and ExplainPlan need: the shared record map every operator
// in the tree was built against, and the output column list a caller's
// result set should be shaped to.
//
// The record map carries every alias ever bound anywhere in the query,
// not just the ones the final RETURN/WITH projects — so Columns is
// tracked separately, taken from the last segment's projection items.
type Plan struct {
	Root    operators.Op
	Map     *record.Map
	Columns []string
}

// outputColumns returns the alias list a query's final projecting clause
// (RETURN, or a trailing WITH with no RETURN) names, in declaration
// order. A query with neither (a bare CREATE/MERGE/SET with no
// projection) has no output columns — ExecuteResult.Columns is empty and
// Rows stays empty too, only Stats is meaningful.
func outputColumns(segments []*ast.Segment) []string {
	if len(segments) == 0 {
		return nil
	}
	clauses := segments[len(segments)-1].Clauses
	if len(clauses) == 0 {
		return nil
	}
	switch c := clauses[len(clauses)-1].(type) {
	case *ast.ReturnClause:
		return projectionAliases(c.Items)
	case *ast.WithClause:
		return projectionAliases(c.Items)
	default:
		return nil
	}
}

func projectionAliases(items []ast.ProjectionItem) []string {
	cols := make([]string, len(items))
	for i, it := range items {
		cols[i] = it.Alias
	}
	return cols
}
