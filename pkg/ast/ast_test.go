package ast

import (
	"testing"

	"github.com/orneryd/cypherengine/pkg/arithmetic"
	"github.com/orneryd/cypherengine/pkg/querygraph"
)

func TestSegmentHoldsHeterogeneousClauses(t *testing.T) {
	g := querygraph.New()
	g.AddNode(&querygraph.Node{Alias: "n"})

	seg := &Segment{Clauses: []Clause{
		&MatchClause{Pattern: g},
		&WithClause{Items: []ProjectionItem{{Expression: &arithmetic.Variable{Alias: "n"}, Alias: "n"}}},
		&ReturnClause{Items: []ProjectionItem{{Expression: &arithmetic.Variable{Alias: "n"}, Alias: "n"}}},
	}}

	if len(seg.Clauses) != 3 {
		t.Fatalf("expected 3 clauses, got %d", len(seg.Clauses))
	}
	if _, ok := seg.Clauses[0].(*MatchClause); !ok {
		t.Fatalf("expected first clause to be *MatchClause")
	}
	if _, ok := seg.Clauses[2].(*ReturnClause); !ok {
		t.Fatalf("expected last clause to be *ReturnClause")
	}
}

func TestForeachEmbedsSubSegments(t *testing.T) {
	inner := &Segment{Clauses: []Clause{
		&SetClause{Items: []UpdateItem{{Alias: "n", Property: "seen", Expression: &arithmetic.Constant{Value: true}}}},
	}}
	fe := &ForeachClause{
		Variable:   "x",
		Expression: &arithmetic.Constant{Value: []any{int64(1), int64(2)}},
		Segments:   []*Segment{inner},
	}
	if len(fe.Segments) != 1 || len(fe.Segments[0].Clauses) != 1 {
		t.Fatalf("expected foreach to carry one nested segment with one clause")
	}
}
