package arithmetic

import (
	"testing"

	"github.com/orneryd/cypherengine/pkg/graph"
	"github.com/orneryd/cypherengine/pkg/record"
)

func TestVariablePropertyLookup(t *testing.T) {
	RegisterPropertyName("name", 1)
	m := record.NewMap()
	m.Add("n")
	rec := record.New(m)
	rec.SetNode("n", &graph.Node{ID: 1, Properties: map[graph.AttributeID]any{1: "Alice"}})

	expr := &Variable{Alias: "n", Property: "name"}
	v, err := expr.Eval(&Context{Record: rec})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "Alice" {
		t.Fatalf("expected Alice, got %v", v)
	}
}

func TestCoalesce(t *testing.T) {
	op := &Op{Name: "coalesce", Args: []Expression{&Constant{Value: nil}, &Constant{Value: "fallback"}}}
	v, err := op.Eval(&Context{})
	if err != nil || v != "fallback" {
		t.Fatalf("expected fallback, got %v err=%v", v, err)
	}
}

func TestAggregateSumAndCount(t *testing.T) {
	group := NewGroup()
	sumOp := &Op{Name: "sum", Args: []Expression{&Constant{}}}
	countOp := &Op{Name: "count", Args: []Expression{&Constant{}}}

	for _, v := range []int64{1, 2, 3} {
		if err := group.Step(sumOp, []any{v}); err != nil {
			t.Fatal(err)
		}
		if err := group.Step(countOp, []any{v}); err != nil {
			t.Fatal(err)
		}
	}

	ctx := &Context{Group: group}
	sum, err := sumOp.Eval(ctx)
	if err != nil || sum != int64(6) {
		t.Fatalf("expected sum 6, got %v err=%v", sum, err)
	}
	count, err := countOp.Eval(ctx)
	if err != nil || count != int64(3) {
		t.Fatalf("expected count 3, got %v err=%v", count, err)
	}
}

func TestAggregateWithoutGroupErrors(t *testing.T) {
	op := &Op{Name: "count", Args: []Expression{&Constant{}}}
	if _, err := op.Eval(&Context{}); err == nil {
		t.Fatalf("expected error calling aggregate outside a grouping context")
	}
}

func TestUnknownFunctionErrors(t *testing.T) {
	op := &Op{Name: "notAFunction"}
	if _, err := op.Eval(&Context{}); err == nil {
		t.Fatalf("expected error for unknown function")
	}
}

func TestParameterLookup(t *testing.T) {
	p := &Parameter{Name: "minAge"}
	v, err := p.Eval(&Context{Params: map[string]any{"minAge": 25}})
	if err != nil || v != 25 {
		t.Fatalf("expected 25, got %v err=%v", v, err)
	}
}

func TestUnboundParameterErrors(t *testing.T) {
	p := &Parameter{Name: "missing"}
	if _, err := p.Eval(&Context{Params: map[string]any{}}); err == nil {
		t.Fatalf("expected error for unbound parameter")
	}
}
