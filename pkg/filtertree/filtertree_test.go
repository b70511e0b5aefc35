package filtertree

import (
	"testing"

	"github.com/orneryd/cypherengine/pkg/arithmetic"
	"github.com/orneryd/cypherengine/pkg/record"
)

func eq(alias string, v any) Tree {
	return &Predicate{Op: Eq, Left: &arithmetic.Variable{Alias: alias}, Right: &arithmetic.Constant{Value: v}}
}

// newRecordMap builds a record map binding a single alias, for tests that
// only need a scalar slot to compare against.
func newRecordMap(alias string) *record.Map {
	m := record.NewMap()
	m.Add(alias)
	return m
}

// newCtx builds an evaluation context with alias bound to a scalar value.
func newCtx(m *record.Map, alias string, v any) *arithmetic.Context {
	rec := record.New(m)
	rec.SetScalar(alias, v)
	return &arithmetic.Context{Record: rec}
}

func TestSubTreesDecomposesTopLevelAnd(t *testing.T) {
	tree := &Condition{Op: And, Children: []Tree{eq("a", 1), eq("b", 2)}}
	subs := SubTrees(tree)
	if len(subs) != 2 {
		t.Fatalf("expected 2 conjuncts, got %d", len(subs))
	}
}

func TestSubTreesDoesNotDecomposeOr(t *testing.T) {
	tree := &Condition{Op: Or, Children: []Tree{eq("a", 1), eq("b", 2)}}
	subs := SubTrees(tree)
	if len(subs) != 1 {
		t.Fatalf("expected OR subtree kept as one unit, got %d pieces", len(subs))
	}
}

func TestSubTreesDecomposesNestedAnd(t *testing.T) {
	inner := &Condition{Op: And, Children: []Tree{eq("b", 2), eq("c", 3)}}
	tree := &Condition{Op: And, Children: []Tree{eq("a", 1), inner}}
	subs := SubTrees(tree)
	if len(subs) != 3 {
		t.Fatalf("expected 3 conjuncts after flattening nested AND, got %d", len(subs))
	}
}

func TestCollectModifiedDedupesAliases(t *testing.T) {
	tree := &Condition{Op: And, Children: []Tree{eq("a", 1), eq("a", 2)}}
	mods := tree.CollectModified()
	if len(mods) != 1 || mods[0] != "a" {
		t.Fatalf("expected deduped [a], got %v", mods)
	}
}

func TestEvalAndShortCircuits(t *testing.T) {
	tree := &Condition{Op: And, Children: []Tree{eq("a", 1), eq("a", 2)}}
	m := newRecordMap("a")
	ctx := newCtx(m, "a", int64(1))
	v, err := tree.Eval(ctx)
	if err != nil || v {
		t.Fatalf("expected false (second conjunct fails), got %v err=%v", v, err)
	}
}

func TestEvalOr(t *testing.T) {
	tree := &Condition{Op: Or, Children: []Tree{eq("a", 5), eq("a", 1)}}
	m := newRecordMap("a")
	ctx := newCtx(m, "a", int64(1))
	v, err := tree.Eval(ctx)
	if err != nil || !v {
		t.Fatalf("expected true, got %v err=%v", v, err)
	}
}

func TestEvalXor(t *testing.T) {
	tree := &Condition{Op: Xor, Children: []Tree{eq("a", 1), eq("a", 1)}}
	m := newRecordMap("a")
	ctx := newCtx(m, "a", int64(1))
	v, err := tree.Eval(ctx)
	if err != nil || v {
		t.Fatalf("expected false (both true cancels out under XOR), got %v err=%v", v, err)
	}
}

func TestNullComparisonIsFalse(t *testing.T) {
	tree := &Predicate{Op: Eq, Left: &arithmetic.Variable{Alias: "a"}, Right: &arithmetic.Constant{Value: nil}}
	m := newRecordMap("a")
	ctx := newCtx(m, "a", int64(1))
	v, err := tree.Eval(ctx)
	if err != nil || v {
		t.Fatalf("expected comparison against null to be false, got %v err=%v", v, err)
	}
}
