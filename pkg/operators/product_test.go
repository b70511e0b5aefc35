package operators

import (
	"testing"

	"github.com/orneryd/cypherengine/pkg/arithmetic"
	"github.com/orneryd/cypherengine/pkg/record"
)

func singleAliasFeed(m *record.Map, alias string, values ...any) *recordFeed {
	recs := make([]*record.Record, len(values))
	for i, v := range values {
		r := record.New(m)
		r.SetScalar(alias, v)
		recs[i] = r
	}
	return &recordFeed{recs: recs}
}

func TestCartesianProductEnumeratesAllPairs(t *testing.T) {
	m := record.NewMap()
	m.Add("x")
	m.Add("y")

	left := singleAliasFeed(m, "x", 1, 2)
	right := singleAliasFeed(m, "y", "a", "b", "c")
	cp := NewCartesianProduct(left, right)

	store, _, _ := newTestStore()
	if err := cp.Init(newExecCtx(store, m)); err != nil {
		t.Fatalf("init: %v", err)
	}
	recs, err := drainAll(cp)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(recs) != 6 {
		t.Fatalf("want 2*3=6 combinations, got %d", len(recs))
	}
}

func TestCartesianProductEmptyStreamYieldsNothing(t *testing.T) {
	m := record.NewMap()
	m.Add("x")
	m.Add("y")

	left := singleAliasFeed(m, "x")
	right := singleAliasFeed(m, "y", "a")
	cp := NewCartesianProduct(left, right)

	store, _, _ := newTestStore()
	if err := cp.Init(newExecCtx(store, m)); err != nil {
		t.Fatalf("init: %v", err)
	}
	recs, err := drainAll(cp)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("empty stream should make the whole product empty, got %d", len(recs))
	}
}

func TestValueHashJoinMatchesOnKey(t *testing.T) {
	m := record.NewMap()
	m.Add("x")
	m.Add("y")

	left := singleAliasFeed(m, "x", 1, 2, 2)
	right := singleAliasFeed(m, "y", 2, 3)
	join := NewValueHashJoin(left, right, &arithmetic.Variable{Alias: "x"}, &arithmetic.Variable{Alias: "y"})

	store, _, _ := newTestStore()
	if err := join.Init(newExecCtx(store, m)); err != nil {
		t.Fatalf("init: %v", err)
	}
	recs, err := drainAll(join)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("want 2 matches on key=2, got %d", len(recs))
	}
}

func TestUnionJoinConcatenatesStreams(t *testing.T) {
	m := record.NewMap()
	m.Add("x")

	a := singleAliasFeed(m, "x", 1, 2)
	b := singleAliasFeed(m, "x", 3)
	u := NewUnionJoin(a, b)

	store, _, _ := newTestStore()
	if err := u.Init(newExecCtx(store, m)); err != nil {
		t.Fatalf("init: %v", err)
	}
	recs, err := drainAll(u)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("want 3 records across both streams, got %d", len(recs))
	}
}
