package optimizer

import (
	"testing"

	"github.com/orneryd/cypherengine/pkg/arithmetic"
	"github.com/orneryd/cypherengine/pkg/filtertree"
	"github.com/orneryd/cypherengine/pkg/graph"
	"github.com/orneryd/cypherengine/pkg/operators"
	"github.com/orneryd/cypherengine/pkg/record"
	"github.com/orneryd/cypherengine/pkg/schema"
)

// newTestStore mirrors pkg/operators' helper of the same name: three
// Person nodes, alice-KNOWS->bob-KNOWS->carol.
func newTestStore() (graph.Store, *schema.Registry, map[string]graph.NodeID) {
	reg := schema.NewRegistry()
	store := graph.NewMemoryStore(reg)
	person := reg.FindOrAddLabelID("Person")
	knows := reg.FindOrAddRelationID("KNOWS")
	name := reg.FindOrAddAttributeID("name")
	alice := store.AddNode([]graph.LabelID{person}, map[graph.AttributeID]any{name: "alice"})
	bob := store.AddNode([]graph.LabelID{person}, map[graph.AttributeID]any{name: "bob"})
	carol := store.AddNode([]graph.LabelID{person}, map[graph.AttributeID]any{name: "carol"})
	store.CreateEdge(alice.ID, bob.ID, knows, nil)
	store.CreateEdge(bob.ID, carol.ID, knows, nil)
	return store, reg, map[string]graph.NodeID{"alice": alice.ID, "bob": bob.ID, "carol": carol.ID}
}

func newExecCtx(store graph.Store, m *record.Map) *operators.ExecContext {
	return &operators.ExecContext{Store: store, Params: map[string]any{}, Map: m, BatchSize: 64, ResultCap: -1}
}

func drainAll(op operators.Op) ([]*record.Record, error) {
	var out []*record.Record
	for {
		rec, err := op.Consume()
		if err != nil {
			return out, err
		}
		if rec == nil {
			return out, nil
		}
		out = append(out, rec)
	}
}

func eqPredicate(alias, prop string, val any) filtertree.Tree {
	return &filtertree.Predicate{Op: filtertree.Eq, Left: &arithmetic.Variable{Alias: alias, Property: prop}, Right: &arithmetic.Constant{Value: val}}
}

func TestCompactFiltersMergesStackedFilters(t *testing.T) {
	_, reg, _ := newTestStore()
	person := reg.FindOrAddLabelID("Person")
	scan := operators.NewLabelScan("a", person, nil)
	inner := operators.NewFilter(scan, eqPredicate("a", "name", "alice"))
	outer := operators.NewFilter(inner, eqPredicate("a", "name", "bob"))

	got := compactFilters(outer)

	f, ok := got.(*operators.Filter)
	if !ok {
		t.Fatalf("expected *Filter, got %T", got)
	}
	cond, ok := f.Tree.(*filtertree.Condition)
	if !ok || cond.Op != filtertree.And || len(cond.Children) != 2 {
		t.Fatalf("expected a 2-child AND condition, got %#v", f.Tree)
	}
	if _, ok := f.Children()[0].(*operators.LabelScan); !ok {
		t.Fatalf("expected the merged filter to sit directly above the scan, got %T", f.Children()[0])
	}
}

func TestReduceCountReplacesBareCountAggregate(t *testing.T) {
	store, _, _ := newTestStore()
	m := record.NewMap()
	m.Add("a")
	scan := operators.NewAllNodeScan("a", nil)
	agg := operators.NewAggregate(scan, nil, []operators.ProjectItem{
		{Expr: &arithmetic.Op{Name: "count"}, Alias: "cnt"},
	})

	got := reduceCount(agg, store)

	proj, ok := got.(*operators.Project)
	if !ok {
		t.Fatalf("expected *Project, got %T", got)
	}
	ctx := newExecCtx(store, m)
	if err := proj.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	recs, err := drainAll(proj)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(recs))
	}
	slot, ok := recs[0].Get("cnt")
	if !ok || slot.Scalar != int64(3) {
		t.Fatalf("expected cnt=3, got %#v", slot)
	}
}

func TestFilterPlacementPushesConjunctPastTraverse(t *testing.T) {
	_, reg, _ := newTestStore()
	person := reg.FindOrAddLabelID("Person")

	scanA := operators.NewLabelScan("a", person, nil)
	// A bare traversal standing in for a conditional traverse: its own
	// Modifies() is just ["b"], the scan beneath it is where "a" actually
	// resolves — subtreeAliases has to walk down to see that.
	traverse := operators.NewConditionalTraverse(scanA, nil, "b", "", nil, 0)

	onlyA := eqPredicate("a", "name", "alice")
	onlyB := eqPredicate("b", "name", "bob")
	combined := &filtertree.Condition{Op: filtertree.And, Children: []filtertree.Tree{onlyA, onlyB}}
	f := operators.NewFilter(traverse, combined)

	got := filterPlacement(f)

	top, ok := got.(*operators.Filter)
	if !ok {
		t.Fatalf("expected the alias-b conjunct to stay as a Filter directly above the traverse, got %T", got)
	}
	if _, ok := top.Tree.(*filtertree.Predicate); !ok {
		t.Fatalf("expected exactly the b-predicate left at the top, got %#v", top.Tree)
	}
	trav, ok := top.Children()[0].(*operators.ConditionalTraverse)
	if !ok {
		t.Fatalf("expected a Conditional Traverse beneath the top filter, got %T", top.Children()[0])
	}
	innerFilter, ok := trav.Children()[0].(*operators.Filter)
	if !ok {
		t.Fatalf("expected the alias-a conjunct pushed down beneath the traverse, got %T", trav.Children()[0])
	}
	if _, ok := innerFilter.Children()[0].(*operators.LabelScan); !ok {
		t.Fatalf("expected the pushed filter to sit directly above the scan, got %T", innerFilter.Children()[0])
	}
}

func TestReduceScansSplicesOutRedundantRebind(t *testing.T) {
	_, reg, _ := newTestStore()
	person := reg.FindOrAddLabelID("Person")
	inner := operators.NewLabelScan("a", person, nil)
	outer := operators.NewAllNodeScan("a", inner)

	got := reduceScans(outer)

	if got != operators.Op(inner) {
		t.Fatalf("expected the redundant outer rebind spliced out, got %T", got)
	}
}

func TestScanSelectionFoldsIDRangeIntoLabelIDRangeScan(t *testing.T) {
	_, reg, ids := newTestStore()
	person := reg.FindOrAddLabelID("Person")
	scan := operators.NewLabelScan("a", person, nil)
	pred := &filtertree.Predicate{
		Op:    filtertree.Gte,
		Left:  &arithmetic.Variable{Alias: "a", Property: "id"},
		Right: &arithmetic.Constant{Value: int64(ids["bob"])},
	}
	f := operators.NewFilter(scan, pred)

	got := scanSelection(f)

	rs, ok := got.(*operators.LabelIDRangeScan)
	if !ok {
		t.Fatalf("expected *LabelIDRangeScan, got %T", got)
	}
	if !rs.HasMin || rs.MinID != ids["bob"] || rs.HasMax {
		t.Fatalf("expected an open-ended min-bound range from bob's id, got %#v", rs)
	}
}

func TestUtilizeIndicesReplacesFilterWithIndexScan(t *testing.T) {
	_, reg, _ := newTestStore()
	person := reg.FindOrAddLabelID("Person")
	nameAttr := reg.FindOrAddAttributeID("name")
	if err := reg.CreateIndex(person, nameAttr); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	fakeStore := &schemaOnlyStore{reg: reg}

	scan := operators.NewLabelScan("a", person, nil)
	f := operators.NewFilter(scan, eqPredicate("a", "name", "alice"))

	got := utilizeIndices(f, fakeStore)

	idx, ok := got.(*operators.IndexScan)
	if !ok {
		t.Fatalf("expected *IndexScan, got %T", got)
	}
	if idx.Property != "name" || idx.Value != "alice" {
		t.Fatalf("unexpected index scan fields: %#v", idx)
	}
}

// schemaOnlyStore satisfies just enough of graph.Store for
// utilizeIndices, which only ever calls Schema().
type schemaOnlyStore struct {
	graph.Store
	reg *schema.Registry
}

func (s *schemaOnlyStore) Schema() *schema.Registry { return s.reg }

func TestTraversalOrderingSortsCartesianStreamsByCardinality(t *testing.T) {
	store, _, _ := newTestStore()
	big := operators.NewAllNodeScan("x", nil)    // cardinality 3
	small := operators.NewNodeByIDSeek("y", 1, 1) // cardinality 1
	cp := operators.NewCartesianProduct(big, small)

	got := traversalOrdering(cp, store)

	ncp, ok := got.(*operators.CartesianProduct)
	if !ok {
		t.Fatalf("expected *CartesianProduct, got %T", got)
	}
	streams := ncp.Children()
	if _, ok := streams[0].(*operators.NodeByIDSeek); !ok {
		t.Fatalf("expected the cheaper NodeByIDSeek stream first, got %T", streams[0])
	}
}

func TestReduceCartesianProductSplitsOnSubsetFilter(t *testing.T) {
	_, reg, _ := newTestStore()
	person := reg.FindOrAddLabelID("Person")
	a := operators.NewLabelScan("a", person, nil)
	b := operators.NewLabelScan("b", person, nil)
	c := operators.NewLabelScan("c", person, nil)
	cp := operators.NewCartesianProduct(a, b, c)
	f := operators.NewFilter(cp, eqPredicate("a", "name", "alice"))

	got := reduceCartesianProduct(f)

	outer, ok := got.(*operators.CartesianProduct)
	if !ok {
		t.Fatalf("expected a rebuilt outer Cartesian Product, got %T", got)
	}
	inner, ok := outer.Children()[0].(*operators.Filter)
	if !ok {
		t.Fatalf("expected the filter narrowed to the referenced stream, got %T", outer.Children()[0])
	}
	if _, ok := inner.Children()[0].(*operators.LabelScan); !ok {
		t.Fatalf("expected the filter to sit directly over the single referenced scan, got %T", inner.Children()[0])
	}
	if len(outer.Children()) != 3 {
		t.Fatalf("expected the other two streams left untouched alongside it, got %d", len(outer.Children()))
	}
}

func TestMigrateArgumentsDropsRedundantRescanStream(t *testing.T) {
	_, reg, _ := newTestStore()
	person := reg.FindOrAddLabelID("Person")
	knows := reg.FindOrAddRelationID("KNOWS")
	scanA := operators.NewLabelScan("a", person, nil)
	traverse := operators.NewConditionalTraverse(scanA, nil, "b", "", []graph.RelationID{knows}, 0)
	rescanA := operators.NewLabelScan("a", person, nil) // redundant: "a" already produced above
	cp := operators.NewCartesianProduct(traverse, rescanA)

	got := migrateArguments(cp)

	if _, ok := got.(*operators.ConditionalTraverse); !ok {
		t.Fatalf("expected the redundant rescan dropped down to the bare traverse chain, got %T", got)
	}
}

func TestReduceDistinctDropsRedundantDistinctOverAggregate(t *testing.T) {
	_, reg, _ := newTestStore()
	person := reg.FindOrAddLabelID("Person")
	scan := operators.NewLabelScan("a", person, nil)
	agg := operators.NewAggregate(scan, []operators.ProjectItem{{Expr: &arithmetic.Variable{Alias: "a"}, Alias: "a"}}, nil)
	d := operators.NewDistinct(agg, []string{"a"})

	got := reduceDistinct(d)

	if got != operators.Op(agg) {
		t.Fatalf("expected the redundant Distinct collapsed away, got %T", got)
	}
}

func TestPostBuildRollupRewritesTopath(t *testing.T) {
	_, reg, _ := newTestStore()
	person := reg.FindOrAddLabelID("Person")
	knows := reg.FindOrAddRelationID("KNOWS")
	scanA := operators.NewLabelScan("a", person, nil)
	traverse := operators.NewConditionalTraverse(scanA, nil, "b", "", []graph.RelationID{knows}, 0)
	call := &arithmetic.Op{Name: "topath", Args: []arithmetic.Expression{
		&arithmetic.Variable{Alias: "a"}, &arithmetic.Variable{Alias: "b"},
	}}
	proj := operators.NewProject(traverse, []operators.ProjectItem{{Expr: call, Alias: "p"}})

	got := postBuildRollup(proj)

	outer, ok := got.(*operators.Project)
	if !ok {
		t.Fatalf("expected the outer Project rebuilt for the unwrap step, got %T", got)
	}
	if len(outer.Items) != 1 || outer.Items[0].Alias != "p" {
		t.Fatalf("unexpected projected items: %#v", outer.Items)
	}
	if _, ok := outer.Items[0].Expr.(*firstElemExpr); !ok {
		t.Fatalf("expected a firstElemExpr unwrap, got %T", outer.Items[0].Expr)
	}
	if _, ok := outer.Children()[0].(*operators.RollupApply); !ok {
		t.Fatalf("expected a RollupApply feeding the unwrap, got %T", outer.Children()[0])
	}
}

func TestOptimizeEndToEndSmokeTest(t *testing.T) {
	store, reg, _ := newTestStore()
	person := reg.FindOrAddLabelID("Person")
	m := record.NewMap()
	m.Add("a")

	scan := operators.NewLabelScan("a", person, nil)
	inner := operators.NewFilter(scan, eqPredicate("a", "name", "alice"))
	outer := operators.NewFilter(inner, eqPredicate("a", "name", "alice"))
	proj := operators.NewProject(outer, []operators.ProjectItem{{Expr: &arithmetic.Variable{Alias: "a"}, Alias: "a"}})

	got := Optimize(proj, store)
	if got == nil {
		t.Fatal("Optimize returned nil")
	}

	p, ok := got.(*operators.Project)
	if !ok {
		t.Fatalf("expected a *Project at the root, got %T", got)
	}
	ctx := newExecCtx(store, m)
	if err := p.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	recs, err := drainAll(p)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected exactly one row for alice, got %d", len(recs))
	}
	slot, ok := recs[0].Get("a")
	if !ok || slot.Type != record.SlotNode || slot.Node == nil {
		t.Fatalf("expected a bound node slot for alias a, got %#v", slot)
	}
}
