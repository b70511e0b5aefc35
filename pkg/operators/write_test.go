package operators

import (
	"testing"

	"github.com/orneryd/cypherengine/pkg/arithmetic"
	"github.com/orneryd/cypherengine/pkg/graph"
	"github.com/orneryd/cypherengine/pkg/record"
	"github.com/orneryd/cypherengine/pkg/schema"
)

func TestCreateAddsNodesAndEdges(t *testing.T) {
	reg := schema.NewRegistry()
	store := graph.NewMemoryStore(reg)
	person := reg.FindOrAddLabelID("Person")
	name := reg.FindOrAddAttributeID("name")
	knows := reg.FindOrAddRelationID("KNOWS")

	m := record.NewMap()
	m.Add("a")
	m.Add("b")

	one := &recordFeed{recs: []*record.Record{record.New(m)}}
	create := NewCreate(one,
		[]NodePattern{
			{Alias: "a", Labels: []graph.LabelID{person}, Properties: []PropertySet{{Attribute: name, Expr: &arithmetic.Constant{Value: "alice"}}}},
			{Alias: "b", Labels: []graph.LabelID{person}, Properties: []PropertySet{{Attribute: name, Expr: &arithmetic.Constant{Value: "bob"}}}},
		},
		[]EdgePattern{{SrcAlias: "a", DestAlias: "b", Relation: knows}},
	)

	if err := create.Init(newExecCtx(store, m)); err != nil {
		t.Fatalf("init: %v", err)
	}
	recs, err := drainAll(create)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("want 1 output record, got %d", len(recs))
	}
	if store.NodeCount() != 2 {
		t.Fatalf("want 2 nodes created, got %d", store.NodeCount())
	}
	if store.EdgeCount() != 1 {
		t.Fatalf("want 1 edge created, got %d", store.EdgeCount())
	}
}

func TestUpdateSetsPropertyOnBoundNode(t *testing.T) {
	store, reg, ids := newTestStore()
	name := reg.GetAttributeID("name")

	m := record.NewMap()
	m.Add("n")
	n, _ := store.GetNode(ids["alice"])
	rec := record.New(m)
	rec.SetNode("n", n)
	child := &recordFeed{recs: []*record.Record{rec}}

	up := NewUpdate(child, []UpdateSet{{Alias: "n", Attribute: name, Expr: &arithmetic.Constant{Value: "ALICE"}}})
	if err := up.Init(newExecCtx(store, m)); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := drainAll(up); err != nil {
		t.Fatalf("drain: %v", err)
	}
	got, _ := store.GetNode(ids["alice"])
	if got.Properties[name] != "ALICE" {
		t.Fatalf("want updated name ALICE, got %v", got.Properties[name])
	}
}

func TestUpdateAddsAndRemovesLabels(t *testing.T) {
	store, reg, ids := newTestStore()
	vip := reg.FindOrAddLabelID("VIP")
	person := reg.GetLabelID("Person")

	m := record.NewMap()
	m.Add("n")
	n, _ := store.GetNode(ids["alice"])
	rec := record.New(m)
	rec.SetNode("n", n)
	child := &recordFeed{recs: []*record.Record{rec}}

	up := NewUpdate(child, []UpdateSet{{Alias: "n", AddLabel: &vip}, {Alias: "n", DropLabel: &person}})
	if err := up.Init(newExecCtx(store, m)); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := drainAll(up); err != nil {
		t.Fatalf("drain: %v", err)
	}
	got, _ := store.GetNode(ids["alice"])
	if !got.HasLabel(vip) {
		t.Fatalf("want VIP label added")
	}
	if got.HasLabel(person) {
		t.Fatalf("want Person label removed")
	}
}

func TestDeleteRemovesNode(t *testing.T) {
	store, _, ids := newTestStore()
	m := record.NewMap()
	m.Add("n")
	n, _ := store.GetNode(ids["carol"])
	rec := record.New(m)
	rec.SetNode("n", n)
	child := &recordFeed{recs: []*record.Record{rec}}

	del := NewDelete(child, []string{"n"}, false)
	if err := del.Init(newExecCtx(store, m)); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := drainAll(del); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if _, ok := store.GetNode(ids["carol"]); ok {
		t.Fatalf("want carol deleted")
	}
}

func TestDeleteDetachRemovesIncidentEdges(t *testing.T) {
	store, _, ids := newTestStore()
	m := record.NewMap()
	m.Add("a")
	m.Add("b")
	rec := boundPair(m, store, ids["alice"], ids["bob"])
	child := &recordFeed{recs: []*record.Record{rec}}

	del := NewDelete(child, []string{"a", "b"}, true)
	if err := del.Init(newExecCtx(store, m)); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := drainAll(del); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if _, ok := store.GetNode(ids["alice"]); ok {
		t.Fatalf("want alice deleted")
	}
	if _, ok := store.GetNode(ids["bob"]); ok {
		t.Fatalf("want bob deleted")
	}
}

func TestMergeRunsCreateWhenMatchIsEmpty(t *testing.T) {
	store, reg, _ := newTestStore()
	person := reg.GetLabelID("Person")
	name := reg.GetAttributeID("name")

	m := record.NewMap()
	m.Add("n")

	match := &recordFeed{}
	create := NewCreate(&recordFeed{recs: []*record.Record{record.New(m)}},
		[]NodePattern{{Alias: "n", Labels: []graph.LabelID{person}, Properties: []PropertySet{{Attribute: name, Expr: &arithmetic.Constant{Value: "dave"}}}}},
		nil)

	merge := NewMerge(match, nil, create, nil)
	if err := merge.Init(newExecCtx(store, m)); err != nil {
		t.Fatalf("init: %v", err)
	}
	recs, err := drainAll(merge)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("want 1 created record, got %d", len(recs))
	}
	if store.NodeCount() != 4 {
		t.Fatalf("want a 4th node created, got count %d", store.NodeCount())
	}
}

func TestMergeAppliesOnMatchSetWhenMatchFound(t *testing.T) {
	store, reg, ids := newTestStore()
	name := reg.GetAttributeID("name")

	m := record.NewMap()
	m.Add("n")
	n, _ := store.GetNode(ids["alice"])
	rec := record.New(m)
	rec.SetNode("n", n)
	match := &recordFeed{recs: []*record.Record{rec}}
	create := NewCreate(&recordFeed{}, nil, nil) // never drained since the match branch found a row

	merge := NewMerge(match, []UpdateSet{{Alias: "n", Attribute: name, Expr: &arithmetic.Constant{Value: "MATCHED"}}}, create, nil)
	if err := merge.Init(newExecCtx(store, m)); err != nil {
		t.Fatalf("init: %v", err)
	}
	recs, err := drainAll(merge)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("want 1 matched record, got %d", len(recs))
	}
	got, _ := store.GetNode(ids["alice"])
	if got.Properties[name] != "MATCHED" {
		t.Fatalf("want ON MATCH SET applied, got %v", got.Properties[name])
	}
}

func TestForeachRunsSubPlanPerElement(t *testing.T) {
	store, _, _ := newTestStore()
	m := record.NewMap()
	m.Add("n")
	m.Add("item")

	parent := &recordFeed{recs: []*record.Record{record.New(m)}}
	argList := NewArgumentList([]string{"item"})
	sub := NewLimit(argList, 1000) // drains whatever was pushed

	fe := NewForeach(parent, &arithmetic.Constant{Value: []any{1, 2, 3}}, "item", sub, argList)
	if err := fe.Init(newExecCtx(store, m)); err != nil {
		t.Fatalf("init: %v", err)
	}
	recs, err := drainAll(fe)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("want 1 output record (one per parent row), got %d", len(recs))
	}
}
