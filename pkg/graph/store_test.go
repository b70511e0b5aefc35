package graph

import (
	"testing"

	"github.com/orneryd/cypherengine/pkg/schema"
)

func newTestStore() (*MemoryStore, *schema.Registry) {
	reg := schema.NewRegistry()
	return NewMemoryStore(reg), reg
}

func TestCreateEdgeRejectsMissingEndpoint(t *testing.T) {
	s, reg := newTestStore()
	person := reg.FindOrAddLabelID("Person")
	a := s.AddNode([]LabelID{person}, nil)
	_, err := s.CreateEdge(a.ID, NodeID(999), reg.FindOrAddRelationID("KNOWS"), nil)
	if err == nil {
		t.Fatalf("expected error creating edge to missing node")
	}
}

func TestLabelMatrixTracksMembership(t *testing.T) {
	s, reg := newTestStore()
	person := reg.FindOrAddLabelID("Person")
	a := s.AddNode([]LabelID{person}, nil)
	m := s.GetLabelMatrix(person)
	row := m.Row(uint64(a.ID))
	if row == nil || !row.Contains(uint32(a.ID)) {
		t.Fatalf("expected label diagonal entry for node %v", a.ID)
	}
	s.RemoveLabel(a, person)
	row = m.Row(uint64(a.ID))
	if row != nil && row.Contains(uint32(a.ID)) {
		t.Fatalf("expected label entry removed")
	}
}

func TestRelationMatrixTracksEdges(t *testing.T) {
	s, reg := newTestStore()
	person := reg.FindOrAddLabelID("Person")
	knows := reg.FindOrAddRelationID("KNOWS")
	a := s.AddNode([]LabelID{person}, nil)
	b := s.AddNode([]LabelID{person}, nil)
	if _, err := s.CreateEdge(a.ID, b.ID, knows, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := s.GetRelationMatrix(knows)
	row := m.Row(uint64(a.ID))
	if row == nil || !row.Contains(uint32(b.ID)) {
		t.Fatalf("expected a->b entry in relation matrix")
	}
}

func TestEdgesBetweenFiltersByRelation(t *testing.T) {
	s, reg := newTestStore()
	a := s.AddNode(nil, nil)
	b := s.AddNode(nil, nil)
	knows := reg.FindOrAddRelationID("KNOWS")
	likes := reg.FindOrAddRelationID("LIKES")
	if _, err := s.CreateEdge(a.ID, b.ID, knows, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateEdge(a.ID, b.ID, likes, nil); err != nil {
		t.Fatal(err)
	}

	got := s.EdgesBetween(a.ID, b.ID, []RelationID{knows})
	if len(got) != 1 || got[0].Relation != knows {
		t.Fatalf("expected exactly the KNOWS edge, got %+v", got)
	}

	all := s.EdgesBetween(a.ID, b.ID, nil)
	if len(all) != 2 {
		t.Fatalf("expected both edges with no relation filter, got %d", len(all))
	}
}

func TestDegrees(t *testing.T) {
	s, reg := newTestStore()
	a := s.AddNode(nil, nil)
	b := s.AddNode(nil, nil)
	knows := reg.FindOrAddRelationID("KNOWS")
	if _, err := s.CreateEdge(a.ID, b.ID, knows, nil); err != nil {
		t.Fatal(err)
	}
	if s.OutDegree(a.ID) != 1 {
		t.Fatalf("expected out-degree 1 for a, got %d", s.OutDegree(a.ID))
	}
	if s.InDegree(b.ID) != 1 {
		t.Fatalf("expected in-degree 1 for b, got %d", s.InDegree(b.ID))
	}
}
