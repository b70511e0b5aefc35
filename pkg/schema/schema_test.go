package schema

import "testing"

func TestFindOrAddLabelIDIsStable(t *testing.T) {
	r := NewRegistry()
	a := r.FindOrAddLabelID("Person")
	b := r.FindOrAddLabelID("Person")
	if a != b {
		t.Fatalf("expected stable id, got %v then %v", a, b)
	}
	if r.LabelName(a) != "Person" {
		t.Fatalf("expected round-trip name, got %q", r.LabelName(a))
	}
}

func TestUnknownLabelIsUnknownID(t *testing.T) {
	r := NewRegistry()
	if id := r.GetLabelID("DoesNotExist"); id != -1 {
		t.Fatalf("expected UnknownID, got %v", id)
	}
}

func TestCreateIndexRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	label := r.FindOrAddLabelID("Person")
	attr := r.FindOrAddAttributeID("name")
	if err := r.CreateIndex(label, attr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.CreateIndex(label, attr); err == nil {
		t.Fatalf("expected error creating duplicate index")
	}
}

func TestDropMissingIndexErrors(t *testing.T) {
	r := NewRegistry()
	if err := r.DropIndex(0, 0); err == nil {
		t.Fatalf("expected error dropping nonexistent index")
	}
}

func TestPropertyIndexLookup(t *testing.T) {
	idx := newPropertyIndex()
	idx.Insert("alice", 1)
	idx.Insert("alice", 2)
	idx.Insert("bob", 3)

	got := idx.Lookup("alice")
	if len(got) != 2 {
		t.Fatalf("expected 2 nodes for 'alice', got %v", got)
	}

	idx.Remove("alice", 1)
	got = idx.Lookup("alice")
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected only node 2 after removal, got %v", got)
	}
}
