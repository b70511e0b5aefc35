package operators

import (
	"github.com/orneryd/cypherengine/pkg/graph"
	"github.com/orneryd/cypherengine/pkg/record"
	"github.com/orneryd/cypherengine/pkg/schema"
)

// newTestStore builds a tiny store used across operator tests: three
// Person nodes (alice, bob, carol) with a "name" property, and two
// KNOWS edges alice->bob, bob->carol.
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

func newExecCtx(store graph.Store, m *record.Map) *ExecContext {
	return &ExecContext{Store: store, Params: map[string]any{}, Map: m, BatchSize: 64, ResultCap: -1}
}

// drainAll pulls every record from an already-Init'd op.
func drainAll(op Op) ([]*record.Record, error) {
	return drain(op)
}
