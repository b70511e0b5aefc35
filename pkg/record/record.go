// Package record implements the tuple threaded between operators (spec
// §3.3): an ordered array of typed slots, one per distinct alias
// referenced anywhere in a plan segment, with indices assigned at
// plan-build time by the segment's record map.
package record

import "github.com/orneryd/cypherengine/pkg/graph"

// SlotType tags what kind of value a Slot currently holds.
type SlotType uint8

const (
	Unresolved SlotType = iota
	SlotNode
	SlotEdge
	SlotPath
	SlotScalar
)

// Slot is one value in a Record.
type Slot struct {
	Type   SlotType
	Node   *graph.Node
	Edge   *graph.Edge
	Path   *Path
	Scalar any
}

// Path is a named sequence of alternating node/edge references, the
// value form of a bound `p = (a)-[r]->(b)` pattern.
type Path struct {
	Nodes []*graph.Node
	Edges []*graph.Edge
}

// Length returns the number of hops (edges) in the path, the value
// `length(p)` returns.
func (p *Path) Length() int { return len(p.Edges) }

// Map is the alias -> slot-index binding assigned at plan-build time.
// Shared by every operator in a plan segment; immutable once the segment
// is built.
type Map struct {
	index map[string]int
	names []string
}

// NewMap returns an empty record map.
func NewMap() *Map {
	return &Map{index: make(map[string]int)}
}

// Add registers a new alias, returning its slot index. Re-adding an
// existing alias returns its existing index (aliases are unique within a
// query graph per spec §3.2, but sub-plan merges may re-add the same
// alias when binding back to a parent segment).
func (m *Map) Add(alias string) int {
	if idx, ok := m.index[alias]; ok {
		return idx
	}
	idx := len(m.names)
	m.index[alias] = idx
	m.names = append(m.names, alias)
	return idx
}

// Lookup returns the slot index for an alias and whether it is bound.
func (m *Map) Lookup(alias string) (int, bool) {
	idx, ok := m.index[alias]
	return idx, ok
}

// Len is the number of distinct aliases (and thus the Record width).
func (m *Map) Len() int { return len(m.names) }

// Alias returns the alias name bound to a slot index.
func (m *Map) Alias(idx int) string { return m.names[idx] }

// Record is the fixed-width tuple pulled between operators.
type Record struct {
	slots []Slot
	m     *Map
}

// New allocates a zero-valued (all Unresolved) record sized to m.
func New(m *Map) *Record {
	return &Record{slots: make([]Slot, m.Len()), m: m}
}

// Map returns the record's record map.
func (r *Record) Map() *Map { return r.m }

// SetNode binds a node to an alias's slot.
func (r *Record) SetNode(alias string, n *graph.Node) {
	idx, ok := r.m.Lookup(alias)
	if !ok {
		return
	}
	r.slots[idx] = Slot{Type: SlotNode, Node: n}
}

// SetEdge binds an edge to an alias's slot.
func (r *Record) SetEdge(alias string, e *graph.Edge) {
	idx, ok := r.m.Lookup(alias)
	if !ok {
		return
	}
	r.slots[idx] = Slot{Type: SlotEdge, Edge: e}
}

// SetScalar binds a scalar value to an alias's slot.
func (r *Record) SetScalar(alias string, v any) {
	idx, ok := r.m.Lookup(alias)
	if !ok {
		return
	}
	r.slots[idx] = Slot{Type: SlotScalar, Scalar: v}
}

// SetPath binds a path value to an alias's slot.
func (r *Record) SetPath(alias string, p *Path) {
	idx, ok := r.m.Lookup(alias)
	if !ok {
		return
	}
	r.slots[idx] = Slot{Type: SlotPath, Path: p}
}

// Get returns the raw slot for an alias.
func (r *Record) Get(alias string) (Slot, bool) {
	idx, ok := r.m.Lookup(alias)
	if !ok {
		return Slot{}, false
	}
	return r.slots[idx], true
}

// GetByIndex returns the raw slot at a pre-resolved index, avoiding a map
// lookup on the hot traversal path.
func (r *Record) GetByIndex(idx int) Slot { return r.slots[idx] }

// SetByIndex writes a slot at a pre-resolved index.
func (r *Record) SetByIndex(idx int, s Slot) { r.slots[idx] = s }

// Clone copies slot tags and scalar payloads; graph-entity slots remain
// references into the stored graph (spec §3.3 invariant). Callers that
// will persist scalars the parent may still read after the producer
// mutates its output should call Persist first.
func (r *Record) Clone() *Record {
	cp := &Record{slots: make([]Slot, len(r.slots)), m: r.m}
	copy(cp.slots, r.slots)
	return cp
}

// Persist detaches scalar payloads so a later mutation of the shared
// underlying value (e.g. a reused aggregation accumulator) does not
// retroactively change what this record reports. This is the explicit
// protocol spec §9 calls out at the Record API boundary: the batched
// traverse operator clones the source record per destination, but any
// scalar it carries that points at mutable producer-owned state must be
// persisted before crossing to a consumer that outlives the current batch.
func (r *Record) Persist() {
	for i, s := range r.slots {
		if s.Type == SlotScalar {
			r.slots[i].Scalar = persistValue(s.Scalar)
		}
	}
}

func persistValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = persistValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = persistValue(e)
		}
		return out
	default:
		return v
	}
}
