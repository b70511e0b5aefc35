package schema

import (
	"fmt"
	"sort"
	"sync"

	"github.com/orneryd/cypherengine/pkg/graph"
)

// IndexKey identifies an index by the (label, attribute) pair it covers,
// matching the "Schema registry: index lookup by (label, attribute)"
// outbound interface in spec §6.
type IndexKey struct {
	Label     graph.LabelID
	Attribute graph.AttributeID
}

// PropertyIndex is an exact-match index over one (label, attribute) pair:
// value -> set of node ids carrying that value. Grounded on the teacher's
// PropertyIndex in pkg/storage/schema.go, trimmed to the exact-match case
// the spec's "Index scan (exact-match)" operator needs.
type PropertyIndex struct {
	mu      sync.RWMutex
	entries map[any]map[graph.NodeID]struct{}
}

func newPropertyIndex() *PropertyIndex {
	return &PropertyIndex{entries: make(map[any]map[graph.NodeID]struct{})}
}

// Insert records that nodeID carries the given value.
func (p *PropertyIndex) Insert(value any, nodeID graph.NodeID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	set, ok := p.entries[value]
	if !ok {
		set = make(map[graph.NodeID]struct{})
		p.entries[value] = set
	}
	set[nodeID] = struct{}{}
}

// Remove un-records nodeID for the given value.
func (p *PropertyIndex) Remove(value any, nodeID graph.NodeID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if set, ok := p.entries[value]; ok {
		delete(set, nodeID)
		if len(set) == 0 {
			delete(p.entries, value)
		}
	}
}

// Lookup returns every node id recorded for an exact value match.
func (p *PropertyIndex) Lookup(value any) []graph.NodeID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	set := p.entries[value]
	out := make([]graph.NodeID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Registry additions: index management (CREATE/DROP/list indices, the
// three built-in procedures spec §4.7 names).

// CreateIndex registers a new exact-match index over (label, attribute).
// Returns an error (IndexError class, spec §7) if one already exists.
func (r *Registry) CreateIndex(label graph.LabelID, attr graph.AttributeID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexes == nil {
		r.indexes = make(map[IndexKey]*PropertyIndex)
	}
	key := IndexKey{Label: label, Attribute: attr}
	if _, ok := r.indexes[key]; ok {
		return fmt.Errorf("schema: index on (%v,%v) already exists", label, attr)
	}
	r.indexes[key] = newPropertyIndex()
	return nil
}

// DropIndex removes an index. Returns an IndexError-class error if it
// does not exist (spec §7 IndexError example).
func (r *Registry) DropIndex(label graph.LabelID, attr graph.AttributeID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := IndexKey{Label: label, Attribute: attr}
	if _, ok := r.indexes[key]; !ok {
		return fmt.Errorf("schema: no such index on (%v,%v)", label, attr)
	}
	delete(r.indexes, key)
	return nil
}

// GetIndex returns the index for (label, attribute), or nil if none exists.
func (r *Registry) GetIndex(label graph.LabelID, attr graph.AttributeID) *PropertyIndex {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexes[IndexKey{Label: label, Attribute: attr}]
}

// ListIndexes returns every registered index key, used by the "list
// indices" built-in procedure.
func (r *Registry) ListIndexes() []IndexKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]IndexKey, 0, len(r.indexes))
	for k := range r.indexes {
		out = append(out, k)
	}
	return out
}
