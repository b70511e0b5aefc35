// Package schema is the per-graph registry of attribute names, label
// names, and relation-type names to their interned integer ids, plus the
// exact-match property indices the optimizer's "utilize indices" pass
// consults. Grounded on the teacher's pkg/storage/schema.go SchemaManager,
// trimmed of vector/fulltext indexing (out of scope here) and of the
// Neo4j uniqueness-constraint machinery the teacher layered on top.
package schema

import (
	"sort"
	"sync"

	"github.com/orneryd/cypherengine/pkg/graph"
)

// Registry interns label, relation-type and attribute names to stable
// ids, assigning new ids the first time a name is seen. One Registry is
// owned per graph context.
type Registry struct {
	mu sync.RWMutex

	labelIDs   map[string]graph.LabelID
	labelNames []string

	relIDs   map[string]graph.RelationID
	relNames []string

	attrIDs   map[string]graph.AttributeID
	attrNames []string

	indexes map[IndexKey]*PropertyIndex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		labelIDs: make(map[string]graph.LabelID),
		relIDs:   make(map[string]graph.RelationID),
		attrIDs:  make(map[string]graph.AttributeID),
	}
}

// GetLabelID resolves a label name, returning graph.UnknownID if the
// label has never been registered (spec §3.2: unresolved ids become
// empty result sets, not errors).
func (r *Registry) GetLabelID(name string) graph.LabelID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.labelIDs[name]; ok {
		return id
	}
	return graph.UnknownID
}

// FindOrAddLabelID resolves a label name, registering it if unseen.
func (r *Registry) FindOrAddLabelID(name string) graph.LabelID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.labelIDs[name]; ok {
		return id
	}
	id := graph.LabelID(len(r.labelNames))
	r.labelIDs[name] = id
	r.labelNames = append(r.labelNames, name)
	return id
}

// LabelName resolves an id back to its name.
func (r *Registry) LabelName(id graph.LabelID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(r.labelNames) {
		return ""
	}
	return r.labelNames[id]
}

// AllLabels returns every registered label name, sorted.
func (r *Registry) AllLabels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]string(nil), r.labelNames...)
	sort.Strings(out)
	return out
}

// GetRelationID resolves a relation-type name, or graph.UnknownID.
func (r *Registry) GetRelationID(name string) graph.RelationID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.relIDs[name]; ok {
		return id
	}
	return graph.UnknownID
}

// FindOrAddRelationID resolves a relation-type name, registering it if unseen.
func (r *Registry) FindOrAddRelationID(name string) graph.RelationID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.relIDs[name]; ok {
		return id
	}
	id := graph.RelationID(len(r.relNames))
	r.relIDs[name] = id
	r.relNames = append(r.relNames, name)
	return id
}

// RelationName resolves an id back to its name.
func (r *Registry) RelationName(id graph.RelationID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(r.relNames) {
		return ""
	}
	return r.relNames[id]
}

// AllRelations returns every registered relation-type name, sorted.
func (r *Registry) AllRelations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]string(nil), r.relNames...)
	sort.Strings(out)
	return out
}

// GetAttributeID resolves a property name, or graph.UnknownID if absent.
func (r *Registry) GetAttributeID(name string) graph.AttributeID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.attrIDs[name]; ok {
		return id
	}
	return graph.AttributeID(graph.UnknownID)
}

// FindOrAddAttributeID resolves a property name, registering it if unseen.
func (r *Registry) FindOrAddAttributeID(name string) graph.AttributeID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.attrIDs[name]; ok {
		return id
	}
	id := graph.AttributeID(len(r.attrNames))
	r.attrIDs[name] = id
	r.attrNames = append(r.attrNames, name)
	return id
}

// AttributeName resolves an id back to its name.
func (r *Registry) AttributeName(id graph.AttributeID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) < 0 || int(id) >= len(r.attrNames) {
		return ""
	}
	return r.attrNames[id]
}

// AllAttributes returns every registered property-key name, sorted.
func (r *Registry) AllAttributes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]string(nil), r.attrNames...)
	sort.Strings(out)
	return out
}
