package graph

import (
	"sync"

	"github.com/orneryd/cypherengine/pkg/matrix"
	"github.com/orneryd/cypherengine/pkg/schema"
)

// Store is the outbound "graph store" collaborator interface (spec §6):
// node/edge CRUD, degree lookups, and the sparse label/relation matrices
// traversal operators evaluate algebraic expressions against.
type Store interface {
	GetNode(id NodeID) (*Node, bool)
	GetEdge(id EdgeID) (*Edge, bool)
	NodeCount() int64
	EdgeCount() int64

	AddNode(labels []LabelID, props map[AttributeID]any) *Node
	CreateEdge(src, dest NodeID, relation RelationID, props map[AttributeID]any) (*Edge, error)
	DeleteNode(id NodeID) error
	DeleteEdge(id EdgeID) error

	SetProperty(n *Node, attr AttributeID, value any)
	AddLabel(n *Node, label LabelID)
	RemoveLabel(n *Node, label LabelID)

	AllNodeIDs() []NodeID
	InDegree(id NodeID) int
	OutDegree(id NodeID) int

	GetLabelMatrix(label LabelID) *matrix.Matrix
	GetRelationMatrix(rel RelationID) *matrix.Matrix

	// EdgesBetween enumerates the actual Edge entities running from src
	// to dest, filtered to a set of relation types (empty = any type).
	// Used by traversal's edge-context enumeration (spec §4.4 step 5).
	EdgesBetween(src, dest NodeID, relations []RelationID) []*Edge

	Schema() *schema.Registry
}

// MemoryStore is an in-memory Store implementation. Grounded on the
// teacher's pkg/storage/memory.go (sync.RWMutex-guarded maps); trimmed of
// decay scoring, embeddings, and Neo4j JSON export which have no home in
// this engine.
type MemoryStore struct {
	mu sync.RWMutex

	nodes   map[NodeID]*Node
	edges   map[EdgeID]*Edge
	nextNID NodeID
	nextEID EdgeID

	// out[src][rel] = ids of the edges of rel leaving src; in[dest][rel]
	// likewise for the edges of rel arriving at dest.
	out map[NodeID]map[RelationID][]EdgeID
	in  map[NodeID]map[RelationID][]EdgeID

	labelMatrices map[LabelID]*matrix.Matrix
	relMatrices   map[RelationID]*matrix.Matrix

	schema *schema.Registry
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(reg *schema.Registry) *MemoryStore {
	return &MemoryStore{
		nodes:         make(map[NodeID]*Node),
		edges:         make(map[EdgeID]*Edge),
		out:           make(map[NodeID]map[RelationID][]EdgeID),
		in:            make(map[NodeID]map[RelationID][]EdgeID),
		labelMatrices: make(map[LabelID]*matrix.Matrix),
		relMatrices:   make(map[RelationID]*matrix.Matrix),
		schema:        reg,
	}
}

func (s *MemoryStore) Schema() *schema.Registry { return s.schema }

func (s *MemoryStore) GetNode(id NodeID) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok
}

func (s *MemoryStore) GetEdge(id EdgeID) (*Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.edges[id]
	return e, ok
}

func (s *MemoryStore) NodeCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.nodes))
}

func (s *MemoryStore) EdgeCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.edges))
}

func (s *MemoryStore) labelMatrix(label LabelID) *matrix.Matrix {
	m, ok := s.labelMatrices[label]
	if !ok {
		m = matrix.New()
		s.labelMatrices[label] = m
	}
	return m
}

func (s *MemoryStore) relMatrix(rel RelationID) *matrix.Matrix {
	m, ok := s.relMatrices[rel]
	if !ok {
		m = matrix.New()
		s.relMatrices[rel] = m
	}
	return m
}

func (s *MemoryStore) AddNode(labels []LabelID, props map[AttributeID]any) *Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextNID
	s.nextNID++
	if props == nil {
		props = make(map[AttributeID]any)
	}
	n := &Node{ID: id, Labels: append([]LabelID(nil), labels...), Properties: props}
	s.nodes[id] = n
	for _, l := range labels {
		s.labelMatrix(l).Set(uint64(id), uint64(id)) // diagonal matrix
	}
	return n
}

func (s *MemoryStore) CreateEdge(src, dest NodeID, relation RelationID, props map[AttributeID]any) (*Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[src]; !ok {
		return nil, ErrInvalidEdge
	}
	if _, ok := s.nodes[dest]; !ok {
		return nil, ErrInvalidEdge
	}
	id := s.nextEID
	s.nextEID++
	if props == nil {
		props = make(map[AttributeID]any)
	}
	e := &Edge{ID: id, Src: src, Dest: dest, Relation: relation, Properties: props}
	s.edges[id] = e

	if s.out[src] == nil {
		s.out[src] = make(map[RelationID][]EdgeID)
	}
	s.out[src][relation] = append(s.out[src][relation], id)
	if s.in[dest] == nil {
		s.in[dest] = make(map[RelationID][]EdgeID)
	}
	s.in[dest][relation] = append(s.in[dest][relation], id)

	s.relMatrix(relation).Set(uint64(src), uint64(dest))
	return e, nil
}

func (s *MemoryStore) DeleteNode(id NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return ErrNotFound
	}
	for _, l := range n.Labels {
		if m, ok := s.labelMatrices[l]; ok {
			if row := m.Row(uint64(id)); row != nil {
				row.Remove(uint32(id))
			}
		}
	}
	delete(s.nodes, id)
	return nil
}

func (s *MemoryStore) DeleteEdge(id EdgeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.edges[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.edges, id)
	if m, ok := s.relMatrices[e.Relation]; ok {
		if row := m.Row(uint64(e.Src)); row != nil {
			row.Remove(uint32(e.Dest))
		}
	}
	return nil
}

func (s *MemoryStore) SetProperty(n *Node, attr AttributeID, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.Properties[attr] = value
}

func (s *MemoryStore) AddLabel(n *Node, label LabelID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.HasLabel(label) {
		return
	}
	n.Labels = append(n.Labels, label)
	s.labelMatrix(label).Set(uint64(n.ID), uint64(n.ID))
}

func (s *MemoryStore) RemoveLabel(n *Node, label LabelID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range n.Labels {
		if l == label {
			n.Labels = append(n.Labels[:i], n.Labels[i+1:]...)
			break
		}
	}
	if m, ok := s.labelMatrices[label]; ok {
		if row := m.Row(uint64(n.ID)); row != nil {
			row.Remove(uint32(n.ID))
		}
	}
}

func (s *MemoryStore) AllNodeIDs() []NodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]NodeID, 0, len(s.nodes))
	for id := range s.nodes {
		out = append(out, id)
	}
	return out
}

func (s *MemoryStore) InDegree(id NodeID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, ids := range s.in[id] {
		n += len(ids)
	}
	return n
}

func (s *MemoryStore) OutDegree(id NodeID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, ids := range s.out[id] {
		n += len(ids)
	}
	return n
}

func (s *MemoryStore) GetLabelMatrix(label LabelID) *matrix.Matrix {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.labelMatrix(label)
}

func (s *MemoryStore) GetRelationMatrix(rel RelationID) *matrix.Matrix {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.relMatrix(rel)
}

func (s *MemoryStore) EdgesBetween(src, dest NodeID, relations []RelationID) []*Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	allowed := func(r RelationID) bool {
		if len(relations) == 0 {
			return true
		}
		for _, want := range relations {
			if want == r {
				return true
			}
		}
		return false
	}
	var out []*Edge
	for rel, ids := range s.out[src] {
		if !allowed(rel) {
			continue
		}
		for _, id := range ids {
			if e := s.edges[id]; e != nil && e.Dest == dest {
				out = append(out, e)
			}
		}
	}
	return out
}
