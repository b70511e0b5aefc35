package procedures

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/orneryd/cypherengine/pkg/graph"
)

// RegisterBuiltins wires every built-in procedure spec §4.7 names against
// one graph's store and schema registry.
func RegisterBuiltins(reg *Registry, store graph.Store) {
	registerLabels(reg, store)
	registerRelationshipTypes(reg, store)
	registerPropertyKeys(reg, store)
	registerIndexManagement(reg, store)
	registerShortestWeightedPaths(reg, store)
	registerCommonNeighbors(reg, store)
}

// db.labels() — list every registered label name (grounded on
// proc_labels.c's single output column "label").
func registerLabels(reg *Registry, store graph.Store) {
	reg.Register(&Procedure{
		Name: "db.labels", Arity: 0, Reentrant: true,
		Outputs: []Column{{Name: "label", Type: "string"}},
		Invoke: func(args []any, yield []string) (Cursor, error) {
			names := store.Schema().AllLabels()
			rows := make([][]any, len(names))
			for i, n := range names {
				rows[i] = []any{n}
			}
			return newSliceCursor(rows), nil
		},
	})
}

// db.relationshipTypes() — list every registered relation-type name
// (proc_relations.c).
func registerRelationshipTypes(reg *Registry, store graph.Store) {
	reg.Register(&Procedure{
		Name: "db.relationshipTypes", Arity: 0, Reentrant: true,
		Outputs: []Column{{Name: "relationshipType", Type: "string"}},
		Invoke: func(args []any, yield []string) (Cursor, error) {
			names := store.Schema().AllRelations()
			rows := make([][]any, len(names))
			for i, n := range names {
				rows[i] = []any{n}
			}
			return newSliceCursor(rows), nil
		},
	})
}

// db.propertyKeys() — list every interned property name (proc_property_keys.c).
func registerPropertyKeys(reg *Registry, store graph.Store) {
	reg.Register(&Procedure{
		Name: "db.propertyKeys", Arity: 0, Reentrant: true,
		Outputs: []Column{{Name: "propertyKey", Type: "string"}},
		Invoke: func(args []any, yield []string) (Cursor, error) {
			names := store.Schema().AllAttributes()
			rows := make([][]any, len(names))
			for i, n := range names {
				rows[i] = []any{n}
			}
			return newSliceCursor(rows), nil
		},
	})
}

// db.indexes(), db.createIndex(label, property), db.dropIndex(label,
// property) — index management built-ins (spec §4.7).
func registerIndexManagement(reg *Registry, store graph.Store) {
	reg.Register(&Procedure{
		Name: "db.indexes", Arity: 0, Reentrant: true,
		Outputs: []Column{{Name: "label", Type: "string"}, {Name: "property", Type: "string"}},
		Invoke: func(args []any, yield []string) (Cursor, error) {
			s := store.Schema()
			keys := s.ListIndexes()
			rows := make([][]any, len(keys))
			for i, k := range keys {
				rows[i] = []any{s.LabelName(k.Label), s.AttributeName(k.Attribute)}
			}
			return newSliceCursor(rows), nil
		},
	})
	reg.Register(&Procedure{
		Name: "db.createIndex", Arity: 2,
		Outputs: []Column{{Name: "status", Type: "string"}},
		Invoke: func(args []any, yield []string) (Cursor, error) {
			if len(args) != 2 {
				return invalidArity("db.createIndex", len(args), 2), nil
			}
			label, property := fmt.Sprint(args[0]), fmt.Sprint(args[1])
			s := store.Schema()
			attr := s.FindOrAddAttributeID(property)
			labelID := s.FindOrAddLabelID(label)
			if err := s.CreateIndex(labelID, attr); err != nil {
				return &errCursor{err: err}, nil
			}
			return newSliceCursor([][]any{{"created"}}), nil
		},
	})
	reg.Register(&Procedure{
		Name: "db.dropIndex", Arity: 2,
		Outputs: []Column{{Name: "status", Type: "string"}},
		Invoke: func(args []any, yield []string) (Cursor, error) {
			if len(args) != 2 {
				return invalidArity("db.dropIndex", len(args), 2), nil
			}
			label, property := fmt.Sprint(args[0]), fmt.Sprint(args[1])
			s := store.Schema()
			attr := s.GetAttributeID(property)
			labelID := s.GetLabelID(label)
			if err := s.DropIndex(labelID, attr); err != nil {
				return &errCursor{err: err}, nil
			}
			return newSliceCursor([][]any{{"dropped"}}), nil
		},
	})
}

// weightedEdge/heap item for Dijkstra, grounded on the priority-queue
// shape proc_ssmw_paths.c builds over a min-heap of WeightedPath.
type pqItem struct {
	node graph.NodeID
	cost float64
}
type priorityQueue []pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].cost < pq[j].cost }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x any)         { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// algo.SSMWShortestPath(srcID, weightProperty) — single-source weighted
// shortest paths via Dijkstra (grounded on proc_ssmw_paths.c), returning
// one row per reachable node: its id and total path cost.
func registerShortestWeightedPaths(reg *Registry, store graph.Store) {
	reg.Register(&Procedure{
		Name: "algo.SSMWShortestPath", Arity: 2,
		Outputs: []Column{{Name: "nodeId", Type: "int"}, {Name: "cost", Type: "float"}},
		Invoke: func(args []any, yield []string) (Cursor, error) {
			if len(args) != 2 {
				return invalidArity("algo.SSMWShortestPath", len(args), 2), nil
			}
			srcID, ok := toNodeID(args[0])
			if !ok {
				return &errCursor{err: fmt.Errorf("procedures: SSMWShortestPath requires a numeric source node id")}, nil
			}
			weightProp := fmt.Sprint(args[1])
			attr := store.Schema().GetAttributeID(weightProp)
			dist := dijkstra(store, srcID, attr)
			ids := make([]graph.NodeID, 0, len(dist))
			for id := range dist {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			rows := make([][]any, len(ids))
			for i, id := range ids {
				rows[i] = []any{int64(id), dist[id]}
			}
			return newSliceCursor(rows), nil
		},
	})
}

func dijkstra(store graph.Store, src graph.NodeID, weightAttr graph.AttributeID) map[graph.NodeID]float64 {
	dist := map[graph.NodeID]float64{src: 0}
	pq := &priorityQueue{{node: src, cost: 0}}
	heap.Init(pq)
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqItem)
		if cur.cost > dist[cur.node] {
			continue
		}
		for _, nid := range outNeighbors(store, cur.node) {
			edges := store.EdgesBetween(cur.node, nid, nil)
			if len(edges) == 0 {
				continue
			}
			w := edgeWeight(edges[0], weightAttr)
			next := cur.cost + w
			if d, ok := dist[nid]; !ok || next < d {
				dist[nid] = next
				heap.Push(pq, pqItem{node: nid, cost: next})
			}
		}
	}
	return dist
}

func edgeWeight(e *graph.Edge, attr graph.AttributeID) float64 {
	if attr == graph.AttributeID(graph.UnknownID) {
		return 1
	}
	v, ok := e.Properties[attr]
	if !ok {
		return 1
	}
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	default:
		return 1
	}
}

// outNeighbors enumerates every node reachable by one outgoing edge from
// id, across all relation types — used by Dijkstra's relaxation step.
func outNeighbors(store graph.Store, id graph.NodeID) []graph.NodeID {
	seen := make(map[graph.NodeID]bool)
	var out []graph.NodeID
	for _, candidate := range store.AllNodeIDs() {
		if candidate == id {
			continue
		}
		if len(store.EdgesBetween(id, candidate, nil)) > 0 && !seen[candidate] {
			seen[candidate] = true
			out = append(out, candidate)
		}
	}
	return out
}

// algo.commonNeighbors(nodeA, nodeB) — similarity by shared neighbor count
// (grounded on proc_common_neighbors.c).
func registerCommonNeighbors(reg *Registry, store graph.Store) {
	reg.Register(&Procedure{
		Name: "algo.commonNeighbors", Arity: 2,
		Outputs: []Column{{Name: "nodeId", Type: "int"}, {Name: "score", Type: "int"}},
		Invoke: func(args []any, yield []string) (Cursor, error) {
			if len(args) != 2 {
				return invalidArity("algo.commonNeighbors", len(args), 2), nil
			}
			a, aok := toNodeID(args[0])
			b, bok := toNodeID(args[1])
			if !aok || !bok {
				return &errCursor{err: fmt.Errorf("procedures: commonNeighbors requires two numeric node ids")}, nil
			}
			na := neighborSet(store, a)
			nb := neighborSet(store, b)
			count := 0
			for id := range na {
				if nb[id] {
					count++
				}
			}
			return newSliceCursor([][]any{{int64(a), count}, {int64(b), count}}), nil
		},
	})
}

func neighborSet(store graph.Store, id graph.NodeID) map[graph.NodeID]bool {
	set := make(map[graph.NodeID]bool)
	for _, other := range store.AllNodeIDs() {
		if other == id {
			continue
		}
		if len(store.EdgesBetween(id, other, nil)) > 0 || len(store.EdgesBetween(other, id, nil)) > 0 {
			set[other] = true
		}
	}
	return set
}

func toNodeID(v any) (graph.NodeID, bool) {
	switch t := v.(type) {
	case int64:
		return graph.NodeID(t), true
	case int:
		return graph.NodeID(t), true
	case graph.NodeID:
		return t, true
	default:
		return 0, false
	}
}
