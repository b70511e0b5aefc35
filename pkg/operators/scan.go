package operators

import (
	"sort"

	"github.com/orneryd/cypherengine/pkg/graph"
	"github.com/orneryd/cypherengine/pkg/matrix"
	"github.com/orneryd/cypherengine/pkg/record"
)

// AllNodeScan iterates every live node (spec §4.2.1). With a child it
// becomes the nested variant: the seek restarts once per incoming parent
// record.
type AllNodeScan struct {
	Base
	Alias string

	ids     []graph.NodeID
	idx     int
	pending *record.Record // current parent record, nested variant only
}

func NewAllNodeScan(alias string, child Op) *AllNodeScan {
	b := Base{NameStr: "All Node Scan", ModifiesList: []string{alias}}
	if child != nil {
		b.ChildOps = []Op{child}
	}
	return &AllNodeScan{Base: b, Alias: alias}
}

func (s *AllNodeScan) nested() bool { return s.child() != nil }

func (s *AllNodeScan) loadIDs() {
	s.ids = s.Ctx.Store.AllNodeIDs()
	sort.Slice(s.ids, func(i, j int) bool { return s.ids[i] < s.ids[j] })
	s.idx = 0
}

func (s *AllNodeScan) Init(ctx *ExecContext) error {
	if err := s.initChildren(ctx); err != nil {
		return err
	}
	if !s.nested() {
		s.loadIDs()
	}
	return nil
}

func (s *AllNodeScan) Reset() error {
	if s.nested() {
		return s.resetChildren()
	}
	s.loadIDs()
	return nil
}

func (s *AllNodeScan) Consume() (*record.Record, error) {
	if !s.nested() {
		return s.next(nil)
	}
	for {
		if s.idx < len(s.ids) {
			return s.next(s.pending)
		}
		parentRec, err := s.child().Consume()
		if err != nil || parentRec == nil {
			return nil, err
		}
		s.pending = parentRec
		s.loadIDs()
	}
}

func (s *AllNodeScan) next(parent *record.Record) (*record.Record, error) {
	for s.idx < len(s.ids) {
		id := s.ids[s.idx]
		s.idx++
		n, ok := s.Ctx.Store.GetNode(id)
		if !ok {
			continue
		}
		var rec *record.Record
		if parent != nil {
			rec = parent.Clone()
		} else {
			rec = record.New(s.Ctx.Map)
		}
		rec.SetNode(s.Alias, n)
		return rec, nil
	}
	return nil, nil
}

func (s *AllNodeScan) Clone() Op {
	var child Op
	if s.nested() {
		child = s.child().Clone()
	}
	return NewAllNodeScan(s.Alias, child)
}

func (s *AllNodeScan) Free() { s.freeChildren() }

// LabelScan iterates one label's diagonal matrix via a tuple iterator
// (spec §4.2.1). When the label is unknown to the schema registry, Init
// swaps consume for a permanent no-op.
type LabelScan struct {
	Base
	Alias string
	Label graph.LabelID

	noop bool
	it   *matrix.TupleIterator
	m    *matrix.Matrix

	pending *record.Record
}

func NewLabelScan(alias string, label graph.LabelID, child Op) *LabelScan {
	b := Base{NameStr: "Label Scan", ModifiesList: []string{alias}}
	if child != nil {
		b.ChildOps = []Op{child}
	}
	return &LabelScan{Alias: alias, Label: label, Base: b}
}

func (s *LabelScan) nested() bool { return s.child() != nil }

func (s *LabelScan) Init(ctx *ExecContext) error {
	if err := s.initChildren(ctx); err != nil {
		return err
	}
	if s.Label == graph.UnknownID {
		s.noop = true
		return nil
	}
	if !s.nested() {
		s.m = ctx.Store.GetLabelMatrix(s.Label)
		s.it = matrix.NewTupleIterator(s.m)
	}
	return nil
}

func (s *LabelScan) Reset() error {
	if s.noop {
		return nil
	}
	if s.nested() {
		return s.resetChildren()
	}
	s.it.Reset()
	return nil
}

func (s *LabelScan) Consume() (*record.Record, error) {
	if s.noop {
		return nil, nil
	}
	if !s.nested() {
		return s.pull(nil, s.it)
	}
	for {
		if s.it != nil {
			if r, err := s.pull(s.pending, s.it); r != nil || err != nil {
				return r, err
			}
		}
		parentRec, err := s.child().Consume()
		if err != nil || parentRec == nil {
			return nil, err
		}
		s.pending = parentRec
		s.m = s.Ctx.Store.GetLabelMatrix(s.Label)
		s.it = matrix.NewTupleIterator(s.m)
	}
}

func (s *LabelScan) pull(parent *record.Record, it *matrix.TupleIterator) (*record.Record, error) {
	tup, ok := it.Next()
	if !ok {
		return nil, nil
	}
	n, ok := s.Ctx.Store.GetNode(graph.NodeID(tup.Row))
	if !ok {
		return s.pull(parent, it)
	}
	var rec *record.Record
	if parent != nil {
		rec = parent.Clone()
	} else {
		rec = record.New(s.Ctx.Map)
	}
	rec.SetNode(s.Alias, n)
	return rec, nil
}

func (s *LabelScan) Clone() Op {
	var child Op
	if s.nested() {
		child = s.child().Clone()
	}
	return NewLabelScan(s.Alias, s.Label, child)
}

func (s *LabelScan) Free() { s.freeChildren() }

// LabelIDRangeScan restricts a label scan to an inclusive id range folded
// in from a filter on the internal node id (spec §4.2.1, optimizer rule 5).
type LabelIDRangeScan struct {
	Base
	Alias        string
	Label        graph.LabelID
	MinID, MaxID graph.NodeID // inclusive; ignored when the matching Has*Max/Min flag is false
	HasMin       bool
	HasMax       bool

	inner *LabelScan
}

func NewLabelIDRangeScan(alias string, label graph.LabelID, minID graph.NodeID, hasMin bool, maxID graph.NodeID, hasMax bool) *LabelIDRangeScan {
	return &LabelIDRangeScan{
		Base:  Base{NameStr: "Label And ID Range Scan", ModifiesList: []string{alias}},
		Alias: alias, Label: label, MinID: minID, HasMin: hasMin, MaxID: maxID, HasMax: hasMax,
	}
}

func (s *LabelIDRangeScan) Init(ctx *ExecContext) error {
	s.Ctx = ctx
	s.inner = NewLabelScan(s.Alias, s.Label, nil)
	return s.inner.Init(ctx)
}

func (s *LabelIDRangeScan) Reset() error { return s.inner.Reset() }

func (s *LabelIDRangeScan) Consume() (*record.Record, error) {
	for {
		rec, err := s.inner.Consume()
		if err != nil || rec == nil {
			return rec, err
		}
		slot, _ := rec.Get(s.Alias)
		if slot.Node == nil {
			continue
		}
		id := slot.Node.ID
		if s.HasMin && id < s.MinID {
			continue
		}
		if s.HasMax && id > s.MaxID {
			continue
		}
		return rec, nil
	}
}

func (s *LabelIDRangeScan) Clone() Op {
	return NewLabelIDRangeScan(s.Alias, s.Label, s.MinID, s.HasMin, s.MaxID, s.HasMax)
}
func (s *LabelIDRangeScan) Free() { s.inner.Free() }

// NodeByIDSeek iterates a closed range of node ids, skipping deleted slots
// (spec §4.2.1).
type NodeByIDSeek struct {
	Base
	Alias    string
	Min, Max graph.NodeID

	cur graph.NodeID
}

func NewNodeByIDSeek(alias string, min, max graph.NodeID) *NodeByIDSeek {
	return &NodeByIDSeek{Base: Base{NameStr: "Node By Id Seek", ModifiesList: []string{alias}}, Alias: alias, Min: min, Max: max}
}

func (s *NodeByIDSeek) Init(ctx *ExecContext) error { s.Ctx = ctx; s.cur = s.Min; return nil }
func (s *NodeByIDSeek) Reset() error                { s.cur = s.Min; return nil }

func (s *NodeByIDSeek) Consume() (*record.Record, error) {
	for s.cur <= s.Max {
		id := s.cur
		s.cur++
		n, ok := s.Ctx.Store.GetNode(id)
		if !ok {
			continue
		}
		rec := record.New(s.Ctx.Map)
		rec.SetNode(s.Alias, n)
		return rec, nil
	}
	return nil, nil
}

func (s *NodeByIDSeek) Clone() Op { return NewNodeByIDSeek(s.Alias, s.Min, s.Max) }
func (s *NodeByIDSeek) Free()     {}

// IndexScan consults an external property index for an exact-match
// predicate (spec §4.2.1, optimizer rule 6).
type IndexScan struct {
	Base
	Alias    string
	Label    graph.LabelID
	Property string
	Value    any

	ids []graph.NodeID
	idx int
}

func NewIndexScan(alias string, label graph.LabelID, property string, value any) *IndexScan {
	return &IndexScan{
		Base:  Base{NameStr: "Index Scan", ModifiesList: []string{alias}},
		Alias: alias, Label: label, Property: property, Value: value,
	}
}

func (s *IndexScan) Init(ctx *ExecContext) error {
	s.Ctx = ctx
	reg := ctx.Store.Schema()
	attrID := reg.GetAttributeID(s.Property)
	if attrID == graph.AttributeID(graph.UnknownID) {
		return nil
	}
	idx := reg.GetIndex(s.Label, attrID)
	if idx == nil {
		return nil
	}
	s.ids = idx.Lookup(s.Value)
	return nil
}

func (s *IndexScan) Reset() error { s.idx = 0; return nil }

func (s *IndexScan) Consume() (*record.Record, error) {
	if s.idx >= len(s.ids) {
		return nil, nil
	}
	n, ok := s.Ctx.Store.GetNode(s.ids[s.idx])
	s.idx++
	if !ok {
		return s.Consume()
	}
	rec := record.New(s.Ctx.Map)
	rec.SetNode(s.Alias, n)
	return rec, nil
}

func (s *IndexScan) Clone() Op { return NewIndexScan(s.Alias, s.Label, s.Property, s.Value) }
func (s *IndexScan) Free()     {}

// EdgeIndexScan is IndexScan's edge analogue (spec §4.2.1), carrying a
// relation type, attribute name and value. Nothing fills its id list, so
// it emits no records.
type EdgeIndexScan struct {
	Base
	Alias    string
	Relation graph.RelationID
	Property string
	Value    any

	ids []graph.EdgeID
	idx int
}

func NewEdgeIndexScan(alias string, rel graph.RelationID, property string, value any) *EdgeIndexScan {
	return &EdgeIndexScan{
		Base:  Base{NameStr: "Edge Index Scan", ModifiesList: []string{alias}},
		Alias: alias, Relation: rel, Property: property, Value: value,
	}
}

func (s *EdgeIndexScan) Init(ctx *ExecContext) error {
	s.Ctx = ctx
	// No edge property index is consulted, so s.ids stays empty.
	return nil
}

func (s *EdgeIndexScan) Reset() error { s.idx = 0; return nil }

func (s *EdgeIndexScan) Consume() (*record.Record, error) {
	if s.idx >= len(s.ids) {
		return nil, nil
	}
	e, ok := s.Ctx.Store.GetEdge(s.ids[s.idx])
	s.idx++
	if !ok {
		return s.Consume()
	}
	rec := record.New(s.Ctx.Map)
	rec.SetEdge(s.Alias, e)
	return rec, nil
}

func (s *EdgeIndexScan) Clone() Op {
	return NewEdgeIndexScan(s.Alias, s.Relation, s.Property, s.Value)
}
func (s *EdgeIndexScan) Free() {}
