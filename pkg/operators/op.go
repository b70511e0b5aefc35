// Package operators implements the physical execution operator framework
// and catalogue (spec §4.1, §4.2): a pull-based tree of ~30 interacting
// operator kinds sharing the init/consume/reset/clone/free contract.
package operators

import (
	"github.com/orneryd/cypherengine/pkg/graph"
	"github.com/orneryd/cypherengine/pkg/record"
)

// ExecContext is the shared, per-query state every operator's Init
// receives: the graph store to read/write, the bound query parameters,
// the segment's record map (so leaf operators can allocate fresh
// records), and tunables the plan builder/optimizer may have narrowed
// (traversal batch size, result-set cap).
type ExecContext struct {
	Store     graph.Store
	Params    map[string]any
	Map       *record.Map
	BatchSize int
	ResultCap int64
}

// Op is the operator contract every physical plan node implements (spec
// §4.1). Consume returns (nil, nil) at end-of-stream, never a sentinel
// record.
type Op interface {
	Init(ctx *ExecContext) error
	Consume() (*record.Record, error)
	Reset() error
	Clone() Op
	Free()

	Children() []Op
	Parent() Op
	SetParent(Op)
	Modifies() []string
	Name() string
	IsWriter() bool
}

// Base carries the state every operator shares: child list, parent
// back-pointer, modifies-set, name, and writer flag (spec §4.1). Concrete
// operators embed Base and implement Init/Consume/Reset/Clone/Free
// themselves, calling the init/reset/free helpers below to propagate to
// children.
type Base struct {
	NameStr      string
	ChildOps     []Op
	ParentOp     Op
	ModifiesList []string
	Writer       bool

	Ctx *ExecContext
}

func (b *Base) Children() []Op       { return b.ChildOps }
func (b *Base) Parent() Op           { return b.ParentOp }
func (b *Base) SetParent(p Op)       { b.ParentOp = p }
func (b *Base) Modifies() []string   { return b.ModifiesList }
func (b *Base) Name() string         { return b.NameStr }
func (b *Base) IsWriter() bool       { return b.Writer }

func (b *Base) initChildren(ctx *ExecContext) error {
	b.Ctx = ctx
	for _, c := range b.ChildOps {
		c.SetParent(nil) // parent pointers are not tracked; every child's stays nil
		if err := c.Init(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (b *Base) resetChildren() error {
	for _, c := range b.ChildOps {
		if err := c.Reset(); err != nil {
			return err
		}
	}
	return nil
}

func (b *Base) freeChildren() {
	for _, c := range b.ChildOps {
		c.Free()
	}
}

func (b *Base) child() Op {
	if len(b.ChildOps) == 0 {
		return nil
	}
	return b.ChildOps[0]
}

func (b *Base) cloneModifies() []string {
	return append([]string(nil), b.ModifiesList...)
}

// Argument is the tap at the bottom of an Apply family's right branch
// (spec §4.2.4): holds one record pushed from the left side until
// consumed exactly once, then reports end-of-stream until pushed again.
type Argument struct {
	Base
	pending *record.Record
}

// NewArgument returns an Argument exposing the given aliases (the left
// branch's modifies-set, so property/variable lookups inside the right
// branch resolve).
func NewArgument(modifies []string) *Argument {
	return &Argument{Base: Base{NameStr: "Argument", ModifiesList: modifies}}
}

func (a *Argument) Init(ctx *ExecContext) error { a.Ctx = ctx; return nil }

// Push installs the record the next Consume call will return.
func (a *Argument) Push(r *record.Record) { a.pending = r }

func (a *Argument) Consume() (*record.Record, error) {
	r := a.pending
	a.pending = nil
	return r, nil
}

func (a *Argument) Reset() error { a.pending = nil; return nil }
func (a *Argument) Clone() Op    { return NewArgument(a.cloneModifies()) }
func (a *Argument) Free()        {}

// ArgumentList is the FOREACH/UNWIND-sub-plan variant of Argument (spec
// §4.2.9): it replays a pre-bound slice of records, one per element of the
// enclosing list expression, instead of a single pushed record.
type ArgumentList struct {
	Base
	items []*record.Record
	idx   int
}

func NewArgumentList(modifies []string) *ArgumentList {
	return &ArgumentList{Base: Base{NameStr: "Argument List", ModifiesList: modifies}}
}

func (a *ArgumentList) Init(ctx *ExecContext) error { a.Ctx = ctx; return nil }

// Push installs the records to replay and rewinds to the first.
func (a *ArgumentList) Push(items []*record.Record) { a.items = items; a.idx = 0 }

func (a *ArgumentList) Consume() (*record.Record, error) {
	if a.idx >= len(a.items) {
		return nil, nil
	}
	r := a.items[a.idx]
	a.idx++
	return r, nil
}

func (a *ArgumentList) Reset() error { a.idx = 0; return nil }
func (a *ArgumentList) Clone() Op    { return NewArgumentList(a.cloneModifies()) }
func (a *ArgumentList) Free()        {}

// drain pulls every remaining record from an operator into a slice. Write
// operators use this to buffer their entire input before staging changes
// (spec §4.2.7: "all write operators buffer their incoming records").
func drain(op Op) ([]*record.Record, error) {
	var out []*record.Record
	for {
		r, err := op.Consume()
		if err != nil {
			return out, err
		}
		if r == nil {
			return out, nil
		}
		out = append(out, r)
	}
}
