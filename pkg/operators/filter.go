package operators

import (
	"github.com/orneryd/cypherengine/pkg/arithmetic"
	"github.com/orneryd/cypherengine/pkg/filtertree"
	"github.com/orneryd/cypherengine/pkg/record"
)

// Filter evaluates a filter tree against each record, dropping those that
// don't satisfy it (spec §4.2.5). The optimizer's filter-placement pass
// (rule 3) is responsible for deciding where in the tree a Filter sits;
// this operator itself is a pure pass-through/drop.
type Filter struct {
	Base
	Tree filtertree.Tree
}

func NewFilter(child Op, tree filtertree.Tree) *Filter {
	return &Filter{Base: Base{NameStr: "Filter", ChildOps: []Op{child}, ModifiesList: nil}, Tree: tree}
}

func (f *Filter) Init(ctx *ExecContext) error { return f.initChildren(ctx) }
func (f *Filter) Reset() error                { return f.resetChildren() }

func (f *Filter) Consume() (*record.Record, error) {
	for {
		rec, err := f.child().Consume()
		if err != nil || rec == nil {
			return rec, err
		}
		ok, err := f.Tree.Eval(&arithmetic.Context{Record: rec, Params: f.Ctx.Params})
		if err != nil {
			return nil, err
		}
		if ok {
			return rec, nil
		}
	}
}

func (f *Filter) Clone() Op { return NewFilter(f.child().Clone(), f.Tree.Clone()) }
func (f *Filter) Free()     { f.freeChildren() }
