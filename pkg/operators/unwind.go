package operators

import (
	"github.com/orneryd/cypherengine/pkg/arithmetic"
	"github.com/orneryd/cypherengine/pkg/record"
)

// Unwind evaluates a list expression and emits one record per element
// (spec §4.2.9). With a child it iterates once per incoming record; as a
// standalone root it iterates once over a single list.
type Unwind struct {
	Base
	Expression arithmetic.Expression
	Alias      string

	parent *record.Record
	items  []any
	idx    int
	done   bool // standalone mode: true once the single list has been consumed
}

func NewUnwind(child Op, expr arithmetic.Expression, alias string) *Unwind {
	b := Base{NameStr: "Unwind", ModifiesList: []string{alias}}
	if child != nil {
		b.ChildOps = []Op{child}
	}
	return &Unwind{Base: b, Expression: expr, Alias: alias}
}

func (u *Unwind) standalone() bool { return u.child() == nil }

func (u *Unwind) Init(ctx *ExecContext) error {
	if err := u.initChildren(ctx); err != nil {
		return err
	}
	if u.standalone() {
		v, err := u.Expression.Eval(&arithmetic.Context{Params: ctx.Params})
		if err != nil {
			return err
		}
		u.items, _ = v.([]any)
	}
	return nil
}

func (u *Unwind) Reset() error {
	u.idx = 0
	u.done = false
	u.parent = nil
	if u.standalone() {
		return nil
	}
	return u.resetChildren()
}

func (u *Unwind) Consume() (*record.Record, error) {
	for {
		if u.idx < len(u.items) {
			item := u.items[u.idx]
			u.idx++
			var rec *record.Record
			if u.parent != nil {
				rec = u.parent.Clone()
			} else {
				rec = record.New(u.Ctx.Map)
			}
			rec.SetScalar(u.Alias, item)
			return rec, nil
		}
		if u.standalone() {
			return nil, nil
		}
		parentRec, err := u.child().Consume()
		if err != nil || parentRec == nil {
			return nil, err
		}
		v, err := u.Expression.Eval(&arithmetic.Context{Record: parentRec, Params: u.Ctx.Params})
		if err != nil {
			return nil, err
		}
		u.parent = parentRec
		u.items, _ = v.([]any)
		u.idx = 0
	}
}

func (u *Unwind) Clone() Op {
	var child Op
	if !u.standalone() {
		child = u.child().Clone()
	}
	return NewUnwind(child, u.Expression.Clone(), u.Alias)
}

func (u *Unwind) Free() { u.freeChildren() }
