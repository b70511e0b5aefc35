package operators

import (
	"github.com/orneryd/cypherengine/pkg/arithmetic"
	"github.com/orneryd/cypherengine/pkg/record"
)

// applyBase factors the shared two-child, Argument-push iteration loop
// every Apply-family operator uses (spec §4.2.4): for each left record,
// reset the right branch, push the record into its Argument tap, pull the
// right branch to exhaustion.
type applyBase struct {
	Base
	Left, Right Op
	Arg         *Argument

	leftRec  *record.Record
	started  bool
}

func newApplyBase(name string, left, right Op, arg *Argument, extraModifies []string) applyBase {
	modifies := append(append([]string(nil), left.Modifies()...), right.Modifies()...)
	modifies = append(modifies, extraModifies...)
	return applyBase{
		Base: Base{NameStr: name, ChildOps: []Op{left, right}, ModifiesList: modifies},
		Left: left, Right: right, Arg: arg,
	}
}

func (a *applyBase) Init(ctx *ExecContext) error { return a.initChildren(ctx) }

func (a *applyBase) Reset() error {
	a.started = false
	a.leftRec = nil
	return a.resetChildren()
}

// nextLeft pulls the next left record and rewinds the right branch against it.
func (a *applyBase) nextLeft() (bool, error) {
	rec, err := a.Left.Consume()
	if err != nil || rec == nil {
		return false, err
	}
	a.leftRec = rec
	if a.started {
		if err := a.Right.Reset(); err != nil {
			return false, err
		}
	}
	a.started = true
	a.Arg.Push(rec.Clone())
	return true, nil
}

// Apply is the cross-join flavor: emit each combined record (spec §4.2.4).
type Apply struct {
	applyBase
}

func NewApply(left, right Op, arg *Argument) *Apply {
	return &Apply{applyBase: newApplyBase("Apply", left, right, arg, nil)}
}

func (a *Apply) Consume() (*record.Record, error) {
	for {
		if a.leftRec != nil {
			rec, err := a.Right.Consume()
			if err != nil {
				return nil, err
			}
			if rec != nil {
				return combineRecords(a.leftRec, rec), nil
			}
		}
		ok, err := a.nextLeft()
		if err != nil || !ok {
			a.leftRec = nil
			return nil, err
		}
	}
}

func (a *Apply) Clone() Op { return NewApply(a.Left.Clone(), a.Right.Clone(), NewArgument(a.Arg.cloneModifies())) }
func (a *Apply) Free()     { a.freeChildren() }

// Optional behaves like Apply but, when the right branch yields zero
// records for a given left record, emits the left record once with
// unresolved right-side slots (spec §4.2.4).
type Optional struct {
	applyBase
	rightMatched bool
}

func NewOptional(left, right Op, arg *Argument) *Optional {
	return &Optional{applyBase: newApplyBase("Optional", left, right, arg, nil)}
}

func (o *Optional) Reset() error {
	o.rightMatched = false
	return o.applyBase.Reset()
}

func (o *Optional) Consume() (*record.Record, error) {
	for {
		if o.leftRec != nil {
			rec, err := o.Right.Consume()
			if err != nil {
				return nil, err
			}
			if rec != nil {
				o.rightMatched = true
				return combineRecords(o.leftRec, rec), nil
			}
			if !o.rightMatched {
				emit := o.leftRec.Clone()
				o.leftRec = nil
				return emit, nil
			}
		}
		ok, err := o.nextLeft()
		if err != nil || !ok {
			o.leftRec = nil
			return nil, err
		}
		o.rightMatched = false
	}
}

func (o *Optional) Clone() Op {
	return NewOptional(o.Left.Clone(), o.Right.Clone(), NewArgument(o.Arg.cloneModifies()))
}
func (o *Optional) Free() { o.freeChildren() }

// SemiApply emits the left record iff the right branch produces at least
// one record (spec §4.2.4); AntiSemiApply does the opposite.
type SemiApply struct {
	applyBase
	negate bool
}

func NewSemiApply(left, right Op, arg *Argument) *SemiApply {
	return &SemiApply{applyBase: newApplyBase("Semi Apply", left, right, arg, nil)}
}

func NewAntiSemiApply(left, right Op, arg *Argument) *SemiApply {
	s := &SemiApply{applyBase: newApplyBase("Anti Semi Apply", left, right, arg, nil), negate: true}
	return s
}

func (s *SemiApply) Consume() (*record.Record, error) {
	for {
		ok, err := s.nextLeft()
		if err != nil || !ok {
			return nil, err
		}
		rec, err := s.Right.Consume()
		if err != nil {
			return nil, err
		}
		matched := rec != nil
		if matched != s.negate {
			return s.leftRec.Clone(), nil
		}
	}
}

func (s *SemiApply) Clone() Op {
	c := &SemiApply{applyBase: newApplyBase(s.NameStr, s.Left.Clone(), s.Right.Clone(), NewArgument(s.Arg.cloneModifies()), nil), negate: s.negate}
	return c
}
func (s *SemiApply) Free() { s.freeChildren() }

// ApplyMultiplexer combines several Apply/SemiApply children under an AND
// or OR short-circuit (spec §4.2.4), used by the optimizer's apply-ops
// rewrite (rule 10) when several path-existence filters are ANDed/ORed.
type ApplyMultiplexer struct {
	Base
	And bool // false = OR
}

func NewApplyMultiplexer(and bool, children ...Op) *ApplyMultiplexer {
	var modifies []string
	if len(children) > 0 {
		modifies = children[0].Modifies()
	}
	return &ApplyMultiplexer{Base: Base{NameStr: "Apply Multiplexer", ChildOps: children, ModifiesList: modifies}, And: and}
}

func (m *ApplyMultiplexer) Init(ctx *ExecContext) error { return m.initChildren(ctx) }
func (m *ApplyMultiplexer) Reset() error                { return m.resetChildren() }

func (m *ApplyMultiplexer) Consume() (*record.Record, error) {
	var last *record.Record
	for _, c := range m.ChildOps {
		if err := c.Reset(); err != nil {
			return nil, err
		}
		rec, err := c.Consume()
		if err != nil {
			return nil, err
		}
		matched := rec != nil
		if rec != nil {
			last = rec
		}
		if matched && !m.And {
			return last, nil
		}
		if !matched && m.And {
			return nil, nil
		}
	}
	if m.And {
		return last, nil
	}
	return nil, nil
}

func (m *ApplyMultiplexer) Clone() Op {
	children := make([]Op, len(m.ChildOps))
	for i, c := range m.ChildOps {
		children[i] = c.Clone()
	}
	return NewApplyMultiplexer(m.And, children...)
}

func (m *ApplyMultiplexer) Free() { m.freeChildren() }

// RollupApply emits the left record plus one extra slot holding the array
// of a chosen expression collected from every right-branch record (spec
// §4.2.4) — how `collect`-style path comprehensions and `topath(...)`
// (optimizer rule 12) are materialized.
type RollupApply struct {
	applyBase
	CollectExpr arithmetic.Expression
	ResultAlias string
}

func NewRollupApply(left, right Op, arg *Argument, collectExpr arithmetic.Expression, resultAlias string) *RollupApply {
	return &RollupApply{
		applyBase:   newApplyBase("Rollup Apply", left, right, arg, []string{resultAlias}),
		CollectExpr: collectExpr, ResultAlias: resultAlias,
	}
}

func (r *RollupApply) Consume() (*record.Record, error) {
	ok, err := r.nextLeft()
	if err != nil || !ok {
		return nil, err
	}
	var collected []any
	for {
		rec, err := r.Right.Consume()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			break
		}
		v, err := r.CollectExpr.Eval(&arithmetic.Context{Record: rec})
		if err != nil {
			return nil, err
		}
		collected = append(collected, v)
	}
	out := r.leftRec.Clone()
	out.SetScalar(r.ResultAlias, collected)
	return out, nil
}

func (r *RollupApply) Clone() Op {
	return NewRollupApply(r.Left.Clone(), r.Right.Clone(), NewArgument(r.Arg.cloneModifies()), r.CollectExpr.Clone(), r.ResultAlias)
}
func (r *RollupApply) Free() { r.freeChildren() }

// combineRecords merges a right-branch record's slots onto a clone of the
// left record — both share the segment's record map, so slot indices line up.
func combineRecords(left, right *record.Record) *record.Record {
	out := left.Clone()
	m := right.Map()
	for i := 0; i < m.Len(); i++ {
		slot := right.GetByIndex(i)
		if slot.Type != record.Unresolved { // don't clobber left-only slots
			out.SetByIndex(i, slot)
		}
	}
	return out
}
