package operators

import (
	"fmt"

	"github.com/orneryd/cypherengine/pkg/arithmetic"
	"github.com/orneryd/cypherengine/pkg/procedures"
	"github.com/orneryd/cypherengine/pkg/record"
)

// ProcedureCall invokes a registered procedure once per incoming record
// (standalone CALL re-invokes once with no input row), draining its Cursor
// to exhaustion before moving to the next input (spec §4.2.8).
type ProcedureCall struct {
	Base
	Registry *procedures.Registry
	Name     string
	Args     []arithmetic.Expression
	Yield    []string

	leftRec *record.Record
	cursor  procedures.Cursor
	started bool
}

func NewProcedureCall(child Op, reg *procedures.Registry, name string, args []arithmetic.Expression, yield []string) *ProcedureCall {
	b := Base{NameStr: "ProcedureCall", ModifiesList: append([]string(nil), yield...)}
	if child != nil {
		b.ChildOps = []Op{child}
	}
	return &ProcedureCall{Base: b, Registry: reg, Name: name, Args: args, Yield: yield}
}

func (c *ProcedureCall) Init(ctx *ExecContext) error { return c.initChildren(ctx) }

func (c *ProcedureCall) Reset() error {
	c.leftRec = nil
	c.cursor = nil
	c.started = false
	if c.child() == nil {
		return nil
	}
	return c.resetChildren()
}

func (c *ProcedureCall) Consume() (*record.Record, error) {
	for {
		if c.cursor != nil {
			row, more, err := c.cursor.Step()
			if err != nil {
				return nil, err
			}
			if more {
				return c.bind(row), nil
			}
			c.cursor.Free()
			c.cursor = nil
		}
		if c.child() == nil {
			if c.started {
				return nil, nil
			}
			c.started = true
			if err := c.invoke(nil); err != nil {
				return nil, err
			}
			continue
		}
		rec, err := c.child().Consume()
		if err != nil || rec == nil {
			return nil, err
		}
		c.leftRec = rec
		if err := c.invoke(rec); err != nil {
			return nil, err
		}
	}
}

func (c *ProcedureCall) invoke(rec *record.Record) error {
	proc, ok := c.Registry.Get(c.Name)
	if !ok {
		return fmt.Errorf("operators: unknown procedure %q", c.Name)
	}
	if proc.Arity >= 0 && len(c.Args) != proc.Arity {
		return fmt.Errorf("operators: procedure %q expects %d argument(s), got %d", c.Name, proc.Arity, len(c.Args))
	}
	actx := &arithmetic.Context{Record: rec, Params: c.Ctx.Params}
	args := make([]any, len(c.Args))
	for i, e := range c.Args {
		v, err := e.Eval(actx)
		if err != nil {
			return err
		}
		args[i] = v
	}
	cur, err := c.Registry.Invoke(c.Name, args, c.Yield)
	if err != nil {
		return err
	}
	c.cursor = cur
	return nil
}

// bind projects one yielded row onto the yield aliases, cloning the left
// record (child-driven mode) so earlier bindings survive.
func (c *ProcedureCall) bind(row []any) *record.Record {
	var rec *record.Record
	if c.leftRec != nil {
		rec = c.leftRec.Clone()
	} else {
		rec = record.New(c.Ctx.Map)
	}
	for i, alias := range c.Yield {
		if i < len(row) {
			rec.SetScalar(alias, row[i])
		}
	}
	return rec
}

func (c *ProcedureCall) Clone() Op {
	var child Op
	if c.child() != nil {
		child = c.child().Clone()
	}
	args := make([]arithmetic.Expression, len(c.Args))
	for i, e := range c.Args {
		args[i] = e.Clone()
	}
	return NewProcedureCall(child, c.Registry, c.Name, args, append([]string(nil), c.Yield...))
}

func (c *ProcedureCall) Free() {
	if c.cursor != nil {
		c.cursor.Free()
		c.cursor = nil
	}
	c.freeChildren()
}
