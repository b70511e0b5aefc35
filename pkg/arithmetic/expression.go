// Package arithmetic implements the scalar expression tree (spec §3.6):
// values, variable/property lookups, parameter lookups, and calls to
// registered scalar or aggregate functions, evaluated against a record.
//
// Function names are grounded on the teacher's pkg/cypher/functions.go
// vocabulary (coalesce, count, sum, avg, min, max, collect, length, …),
// reimplemented here as a registry instead of a giant string-eval switch.
package arithmetic

import (
	"fmt"

	"github.com/orneryd/cypherengine/pkg/graph"
	"github.com/orneryd/cypherengine/pkg/record"
)

// Context is what an Expression evaluates against: the current record,
// query parameters, and (for aggregates) the accumulator group the Op
// node should use.
type Context struct {
	Record *record.Record
	Params map[string]any
	Group  *Group // nil outside aggregate evaluation
}

// Expression is a node in the scalar expression tree.
type Expression interface {
	Eval(ctx *Context) (any, error)
	// Aliases returns every variable alias this (sub)tree references,
	// used by filtertree.CollectModified and by the planner to resolve
	// projection dependencies.
	Aliases() []string
	Clone() Expression
}

// Constant is a literal value.
type Constant struct{ Value any }

func (c *Constant) Eval(*Context) (any, error) { return c.Value, nil }
func (c *Constant) Aliases() []string          { return nil }
func (c *Constant) Clone() Expression          { return &Constant{Value: c.Value} }

// Variable looks up an alias's bound slot, optionally projecting one
// property out of a node/edge slot. An empty Property means "the whole
// entity" (used by e.g. `RETURN n`).
type Variable struct {
	Alias    string
	Property string
}

func (v *Variable) Aliases() []string { return []string{v.Alias} }
func (v *Variable) Clone() Expression { return &Variable{Alias: v.Alias, Property: v.Property} }

func (v *Variable) Eval(ctx *Context) (any, error) {
	slot, ok := ctx.Record.Get(v.Alias)
	if !ok {
		return nil, fmt.Errorf("arithmetic: unresolved alias %q", v.Alias)
	}
	if v.Property == "" {
		switch slot.Type {
		case record.SlotNode:
			return slot.Node, nil
		case record.SlotEdge:
			return slot.Edge, nil
		case record.SlotPath:
			return slot.Path, nil
		case record.SlotScalar:
			return slot.Scalar, nil
		default:
			return nil, nil
		}
	}
	switch slot.Type {
	case record.SlotNode:
		if slot.Node == nil {
			return nil, nil
		}
		return propertyByName(slot.Node.Properties, v.Property), nil
	case record.SlotEdge:
		if slot.Edge == nil {
			return nil, nil
		}
		return propertyByName(slot.Edge.Properties, v.Property), nil
	default:
		return nil, nil
	}
}

// propertyByName looks up a property by its string name in a
// graph.AttributeID-keyed map, resolving the name through the
// propertyNameIndex side table below. A name that was never registered
// there, or an id the map does not hold, yields nil.
func propertyByName(props map[graph.AttributeID]any, name string) any {
	if id, ok := propertyNameIndex[name]; ok {
		if v, ok := props[id]; ok {
			return v
		}
	}
	return nil
}

// propertyNameIndex lets Variable.Eval resolve a human-readable property
// name to the interned attribute id the store actually keys properties
// by. The planner populates this once per query from the schema registry
// (see planner.BindPropertyNames) so expression trees built from AST
// clause text never need to carry a *schema.Registry themselves.
var propertyNameIndex = map[string]graph.AttributeID{}

// RegisterPropertyName lets the planner wire a name->id mapping sourced
// from the graph's schema registry before evaluation begins.
func RegisterPropertyName(name string, id graph.AttributeID) {
	propertyNameIndex[name] = id
}

// Parameter looks up a query parameter by name ($name in Cypher text).
type Parameter struct{ Name string }

func (p *Parameter) Aliases() []string { return nil }
func (p *Parameter) Clone() Expression { return &Parameter{Name: p.Name} }
func (p *Parameter) Eval(ctx *Context) (any, error) {
	v, ok := ctx.Params[p.Name]
	if !ok {
		return nil, fmt.Errorf("arithmetic: unbound parameter $%s", p.Name)
	}
	return v, nil
}

// Op is a call to a registered function (scalar or aggregate).
type Op struct {
	Name string
	Args []Expression
	// Distinct applies to aggregate calls like count(DISTINCT x).
	Distinct bool
}

func (o *Op) Aliases() []string {
	var out []string
	for _, a := range o.Args {
		out = append(out, a.Aliases()...)
	}
	return out
}

func (o *Op) Clone() Expression {
	args := make([]Expression, len(o.Args))
	for i, a := range o.Args {
		args[i] = a.Clone()
	}
	return &Op{Name: o.Name, Args: args, Distinct: o.Distinct}
}

// EvalArgs evaluates this op's argument expressions against ctx without
// resolving the aggregate itself — used by the Aggregate operator during
// its accumulation pass, one call per incoming record, to get the values
// fed to Group.Step.
func (o *Op) EvalArgs(ctx *Context) ([]any, error) {
	args := make([]any, len(o.Args))
	for i, a := range o.Args {
		v, err := a.Eval(ctx)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// IsAggregate reports whether this Op names a registered aggregate function.
func (o *Op) IsAggregate() bool {
	_, ok := LookupAggregate(o.Name)
	return ok
}

func (o *Op) Eval(ctx *Context) (any, error) {
	if _, ok := LookupAggregate(o.Name); ok {
		if ctx.Group == nil {
			return nil, fmt.Errorf("arithmetic: aggregate %s() called outside a grouping context", o.Name)
		}
		v, ok := ctx.Group.Result(o)
		if !ok {
			return nil, fmt.Errorf("arithmetic: aggregate %s() has no accumulated state for this group", o.Name)
		}
		return v, nil
	}
	fn, ok := LookupScalar(o.Name)
	if !ok {
		return nil, fmt.Errorf("arithmetic: unknown function %q", o.Name)
	}
	args := make([]any, len(o.Args))
	for i, a := range o.Args {
		v, err := a.Eval(ctx)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return fn(args)
}
