// Package filtertree implements the boolean expression tree (spec §3.5)
// evaluated by Filter operators, with the sub-tree decomposition and
// alias-collection helpers the optimizer's filter-placement pass (§4.5
// rule 3) uses to push each filter down to the shallowest operator that
// can resolve it.
package filtertree

import (
	"fmt"

	"github.com/orneryd/cypherengine/pkg/arithmetic"
)

// Tree is a node in the filter tree.
type Tree interface {
	Eval(ctx *arithmetic.Context) (bool, error)
	// CollectModified returns the set of aliases referenced by any leaf
	// in this (sub)tree (spec §3.5 invariant), deduplicated.
	CollectModified() []string
	Clone() Tree
}

// CompareOp is a predicate's comparison/membership operator.
type CompareOp string

const (
	Eq         CompareOp = "="
	Neq        CompareOp = "<>"
	Lt         CompareOp = "<"
	Lte        CompareOp = "<="
	Gt         CompareOp = ">"
	Gte        CompareOp = ">="
	In         CompareOp = "IN"
	StartsWith CompareOp = "STARTS WITH"
	EndsWith   CompareOp = "ENDS WITH"
	Contains   CompareOp = "CONTAINS"
)

// Predicate compares two arithmetic expressions.
type Predicate struct {
	Op          CompareOp
	Left, Right arithmetic.Expression
}

func (p *Predicate) CollectModified() []string {
	return dedupe(append(p.Left.Aliases(), p.Right.Aliases()...))
}

func (p *Predicate) Clone() Tree {
	return &Predicate{Op: p.Op, Left: p.Left.Clone(), Right: p.Right.Clone()}
}

func (p *Predicate) Eval(ctx *arithmetic.Context) (bool, error) {
	l, err := p.Left.Eval(ctx)
	if err != nil {
		return false, err
	}
	r, err := p.Right.Eval(ctx)
	if err != nil {
		return false, err
	}
	if l == nil || r == nil {
		return false, nil // Cypher's null-propagation: comparisons against null are false
	}
	return evalCompare(p.Op, l, r)
}

// LogicalOp is a Condition's boolean combinator.
type LogicalOp string

const (
	And LogicalOp = "AND"
	Or  LogicalOp = "OR"
	Not LogicalOp = "NOT"
	Xor LogicalOp = "XOR"
)

// Condition combines child filter trees with a boolean operator.
type Condition struct {
	Op       LogicalOp
	Children []Tree
}

func (c *Condition) CollectModified() []string {
	var out []string
	for _, ch := range c.Children {
		out = append(out, ch.CollectModified()...)
	}
	return dedupe(out)
}

func (c *Condition) Clone() Tree {
	children := make([]Tree, len(c.Children))
	for i, ch := range c.Children {
		children[i] = ch.Clone()
	}
	return &Condition{Op: c.Op, Children: children}
}

func (c *Condition) Eval(ctx *arithmetic.Context) (bool, error) {
	switch c.Op {
	case Not:
		v, err := c.Children[0].Eval(ctx)
		return !v, err
	case And:
		for _, ch := range c.Children {
			v, err := ch.Eval(ctx)
			if err != nil {
				return false, err
			}
			if !v {
				return false, nil
			}
		}
		return true, nil
	case Or:
		for _, ch := range c.Children {
			v, err := ch.Eval(ctx)
			if err != nil {
				return false, err
			}
			if v {
				return true, nil
			}
		}
		return false, nil
	case Xor:
		trueCount := 0
		for _, ch := range c.Children {
			v, err := ch.Eval(ctx)
			if err != nil {
				return false, err
			}
			if v {
				trueCount++
			}
		}
		return trueCount%2 == 1, nil
	default:
		return false, fmt.Errorf("filtertree: unknown logical operator %q", c.Op)
	}
}

// Expr wraps a raw arithmetic expression expected to yield a boolean
// (e.g. a boolean-returning function call or a bare boolean variable).
type Expr struct {
	Expression arithmetic.Expression
}

func (e *Expr) CollectModified() []string { return dedupe(e.Expression.Aliases()) }
func (e *Expr) Clone() Tree               { return &Expr{Expression: e.Expression.Clone()} }
func (e *Expr) Eval(ctx *arithmetic.Context) (bool, error) {
	v, err := e.Expression.Eval(ctx)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		if v == nil {
			return false, nil
		}
		return false, fmt.Errorf("filtertree: expression did not evaluate to a boolean (got %T)", v)
	}
	return b, nil
}

// SubTrees decomposes a filter tree into the largest AND-conjuncts that
// can be evaluated independently (spec §3.5). Per the Open Question
// decision recorded in DESIGN.md, only a top-level (and nested, but
// always AND-only) chain of Condition{Op: And} nodes is split; an OR/NOT/
// XOR subtree is never decomposed further and is returned as one unit.
func SubTrees(t Tree) []Tree {
	if c, ok := t.(*Condition); ok && c.Op == And {
		var out []Tree
		for _, ch := range c.Children {
			out = append(out, SubTrees(ch)...)
		}
		return out
	}
	return []Tree{t}
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
