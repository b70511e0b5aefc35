// Package algebra implements the algebraic-expression tree (spec §3.4):
// a representation of a traversal as matrix multiplies/adds over the
// graph's sparse label and relation matrices. Execution only needs the
// narrow surface listed in spec §3.4 — clone, evaluate, prepend/pop
// operand, diagonal check, transposed flag — which is what this package
// exposes; tree-shape optimization (operand reordering by cardinality) is
// the optimizer package's job, not this one's.
package algebra

import "github.com/orneryd/cypherengine/pkg/matrix"

// Node is one algebraic-expression tree node.
type Node interface {
	// Evaluate returns the matrix this subtree represents, computing it
	// from the graph's matrices (for operands) or combining children's
	// results (for Multiply/Add/Transpose).
	Evaluate() *matrix.Matrix
	clone() Node
}

// Operand is a leaf: a handle to a matrix (a label or relation-type
// matrix), optionally transposed.
type Operand struct {
	M          *matrix.Matrix
	Diagonal   bool // true for a label operand (identity-shaped selector)
	Transposed bool
}

func (o *Operand) Evaluate() *matrix.Matrix {
	if o.Transposed {
		return o.M.Transpose()
	}
	return o.M
}

func (o *Operand) clone() Node {
	return &Operand{M: o.M, Diagonal: o.Diagonal, Transposed: o.Transposed}
}

// Multiply is the product of its children, left to right: the
// traversal's reachability matrix.
type Multiply struct {
	Children []Node
}

func (m *Multiply) Evaluate() *matrix.Matrix {
	if len(m.Children) == 0 {
		return matrix.New()
	}
	acc := m.Children[0].Evaluate()
	for _, c := range m.Children[1:] {
		acc = matrix.Multiply(acc, c.Evaluate())
	}
	return acc
}

func (m *Multiply) clone() Node {
	out := &Multiply{Children: make([]Node, len(m.Children))}
	for i, c := range m.Children {
		out.Children[i] = c.clone()
	}
	return out
}

// Add is the boolean union (OR) of its children.
type Add struct {
	Children []Node
}

func (a *Add) Evaluate() *matrix.Matrix {
	if len(a.Children) == 0 {
		return matrix.New()
	}
	acc := a.Children[0].Evaluate()
	for _, c := range a.Children[1:] {
		acc = matrix.Add(acc, c.Evaluate())
	}
	return acc
}

func (a *Add) clone() Node {
	out := &Add{Children: make([]Node, len(a.Children))}
	for i, c := range a.Children {
		out.Children[i] = c.clone()
	}
	return out
}

// Transpose is semantic-only here; the actual swap is deferred to the
// matrix library via Child.Evaluate()'s Operand.Transposed flag where
// possible, or performed directly for composite subtrees.
type Transpose struct {
	Child Node
}

func (t *Transpose) Evaluate() *matrix.Matrix {
	return t.Child.Evaluate().Transpose()
}

func (t *Transpose) clone() Node {
	return &Transpose{Child: t.Child.clone()}
}

// Expression is an algebraic-expression tree together with the three
// aliases it binds (spec §3.4): the source (row) variable, destination
// (column) variable, and optional edge (relation) variable.
type Expression struct {
	Root        Node
	Source      string
	Destination string
	Edge        string // "" if the pattern does not bind an edge alias
}

// Clone deep-copies the expression for reuse in a new plan.
func (e *Expression) Clone() *Expression {
	return &Expression{Root: e.Root.clone(), Source: e.Source, Destination: e.Destination, Edge: e.Edge}
}

// Evaluate evaluates the tree, returning the traversal's reachability matrix.
func (e *Expression) Evaluate() *matrix.Matrix {
	return e.Root.Evaluate()
}

// PrependOperand inserts a new leftmost operand into the top-level
// Multiply node, used once to splice in the batch filter matrix F (spec
// §4.4 step 1). If the root isn't already a Multiply, it is wrapped in one.
func (e *Expression) PrependOperand(op *Operand) {
	mul, ok := e.Root.(*Multiply)
	if !ok {
		mul = &Multiply{Children: []Node{e.Root}}
		e.Root = mul
	}
	mul.Children = append([]Node{op}, mul.Children...)
}

// PopSourceOperand removes and returns the leftmost operand of a
// top-level Multiply (used by the plan builder: when the leftmost operand
// corresponds to a labeled node, it is promoted to a label scan and
// removed from the expression, spec §4.3).
func (e *Expression) PopSourceOperand() (*Operand, bool) {
	mul, ok := e.Root.(*Multiply)
	if !ok || len(mul.Children) == 0 {
		return nil, false
	}
	op, ok := mul.Children[0].(*Operand)
	if !ok {
		return nil, false
	}
	mul.Children = mul.Children[1:]
	return op, true
}

// IsTransposed reports whether the expression's root is itself a
// Transpose node (used by direction-sensitive edge enumeration).
func (e *Expression) IsTransposed() bool {
	_, ok := e.Root.(*Transpose)
	return ok
}

// DiagonalLeaf returns the expression's leftmost operand if it is a
// diagonal (label) operand, used by the plan builder to detect "first
// operand corresponds to a labeled node" (spec §4.3).
func (e *Expression) DiagonalLeaf() (*Operand, bool) {
	mul, ok := e.Root.(*Multiply)
	if !ok || len(mul.Children) == 0 {
		return nil, false
	}
	op, ok := mul.Children[0].(*Operand)
	if !ok || !op.Diagonal {
		return nil, false
	}
	return op, true
}
