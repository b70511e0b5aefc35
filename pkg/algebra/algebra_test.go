package algebra

import (
	"testing"

	"github.com/orneryd/cypherengine/pkg/matrix"
)

func TestMultiplyEvaluatesTransitively(t *testing.T) {
	a := matrix.New()
	a.Set(0, 1)
	b := matrix.New()
	b.Set(1, 2)

	expr := &Expression{Root: &Multiply{Children: []Node{
		&Operand{M: a}, &Operand{M: b},
	}}, Source: "x", Destination: "y"}

	out := expr.Evaluate()
	row := out.Row(0)
	if row == nil || !row.Contains(2) {
		t.Fatalf("expected 0->2 reachability, got %v", row)
	}
}

func TestPrependOperandWrapsNonMultiplyRoot(t *testing.T) {
	m := matrix.New()
	m.Set(0, 1)
	expr := &Expression{Root: &Operand{M: m}}

	f := matrix.New()
	f.Set(5, 0)
	expr.PrependOperand(&Operand{M: f})

	mul, ok := expr.Root.(*Multiply)
	if !ok || len(mul.Children) != 2 {
		t.Fatalf("expected root wrapped in a 2-child Multiply, got %#v", expr.Root)
	}
}

func TestPopSourceOperand(t *testing.T) {
	m1 := matrix.New()
	m2 := matrix.New()
	expr := &Expression{Root: &Multiply{Children: []Node{&Operand{M: m1, Diagonal: true}, &Operand{M: m2}}}}

	op, ok := expr.PopSourceOperand()
	if !ok || op.M != m1 {
		t.Fatalf("expected to pop first operand")
	}
	mul := expr.Root.(*Multiply)
	if len(mul.Children) != 1 {
		t.Fatalf("expected one remaining child, got %d", len(mul.Children))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := matrix.New()
	expr := &Expression{Root: &Multiply{Children: []Node{&Operand{M: m, Diagonal: true}}}}
	cp := expr.Clone()

	mul := cp.Root.(*Multiply)
	mul.Children = append(mul.Children, &Operand{M: matrix.New()})

	orig := expr.Root.(*Multiply)
	if len(orig.Children) != 1 {
		t.Fatalf("expected clone mutation not to affect original")
	}
}

func TestDiagonalLeafDetection(t *testing.T) {
	m := matrix.New()
	expr := &Expression{Root: &Multiply{Children: []Node{&Operand{M: m, Diagonal: true}}}}
	op, ok := expr.DiagonalLeaf()
	if !ok || op.M != m {
		t.Fatalf("expected diagonal leaf detected")
	}
}
