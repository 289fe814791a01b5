// Package engine implements a scalar reverse-mode automatic differentiation
// engine. Every arithmetic operation allocates a new Value that remembers its
// operands, so evaluating an expression builds a directed acyclic graph that
// Backward can later walk to compute exact gradients.
package engine

import (
	"fmt"
	"strconv"
)

// Op represents the operation that produced a Value
type Op int

const (
	OpNone Op = iota // Leaf or constant
	OpAdd
	OpMul
	OpPow
	OpReLU
	OpTanh
	OpExp
)

// String returns the short tag used when printing or drawing a graph.
func (op Op) String() string {
	switch op {
	case OpNone:
		return ""
	case OpAdd:
		return "+"
	case OpMul:
		return "*"
	case OpPow:
		return "**"
	case OpReLU:
		return "ReLU"
	case OpTanh:
		return "tanh"
	case OpExp:
		return "exp"
	default:
		return "Op(" + strconv.Itoa(int(op)) + ")"
	}
}

// Value is a node in the computation graph.
//
// Data is fixed at construction. Grad accumulates d(root)/d(this) during a
// backward pass and is only ever added to by the rules of the nodes that
// consume this one; callers reset it with ZeroGrad between iterations.
type Value struct {
	Data  float64
	Grad  float64
	Label string // Diagnostic name, no effect on the computation

	prev     []*Value // Operands, in the order the operation received them
	op       Op
	exponent float64 // Only meaningful for OpPow
}

// New creates a leaf Value holding data.
func New(data float64) *Value {
	return &Value{Data: data}
}

// NewLabeled creates a leaf Value with a diagnostic label.
func NewLabeled(data float64, label string) *Value {
	return &Value{Data: data, Label: label}
}

// newResult allocates the output node of an operation.
func newResult(data float64, op Op, operands ...*Value) *Value {
	return &Value{Data: data, op: op, prev: operands}
}

// Op returns the operation that produced v, or OpNone for a leaf.
func (v *Value) Op() Op {
	return v.op
}

// Exponent returns the constant exponent of an OpPow node.
func (v *Value) Exponent() float64 {
	return v.exponent
}

// IsLeaf reports whether v was created directly rather than by an operation.
func (v *Value) IsLeaf() bool {
	return len(v.prev) == 0
}

// Operands returns the direct inputs of the operation that produced v. The
// same node appears twice when an operation was applied to it twice, as in
// x.Mul(x).
func (v *Value) Operands() []*Value {
	out := make([]*Value, len(v.prev))
	copy(out, v.prev)
	return out
}

// String implements fmt.Stringer.
func (v *Value) String() string {
	return fmt.Sprintf("Value(data=%g, grad=%g)", v.Data, v.Grad)
}

// ZeroGrad resets the gradient of every given value to 0.
func ZeroGrad(vs ...*Value) {
	for _, v := range vs {
		v.Grad = 0
	}
}

// Coerce returns x as a Value. A *Value is returned unchanged and any Go
// integer or floating point number is wrapped as a new constant leaf.
func Coerce(x any) (*Value, error) {
	switch n := x.(type) {
	case *Value:
		if n == nil {
			return nil, fmt.Errorf("%w: nil *Value", ErrInvalidOperand)
		}
		return n, nil
	case float64:
		return New(n), nil
	case float32:
		return New(float64(n)), nil
	case int:
		return New(float64(n)), nil
	case int8:
		return New(float64(n)), nil
	case int16:
		return New(float64(n)), nil
	case int32:
		return New(float64(n)), nil
	case int64:
		return New(float64(n)), nil
	case uint:
		return New(float64(n)), nil
	case uint8:
		return New(float64(n)), nil
	case uint16:
		return New(float64(n)), nil
	case uint32:
		return New(float64(n)), nil
	case uint64:
		return New(float64(n)), nil
	default:
		return nil, fmt.Errorf("%w: cannot use %T as a number", ErrInvalidOperand, x)
	}
}

// constant extracts a plain number from x without allocating a node.
func constant(x any) (float64, error) {
	switch x.(type) {
	case *Value:
		return 0, fmt.Errorf("%w: exponent must be a constant, got a graph node", ErrUnsupportedExponent)
	}
	v, err := Coerce(x)
	if err != nil {
		return 0, err
	}
	return v.Data, nil
}
