package engine

import (
	"fmt"
	"math"
)

// Add returns v + other.
func (v *Value) Add(other *Value) *Value {
	return newResult(v.Data+other.Data, OpAdd, v, other)
}

// Mul returns v * other.
func (v *Value) Mul(other *Value) *Value {
	return newResult(v.Data*other.Data, OpMul, v, other)
}

// Pow returns v raised to the constant power k.
func (v *Value) Pow(k float64) *Value {
	out := newResult(math.Pow(v.Data, k), OpPow, v)
	out.exponent = k
	return out
}

// Neg returns -v, recorded as v * -1.
func (v *Value) Neg() *Value {
	return v.Mul(New(-1))
}

// Sub returns v - other, recorded as v + (-other).
func (v *Value) Sub(other *Value) *Value {
	return v.Add(other.Neg())
}

// Div returns v / other, recorded as v * other**-1. A zero divisor yields an
// infinite or NaN result rather than an error.
func (v *Value) Div(other *Value) *Value {
	return v.Mul(other.Pow(-1))
}

// ReLU returns max(0, v).
func (v *Value) ReLU() *Value {
	return newResult(math.Max(0, v.Data), OpReLU, v)
}

// Tanh returns the hyperbolic tangent of v.
func (v *Value) Tanh() *Value {
	return newResult(math.Tanh(v.Data), OpTanh, v)
}

// Exp returns e**v.
func (v *Value) Exp() *Value {
	return newResult(math.Exp(v.Data), OpExp, v)
}

// The functions below accept a *Value or a plain number in any operand
// position and fail before allocating anything if an operand cannot be
// coerced.

func binary(name string, a, b any, fn func(x, y *Value) *Value) (*Value, error) {
	x, err := Coerce(a)
	if err != nil {
		return nil, fmt.Errorf("%s: first operand: %w", name, err)
	}
	y, err := Coerce(b)
	if err != nil {
		return nil, fmt.Errorf("%s: second operand: %w", name, err)
	}
	return fn(x, y), nil
}

func unary(name string, a any, fn func(x *Value) *Value) (*Value, error) {
	x, err := Coerce(a)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return fn(x), nil
}

// Add returns a + b.
func Add(a, b any) (*Value, error) {
	return binary("add", a, b, (*Value).Add)
}

// Mul returns a * b.
func Mul(a, b any) (*Value, error) {
	return binary("mul", a, b, (*Value).Mul)
}

// Sub returns a - b.
func Sub(a, b any) (*Value, error) {
	return binary("sub", a, b, (*Value).Sub)
}

// Div returns a / b.
func Div(a, b any) (*Value, error) {
	return binary("div", a, b, (*Value).Div)
}

// Pow returns a ** k. The exponent must be a plain number; passing a *Value
// returns ErrUnsupportedExponent.
func Pow(a, k any) (*Value, error) {
	exp, err := constant(k)
	if err != nil {
		return nil, fmt.Errorf("pow: exponent: %w", err)
	}
	return unary("pow", a, func(x *Value) *Value { return x.Pow(exp) })
}

// Neg returns -a.
func Neg(a any) (*Value, error) {
	return unary("neg", a, (*Value).Neg)
}

// ReLU returns max(0, a).
func ReLU(a any) (*Value, error) {
	return unary("relu", a, (*Value).ReLU)
}

// Tanh returns tanh(a).
func Tanh(a any) (*Value, error) {
	return unary("tanh", a, (*Value).Tanh)
}

// Exp returns e**a.
func Exp(a any) (*Value, error) {
	return unary("exp", a, (*Value).Exp)
}

// Sum adds xs left to right. It returns a constant 0 leaf when xs is empty.
func Sum(xs ...any) (*Value, error) {
	if len(xs) == 0 {
		return New(0), nil
	}
	operands := make([]*Value, len(xs))
	for i, x := range xs {
		v, err := Coerce(x)
		if err != nil {
			return nil, fmt.Errorf("sum: operand %d: %w", i, err)
		}
		operands[i] = v
	}
	return SumValues(operands), nil
}

// SumValues adds vs left to right. It returns a constant 0 leaf when vs is
// empty.
func SumValues(vs []*Value) *Value {
	if len(vs) == 0 {
		return New(0)
	}
	acc := vs[0]
	for _, v := range vs[1:] {
		acc = acc.Add(v)
	}
	return acc
}
