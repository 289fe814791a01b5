package engine

import "errors"

var (
	// ErrInvalidOperand is returned when an operand is neither a *Value nor a number.
	ErrInvalidOperand = errors.New("invalid operand")

	// ErrUnsupportedExponent is returned when Pow receives a graph node as its exponent.
	ErrUnsupportedExponent = errors.New("unsupported exponent")
)

// Must returns v, or panics if err is non-nil. It is intended for expressions
// built from literals, where a coercion failure is a programming error.
func Must(v *Value, err error) *Value {
	if err != nil {
		panic(err)
	}
	return v
}
