// Package nn builds small multi-layer perceptrons out of engine values. It
// only uses the public engine operations and reads Data and Grad of the
// parameters it owns.
package nn

import (
	"errors"

	"github.com/tsawler/go-scalargrad/engine"
)

// ErrShapeMismatch is returned when an input or weight matrix does not have
// the size a layer expects.
var ErrShapeMismatch = errors.New("shape mismatch")

// Module is anything that owns trainable parameters.
type Module interface {
	Parameters() []*engine.Value
}

// ZeroGrad resets the gradient of every parameter of m to 0. Call it before
// each backward pass, since backpropagation accumulates into Grad.
func ZeroGrad(m Module) {
	engine.ZeroGrad(m.Parameters()...)
}

// Inputs wraps plain numbers as leaf values.
func Inputs(xs []float64) []*engine.Value {
	out := make([]*engine.Value, len(xs))
	for i, x := range xs {
		out[i] = engine.New(x)
	}
	return out
}
