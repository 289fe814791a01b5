// Package gradcheck compares gradients computed by backpropagation with
// central finite-difference estimates of the same partial derivatives.
package gradcheck

import (
	"errors"
	"fmt"
	"math"

	"github.com/tsawler/go-scalargrad/engine"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// ErrNoInputs is returned when Check is called without an input point.
var ErrNoInputs = errors.New("gradcheck: no inputs")

// Func builds a scalar expression from its input leaves. It must build a new
// graph on every call.
type Func func(xs []*engine.Value) *engine.Value

// Settings controls the finite-difference step and the comparison tolerance.
type Settings struct {
	Step   float64
	AbsTol float64
	RelTol float64
}

// DefaultSettings returns a step of 1e-6 and tolerances of 1e-4.
func DefaultSettings() Settings {
	return Settings{Step: 1e-6, AbsTol: 1e-4, RelTol: 1e-4}
}

// Result holds both gradients and where they disagree.
type Result struct {
	Value       float64
	Analytic    []float64
	Numeric     []float64
	MaxAbsError float64
	ErrorNorm   float64 // L2 norm of Analytic - Numeric
	Mismatches  []int   // Indices outside tolerance
}

// OK reports whether every partial derivative agreed within tolerance.
func (r Result) OK() bool {
	return len(r.Mismatches) == 0
}

// Check evaluates f at x, backpropagates, and compares the gradient of every
// input against a central finite difference. A nil settings uses
// DefaultSettings.
func Check(f Func, x []float64, settings *Settings) (Result, error) {
	if len(x) == 0 {
		return Result{}, ErrNoInputs
	}
	s := DefaultSettings()
	if settings != nil {
		s = *settings
	}

	leaves := make([]*engine.Value, len(x))
	for i, xi := range x {
		leaves[i] = engine.New(xi)
	}
	out := f(leaves)
	if out == nil {
		return Result{}, errors.New("gradcheck: function returned a nil value")
	}
	out.Backward()

	res := Result{
		Value:    out.Data,
		Analytic: make([]float64, len(x)),
	}
	for i, leaf := range leaves {
		res.Analytic[i] = leaf.Grad
	}

	eval := func(p []float64) float64 {
		vs := make([]*engine.Value, len(p))
		for i, pi := range p {
			vs[i] = engine.New(pi)
		}
		return f(vs).Data
	}
	res.Numeric = fd.Gradient(nil, eval, x, &fd.Settings{
		Formula: fd.Central,
		Step:    s.Step,
	})

	diff := make([]float64, len(x))
	floats.SubTo(diff, res.Analytic, res.Numeric)
	res.MaxAbsError = floats.Norm(diff, math.Inf(1))
	res.ErrorNorm = floats.Norm(diff, 2)

	for i := range x {
		if !scalar.EqualWithinAbsOrRel(res.Analytic[i], res.Numeric[i], s.AbsTol, s.RelTol) {
			res.Mismatches = append(res.Mismatches, i)
		}
	}

	return res, nil
}

// Verify is Check reduced to an error describing the first mismatch.
func Verify(f Func, x []float64, settings *Settings) error {
	res, err := Check(f, x, settings)
	if err != nil {
		return err
	}
	if !res.OK() {
		i := res.Mismatches[0]
		return fmt.Errorf("gradcheck: input %d: analytic %g, numeric %g (%d of %d inputs disagree)",
			i, res.Analytic[i], res.Numeric[i], len(res.Mismatches), len(x))
	}
	return nil
}
