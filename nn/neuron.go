package nn

import (
	"fmt"
	"math/rand"

	"github.com/tsawler/go-scalargrad/engine"
)

// Neuron computes w·x + b, followed by ReLU unless it is linear.
type Neuron struct {
	W      []*engine.Value
	B      *engine.Value
	NonLin bool
}

// NewNeuron creates a neuron with nin weights and a bias, all drawn
// uniformly from [-1, 1) using rng.
func NewNeuron(nin int, nonlin bool, rng *rand.Rand) *Neuron {
	n := &Neuron{
		W:      make([]*engine.Value, nin),
		B:      engine.New(uniform(rng)),
		NonLin: nonlin,
	}
	for i := range n.W {
		n.W[i] = engine.New(uniform(rng))
	}
	return n
}

func uniform(rng *rand.Rand) float64 {
	return rng.Float64()*2 - 1
}

// Forward evaluates the neuron on x.
func (n *Neuron) Forward(x []*engine.Value) (*engine.Value, error) {
	if len(x) != len(n.W) {
		return nil, fmt.Errorf("%w: neuron has %d weights, got %d inputs", ErrShapeMismatch, len(n.W), len(x))
	}
	act := n.B
	for i, w := range n.W {
		act = act.Add(w.Mul(x[i]))
	}
	if n.NonLin {
		return act.ReLU(), nil
	}
	return act, nil
}

// Parameters returns the weights followed by the bias.
func (n *Neuron) Parameters() []*engine.Value {
	params := make([]*engine.Value, 0, len(n.W)+1)
	params = append(params, n.W...)
	return append(params, n.B)
}

func (n *Neuron) String() string {
	kind := "Linear"
	if n.NonLin {
		kind = "ReLU"
	}
	return fmt.Sprintf("%sNeuron(%d)", kind, len(n.W))
}
