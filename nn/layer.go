package nn

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/tsawler/go-scalargrad/engine"
)

// Layer is a set of neurons that all read the same inputs.
type Layer struct {
	Neurons []*Neuron
}

// NewLayer creates nout neurons with nin inputs each.
func NewLayer(nin, nout int, nonlin bool, rng *rand.Rand) *Layer {
	l := &Layer{Neurons: make([]*Neuron, nout)}
	for i := range l.Neurons {
		l.Neurons[i] = NewNeuron(nin, nonlin, rng)
	}
	return l
}

// InputSize returns the number of inputs each neuron expects.
func (l *Layer) InputSize() int {
	if len(l.Neurons) == 0 {
		return 0
	}
	return len(l.Neurons[0].W)
}

// Forward returns one output per neuron.
func (l *Layer) Forward(x []*engine.Value) ([]*engine.Value, error) {
	outs := make([]*engine.Value, len(l.Neurons))
	for i, n := range l.Neurons {
		out, err := n.Forward(x)
		if err != nil {
			return nil, fmt.Errorf("neuron %d: %w", i, err)
		}
		outs[i] = out
	}
	return outs, nil
}

// Parameters returns the parameters of every neuron in order.
func (l *Layer) Parameters() []*engine.Value {
	var params []*engine.Value
	for _, n := range l.Neurons {
		params = append(params, n.Parameters()...)
	}
	return params
}

func (l *Layer) String() string {
	parts := make([]string, len(l.Neurons))
	for i, n := range l.Neurons {
		parts[i] = n.String()
	}
	return "Layer of [" + strings.Join(parts, ", ") + "]"
}
