package nn

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/tsawler/go-scalargrad/engine"
)

// MLP is a stack of fully connected layers. Every layer applies ReLU except
// the last, which is linear.
type MLP struct {
	Layers []*Layer
}

// NewMLP creates a network with nin inputs and one layer per entry of nouts.
func NewMLP(nin int, nouts []int, rng *rand.Rand) *MLP {
	sizes := append([]int{nin}, nouts...)
	m := &MLP{Layers: make([]*Layer, len(nouts))}
	for i := range nouts {
		m.Layers[i] = NewLayer(sizes[i], sizes[i+1], i != len(nouts)-1, rng)
	}
	return m
}

// Forward feeds x through every layer and returns the outputs of the last.
func (m *MLP) Forward(x []*engine.Value) ([]*engine.Value, error) {
	var err error
	for i, l := range m.Layers {
		x, err = l.Forward(x)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return x, nil
}

// Predict wraps x as leaves and returns the single output of a network whose
// last layer has one neuron.
func (m *MLP) Predict(x []float64) (*engine.Value, error) {
	outs, err := m.Forward(Inputs(x))
	if err != nil {
		return nil, err
	}
	if len(outs) != 1 {
		return nil, fmt.Errorf("%w: network has %d outputs, want 1", ErrShapeMismatch, len(outs))
	}
	return outs[0], nil
}

// Parameters returns the parameters of every layer in order.
func (m *MLP) Parameters() []*engine.Value {
	var params []*engine.Value
	for _, l := range m.Layers {
		params = append(params, l.Parameters()...)
	}
	return params
}

func (m *MLP) String() string {
	parts := make([]string, len(m.Layers))
	for i, l := range m.Layers {
		parts[i] = l.String()
	}
	return "MLP of [" + strings.Join(parts, ", ") + "]"
}
