package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Weights returns the layer's weights as an nout×nin matrix, one row per
// neuron.
func (l *Layer) Weights() *mat.Dense {
	rows, cols := len(l.Neurons), l.InputSize()
	if rows == 0 || cols == 0 {
		return &mat.Dense{}
	}
	w := mat.NewDense(rows, cols, nil)
	for i, n := range l.Neurons {
		for j, wj := range n.W {
			w.Set(i, j, wj.Data)
		}
	}
	return w
}

// Biases returns the bias of every neuron.
func (l *Layer) Biases() []float64 {
	b := make([]float64, len(l.Neurons))
	for i, n := range l.Neurons {
		b[i] = n.B.Data
	}
	return b
}

// WeightGrads returns the current gradient of every weight in the same
// layout as Weights.
func (l *Layer) WeightGrads() *mat.Dense {
	rows, cols := len(l.Neurons), l.InputSize()
	if rows == 0 || cols == 0 {
		return &mat.Dense{}
	}
	g := mat.NewDense(rows, cols, nil)
	for i, n := range l.Neurons {
		for j, wj := range n.W {
			g.Set(i, j, wj.Grad)
		}
	}
	return g
}

// SetWeights overwrites the layer's parameters. w must be nout×nin and b must
// have nout entries. Gradients are left untouched.
func (l *Layer) SetWeights(w mat.Matrix, b []float64) error {
	rows, cols := w.Dims()
	if rows != len(l.Neurons) || cols != l.InputSize() {
		return fmt.Errorf("%w: layer is %dx%d, got %dx%d weights", ErrShapeMismatch, len(l.Neurons), l.InputSize(), rows, cols)
	}
	if len(b) != len(l.Neurons) {
		return fmt.Errorf("%w: layer has %d neurons, got %d biases", ErrShapeMismatch, len(l.Neurons), len(b))
	}
	for i, n := range l.Neurons {
		for j, wj := range n.W {
			wj.Data = w.At(i, j)
		}
		n.B.Data = b[i]
	}
	return nil
}

// Snapshot holds a copy of every layer's parameters.
type Snapshot struct {
	Weights []*mat.Dense
	Biases  [][]float64
}

// Snapshot copies the current parameters of m.
func (m *MLP) Snapshot() Snapshot {
	s := Snapshot{
		Weights: make([]*mat.Dense, len(m.Layers)),
		Biases:  make([][]float64, len(m.Layers)),
	}
	for i, l := range m.Layers {
		s.Weights[i] = l.Weights()
		s.Biases[i] = l.Biases()
	}
	return s
}

// Restore loads parameters previously taken with Snapshot.
func (m *MLP) Restore(s Snapshot) error {
	if len(s.Weights) != len(m.Layers) || len(s.Biases) != len(m.Layers) {
		return fmt.Errorf("%w: network has %d layers, snapshot has %d", ErrShapeMismatch, len(m.Layers), len(s.Weights))
	}
	for i, l := range m.Layers {
		if err := l.SetWeights(s.Weights[i], s.Biases[i]); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return nil
}
