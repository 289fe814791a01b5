package train

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrEmptyDataset is returned when a dataset or batch would hold no samples.
var ErrEmptyDataset = errors.New("dataset cannot be empty")

// Dataset holds every sample in memory. Each row of X is one input and Y
// holds the matching target.
type Dataset struct {
	X [][]float64
	Y []float64
}

// NewDataset checks that x and y line up and that every row has the same
// width.
func NewDataset(x [][]float64, y []float64) (*Dataset, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("inputs and targets must have the same length: %d != %d", len(x), len(y))
	}
	if len(x) == 0 {
		return nil, ErrEmptyDataset
	}
	for i, row := range x {
		if len(row) != len(x[0]) {
			return nil, fmt.Errorf("sample %d has %d features, want %d", i, len(row), len(x[0]))
		}
	}
	return &Dataset{X: x, Y: y}, nil
}

// Len returns the number of samples.
func (ds *Dataset) Len() int {
	return len(ds.X)
}

// Features returns the width of a sample.
func (ds *Dataset) Features() int {
	if len(ds.X) == 0 {
		return 0
	}
	return len(ds.X[0])
}

// GetItem returns a single sample.
func (ds *Dataset) GetItem(index int) ([]float64, float64, error) {
	if index < 0 || index >= len(ds.X) {
		return nil, 0, fmt.Errorf("index out of bounds: %d", index)
	}
	return ds.X[index], ds.Y[index], nil
}

// Batch returns size samples drawn without replacement using rng. A size of
// zero or at least Len returns the whole dataset in order.
func (ds *Dataset) Batch(size int, rng *rand.Rand) *Dataset {
	if size <= 0 || size >= ds.Len() {
		return ds
	}
	perm := rng.Perm(ds.Len())[:size]
	batch := &Dataset{X: make([][]float64, size), Y: make([]float64, size)}
	for i, idx := range perm {
		batch.X[i] = ds.X[idx]
		batch.Y[i] = ds.Y[idx]
	}
	return batch
}

// Moons generates two interleaving half circles of n samples in total. The
// upper moon is labelled -1 and the lower one 1. Gaussian noise with standard
// deviation noise is added to every coordinate.
func Moons(n int, noise float64, rng *rand.Rand) *Dataset {
	nOuter := n / 2
	nInner := n - nOuter
	ds := &Dataset{X: make([][]float64, 0, n), Y: make([]float64, 0, n)}

	add := func(x, y, label float64) {
		if noise > 0 {
			x += rng.NormFloat64() * noise
			y += rng.NormFloat64() * noise
		}
		ds.X = append(ds.X, []float64{x, y})
		ds.Y = append(ds.Y, label)
	}

	for i := range nOuter {
		t := math.Pi * spacing(i, nOuter)
		add(math.Cos(t), math.Sin(t), -1)
	}
	for i := range nInner {
		t := math.Pi * spacing(i, nInner)
		add(1-math.Cos(t), 0.5-math.Sin(t), 1)
	}

	rng.Shuffle(len(ds.X), func(i, j int) {
		ds.X[i], ds.X[j] = ds.X[j], ds.X[i]
		ds.Y[i], ds.Y[j] = ds.Y[j], ds.Y[i]
	})
	return ds
}

// spacing returns the i-th of n evenly spaced points in [0, 1].
func spacing(i, n int) float64 {
	if n < 2 {
		return 0
	}
	return float64(i) / float64(n-1)
}
