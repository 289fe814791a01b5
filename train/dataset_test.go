package train_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsawler/go-scalargrad/train"
)

func TestMoonsWithoutNoiseLieOnCircles(t *testing.T) {
	ds := train.Moons(51, 0, rand.New(rand.NewSource(1)))

	require.Equal(t, 51, ds.Len())
	assert.Equal(t, 2, ds.Features())

	counts := map[float64]int{}
	for i, x := range ds.X {
		y := ds.Y[i]
		counts[y]++
		switch y {
		case -1:
			assert.InDelta(t, 1.0, math.Hypot(x[0], x[1]), 1e-12)
			assert.GreaterOrEqual(t, x[1], -1e-12)
		case 1:
			assert.InDelta(t, 1.0, math.Hypot(x[0]-1, x[1]-0.5), 1e-12)
			assert.LessOrEqual(t, x[1], 0.5+1e-12)
		default:
			t.Fatalf("unexpected label %v", y)
		}
	}
	assert.Equal(t, 25, counts[-1])
	assert.Equal(t, 26, counts[1])
}

func TestMoonsIsSeeded(t *testing.T) {
	a := train.Moons(20, 0.1, rand.New(rand.NewSource(4)))
	b := train.Moons(20, 0.1, rand.New(rand.NewSource(4)))
	c := train.Moons(20, 0.1, rand.New(rand.NewSource(5)))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a.X, c.X)
}

func TestNewDataset(t *testing.T) {
	ds, err := train.NewDataset([][]float64{{1, 2}, {3, 4}}, []float64{1, -1})
	require.NoError(t, err)

	x, y, err := ds.GetItem(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, x)
	assert.Equal(t, -1.0, y)

	_, _, err = ds.GetItem(2)
	assert.Error(t, err)

	_, err = train.NewDataset([][]float64{{1}}, []float64{1, 2})
	assert.Error(t, err)
	_, err = train.NewDataset(nil, nil)
	assert.ErrorIs(t, err, train.ErrEmptyDataset)
	_, err = train.NewDataset([][]float64{{1, 2}, {3}}, []float64{1, 2})
	assert.ErrorContains(t, err, "sample 1")
}

func TestBatch(t *testing.T) {
	ds := train.Moons(30, 0, rand.New(rand.NewSource(2)))

	assert.Same(t, ds, ds.Batch(0, nil))
	assert.Same(t, ds, ds.Batch(30, nil))

	batch := ds.Batch(7, rand.New(rand.NewSource(3)))
	require.Equal(t, 7, batch.Len())

	seen := map[*float64]bool{}
	for i, x := range batch.X {
		assert.False(t, seen[&x[0]], "sample drawn twice")
		seen[&x[0]] = true

		found := false
		for j, orig := range ds.X {
			if &orig[0] == &x[0] {
				assert.Equal(t, ds.Y[j], batch.Y[i])
				found = true
			}
		}
		assert.True(t, found)
	}
}
