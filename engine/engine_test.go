package engine_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsawler/go-scalargrad/engine"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestCanonicalExample(t *testing.T) {
	a := engine.NewLabeled(2.0, "a")
	b := engine.NewLabeled(-3.0, "b")
	c := engine.NewLabeled(10.0, "c")
	e := a.Mul(b)
	d := e.Add(c)
	f := engine.NewLabeled(-2.0, "f")
	L := d.Mul(f)

	L.Backward()

	assert.Equal(t, -8.0, L.Data)
	assert.Equal(t, 1.0, L.Grad)
	assert.Equal(t, -2.0, d.Grad)
	assert.Equal(t, 4.0, f.Grad)
	assert.Equal(t, -2.0, e.Grad)
	assert.Equal(t, -2.0, c.Grad)
	assert.Equal(t, 6.0, a.Grad)
	assert.Equal(t, -4.0, b.Grad)
}

func TestFanOutAccumulates(t *testing.T) {
	x := engine.New(3.0)
	f := x.Mul(x).Add(x)

	f.Backward()

	assert.Equal(t, 12.0, f.Data)
	assert.Equal(t, 7.0, x.Grad)
}

func TestSharedSubexpression(t *testing.T) {
	// y feeds two consumers that are themselves combined, so y.Grad must hold
	// both contributions before y pushes anything onto x.
	x := engine.New(2.0)
	y := x.Mul(engine.New(3)) // 6
	z := y.Mul(y).Add(y.Exp().Mul(engine.New(0)))
	w := z.Add(y)

	w.Backward()

	// w = 9x² + 3x, dw/dx = 18x + 3
	assert.InDelta(t, 39.0, x.Grad, 1e-12)
	assert.InDelta(t, 13.0, y.Grad, 1e-12)
}

func TestReLUBoundary(t *testing.T) {
	a := engine.New(0.0)
	out := a.ReLU()
	out.Backward()

	assert.Equal(t, 0.0, out.Data)
	assert.Equal(t, 0.0, a.Grad)
}

func TestDeadBranchKeepsZeroGradient(t *testing.T) {
	x := engine.New(1.5)
	y := engine.New(-4.0)
	unused := x.Mul(y).Tanh()
	root := x.Pow(2)

	root.Backward()

	assert.Equal(t, 3.0, x.Grad)
	assert.Equal(t, 0.0, y.Grad)
	assert.Equal(t, 0.0, unused.Grad)
}

func TestBackwardNeverChangesData(t *testing.T) {
	a := engine.New(0.7)
	b := engine.New(-1.3)
	nodes := []*engine.Value{a, b}
	nodes = append(nodes, a.Mul(b))
	nodes = append(nodes, nodes[2].Tanh())
	nodes = append(nodes, nodes[3].Exp().Div(a))
	nodes = append(nodes, nodes[4].Sub(b).ReLU())
	root := nodes[len(nodes)-1]

	before := make([]float64, len(nodes))
	for i, n := range nodes {
		before[i] = n.Data
	}

	root.Backward()

	for i, n := range nodes {
		assert.Equal(t, before[i], n.Data, "node %d", i)
	}
}

func TestBackwardAccumulatesAcrossCalls(t *testing.T) {
	x := engine.New(2.0)
	y := x.Mul(engine.New(5))

	y.Backward()
	y.Backward()
	assert.Equal(t, 10.0, x.Grad)

	engine.ZeroGrad(x, y)
	y.Backward()
	assert.Equal(t, 5.0, x.Grad)
}

func TestTopologicalOrder(t *testing.T) {
	a := engine.New(1)
	b := engine.New(2)
	c := a.Mul(b)
	d := c.Add(a)
	e := d.Mul(c)

	order := engine.Topological(e)
	require.Len(t, order, 5)
	assert.Same(t, e, order[len(order)-1])

	pos := make(map[*engine.Value]int, len(order))
	for i, n := range order {
		_, dup := pos[n]
		require.False(t, dup, "node %v appears twice", n)
		pos[n] = i
	}
	for _, n := range order {
		for _, operand := range n.Operands() {
			assert.Less(t, pos[operand], pos[n], "operand %v must precede %v", operand, n)
		}
	}
}

func TestBackwardVisitsEachNodeOnceAfterConsumers(t *testing.T) {
	x := engine.New(0.5)
	y := engine.New(-1.25)
	h := x.Mul(y).Add(x.Tanh())
	g := h.Mul(h).Add(h.Exp()).Sub(y.Pow(3))
	root := g.Div(x.Add(engine.New(2))).ReLU().Add(h)

	consumers := make(map[*engine.Value][]*engine.Value)
	for _, n := range engine.Topological(root) {
		for _, operand := range n.Operands() {
			consumers[operand] = append(consumers[operand], n)
		}
	}

	seen := make(map[*engine.Value]int)
	root.BackwardVisit(func(n *engine.Value) {
		for _, c := range consumers[n] {
			assert.Contains(t, seen, c, "consumer %v must run before %v", c, n)
		}
		seen[n]++
	})

	assert.Len(t, seen, len(engine.Topological(root)))
	for n, count := range seen {
		assert.Equal(t, 1, count, "node %v", n)
	}
}

func TestDeepChainDoesNotOverflow(t *testing.T) {
	x := engine.New(1.0)
	v := x
	const depth = 200000
	for range depth {
		v = v.Add(engine.New(0))
	}

	v.Backward()

	assert.Equal(t, 1.0, x.Grad)
	assert.Len(t, engine.Topological(v), 2*depth+1)
}

func TestCompositeOpsLowerToPrimitives(t *testing.T) {
	a := engine.New(3)
	b := engine.New(4)

	neg := a.Neg()
	assert.Equal(t, engine.OpMul, neg.Op())
	assert.Equal(t, -3.0, neg.Data)

	sub := a.Sub(b)
	assert.Equal(t, engine.OpAdd, sub.Op())
	assert.Equal(t, -1.0, sub.Data)

	div := a.Div(b)
	assert.Equal(t, engine.OpMul, div.Op())
	assert.Equal(t, 0.75, div.Data)
	ops := div.Operands()
	require.Len(t, ops, 2)
	assert.Equal(t, engine.OpPow, ops[1].Op())
	assert.Equal(t, -1.0, ops[1].Exponent())

	div.Backward()
	assert.InDelta(t, 0.25, a.Grad, 1e-15)
	assert.InDelta(t, -3.0/16, b.Grad, 1e-15)
}

func TestLeafProperties(t *testing.T) {
	v := engine.NewLabeled(2.5, "w")
	assert.True(t, v.IsLeaf())
	assert.Equal(t, engine.OpNone, v.Op())
	assert.Empty(t, v.Operands())
	assert.Equal(t, "w", v.Label)
	assert.Equal(t, "Value(data=2.5, grad=0)", v.String())

	v.Backward()
	assert.Equal(t, 1.0, v.Grad)
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "+", engine.OpAdd.String())
	assert.Equal(t, "*", engine.OpMul.String())
	assert.Equal(t, "**", engine.OpPow.String())
	assert.Equal(t, "ReLU", engine.OpReLU.String())
	assert.Equal(t, "tanh", engine.OpTanh.String())
	assert.Equal(t, "exp", engine.OpExp.String())
	assert.Equal(t, "", engine.OpNone.String())
	assert.Equal(t, "Op(42)", engine.Op(42).String())
}

func TestMixedOperands(t *testing.T) {
	x := engine.New(3)

	sum, err := engine.Add(2, x)
	require.NoError(t, err)
	assert.Equal(t, 5.0, sum.Data)

	prod, err := engine.Mul(x, float32(1.5))
	require.NoError(t, err)
	assert.Equal(t, 4.5, prod.Data)

	diff, err := engine.Sub(10, x)
	require.NoError(t, err)
	assert.Equal(t, 7.0, diff.Data)

	quo, err := engine.Div(uint8(9), x)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, quo.Data, 1e-15)

	sq, err := engine.Pow(x, int64(2))
	require.NoError(t, err)
	assert.Equal(t, 9.0, sq.Data)

	total, err := engine.Sum(sum, prod, diff, quo, sq)
	require.NoError(t, err)
	total.Backward()
	// d/dx of (2+x) + 1.5x + (10-x) + 9/x + x² at x=3
	assert.InDelta(t, 1+1.5-1-1+6, x.Grad, 1e-12)

	empty, err := engine.Sum()
	require.NoError(t, err)
	assert.Equal(t, 0.0, empty.Data)
}

func TestInvalidOperands(t *testing.T) {
	x := engine.New(1)

	_, err := engine.Add(x, "one")
	assert.ErrorIs(t, err, engine.ErrInvalidOperand)

	_, err = engine.Mul([]float64{1}, x)
	assert.ErrorIs(t, err, engine.ErrInvalidOperand)

	_, err = engine.ReLU(nil)
	assert.ErrorIs(t, err, engine.ErrInvalidOperand)

	var missing *engine.Value
	_, err = engine.Coerce(missing)
	assert.ErrorIs(t, err, engine.ErrInvalidOperand)

	_, err = engine.Sum(1, 2, struct{}{})
	assert.ErrorIs(t, err, engine.ErrInvalidOperand)
	assert.ErrorContains(t, err, "operand 2")
}

func TestPowExponentMustBeConstant(t *testing.T) {
	x := engine.New(2)

	_, err := engine.Pow(x, engine.New(3))
	assert.ErrorIs(t, err, engine.ErrUnsupportedExponent)

	_, err = engine.Pow(x, "3")
	assert.ErrorIs(t, err, engine.ErrInvalidOperand)

	_, err = engine.Pow("x", 3)
	assert.ErrorIs(t, err, engine.ErrInvalidOperand)
}

func TestMustPanicsOnError(t *testing.T) {
	assert.Panics(t, func() { engine.Must(engine.Add(1, "x")) })
	assert.NotPanics(t, func() { engine.Must(engine.Add(1, 2)) })
}

func TestNumericDomainPropagates(t *testing.T) {
	zero := engine.New(0)
	q := engine.New(1).Div(zero)
	assert.True(t, math.IsInf(q.Data, 1))

	root := engine.New(-8).Pow(1.0 / 3)
	assert.True(t, math.IsNaN(root.Data))

	big := engine.New(1000).Exp()
	assert.True(t, math.IsInf(big.Data, 1))
}

// unaryCases pairs each operation with the same function on plain floats.
var unaryCases = []struct {
	name    string
	build   func(x *engine.Value) *engine.Value
	eval    func(x float64) float64
	samples []float64
}{
	{"add", func(x *engine.Value) *engine.Value { return x.Add(engine.New(1.7)) }, func(x float64) float64 { return x + 1.7 }, []float64{-2, 0, 3.5}},
	{"add-self", func(x *engine.Value) *engine.Value { return x.Add(x) }, func(x float64) float64 { return 2 * x }, []float64{-1, 4}},
	{"mul", func(x *engine.Value) *engine.Value { return x.Mul(engine.New(-2.5)) }, func(x float64) float64 { return -2.5 * x }, []float64{-3, 0, 1.25}},
	{"mul-self", func(x *engine.Value) *engine.Value { return x.Mul(x) }, func(x float64) float64 { return x * x }, []float64{-3, 0.5, 2}},
	{"pow-int", func(x *engine.Value) *engine.Value { return x.Pow(3) }, func(x float64) float64 { return math.Pow(x, 3) }, []float64{-2, -0.5, 1.5}},
	{"pow-neg", func(x *engine.Value) *engine.Value { return x.Pow(-2) }, func(x float64) float64 { return math.Pow(x, -2) }, []float64{-3, 0.75, 2}},
	{"pow-real", func(x *engine.Value) *engine.Value { return x.Pow(0.5) }, math.Sqrt, []float64{0.25, 4, 9}},
	{"neg", (*engine.Value).Neg, func(x float64) float64 { return -x }, []float64{-1, 2}},
	{"sub", func(x *engine.Value) *engine.Value { return engine.New(4).Sub(x) }, func(x float64) float64 { return 4 - x }, []float64{-1, 3}},
	{"div", func(x *engine.Value) *engine.Value { return engine.New(3).Div(x) }, func(x float64) float64 { return 3 / x }, []float64{-2, 0.5, 7}},
	{"relu", (*engine.Value).ReLU, func(x float64) float64 { return math.Max(0, x) }, []float64{-2, -1e-3, 1e-3, 5}},
	{"tanh", (*engine.Value).Tanh, math.Tanh, []float64{-5, -0.3, 0, 0.8, 5}},
	{"exp", (*engine.Value).Exp, math.Exp, []float64{-10, 0, 2, 10}},
}

func TestGradientsMatchFiniteDifferences(t *testing.T) {
	settings := &fd.Settings{Formula: fd.Central, Step: 1e-6}

	for _, tc := range unaryCases {
		t.Run(tc.name, func(t *testing.T) {
			for _, at := range tc.samples {
				x := engine.New(at)
				out := tc.build(x)
				require.True(t, scalar.EqualWithinAbsOrRel(out.Data, tc.eval(at), 1e-12, 1e-12),
					"forward at x=%g: %g vs %g", at, out.Data, tc.eval(at))

				out.Backward()

				want := fd.Derivative(tc.eval, at, settings)
				assert.True(t, scalar.EqualWithinAbsOrRel(x.Grad, want, 1e-4, 1e-4),
					"at x=%g: analytic %g, numeric %g", at, x.Grad, want)
			}
		})
	}
}

func TestBinaryGradientsMatchFiniteDifferences(t *testing.T) {
	settings := &fd.Settings{Formula: fd.Central, Step: 1e-6}
	f := func(a, b float64) float64 { return math.Tanh(a*b) + math.Exp(a/b) - math.Pow(a-b, 2) }

	for _, p := range [][2]float64{{0.3, 1.2}, {-1.1, 0.7}, {2, -3}} {
		a := engine.New(p[0])
		b := engine.New(p[1])
		out := a.Mul(b).Tanh().Add(a.Div(b).Exp()).Sub(a.Sub(b).Pow(2))
		require.InDelta(t, f(p[0], p[1]), out.Data, 1e-12)

		out.Backward()

		wantA := fd.Derivative(func(x float64) float64 { return f(x, p[1]) }, p[0], settings)
		wantB := fd.Derivative(func(y float64) float64 { return f(p[0], y) }, p[1], settings)
		assert.True(t, scalar.EqualWithinAbsOrRel(a.Grad, wantA, 1e-4, 1e-4), "d/da at %v: %g vs %g", p, a.Grad, wantA)
		assert.True(t, scalar.EqualWithinAbsOrRel(b.Grad, wantB, 1e-4, 1e-4), "d/db at %v: %g vs %g", p, b.Grad, wantB)
	}
}
