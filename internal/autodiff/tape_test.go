package autodiff

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArithmeticForward(t *testing.T) {
	tape := NewTape(16)
	a := tape.Variable(3)
	b := tape.Variable(4)

	assert.Equal(t, 7.0, a.Add(b).Float())
	assert.Equal(t, -1.0, a.Sub(b).Float())
	assert.Equal(t, 12.0, a.Mul(b).Float())
	assert.Equal(t, 0.75, a.Div(b).Float())
	assert.Equal(t, 9.0, a.Square().Float())
	assert.Equal(t, 2.0, tape.Variable(4).Sqrt().Float())
}

func TestBackwardProduct(t *testing.T) {
	tape := NewTape(8)
	a := tape.Variable(3)
	b := tape.Variable(4)
	out := a.Mul(b)

	tape.Backward(out)
	assert.Equal(t, 4.0, tape.Adjoint(a))
	assert.Equal(t, 3.0, tape.Adjoint(b))
}

func TestBackwardChain(t *testing.T) {
	// f = (a + b)² at a=1, b=2: df/da = df/db = 2(a+b) = 6.
	tape := NewTape(8)
	a := tape.Variable(1)
	b := tape.Variable(2)
	out := a.Add(b).Square()

	tape.Backward(out)
	assert.InDelta(t, 6.0, tape.Adjoint(a), 1e-12)
	assert.InDelta(t, 6.0, tape.Adjoint(b), 1e-12)
}

func TestBackwardResetsAdjoints(t *testing.T) {
	tape := NewTape(8)
	a := tape.Variable(2)
	b := tape.Variable(5)
	r1 := a.Mul(b)
	r2 := a.Add(b)

	tape.Backward(r1)
	require.Equal(t, 5.0, tape.Adjoint(a))

	// A second sweep must not accumulate on top of the first.
	tape.Backward(r2)
	assert.Equal(t, 1.0, tape.Adjoint(a))
	assert.Equal(t, 1.0, tape.Adjoint(b))
}

func TestSqrtAtZeroStaysFinite(t *testing.T) {
	tape := NewTape(4)
	a := tape.Variable(0)
	out := a.Sqrt()

	tape.Backward(out)
	assert.Equal(t, 0.0, out.Float())
	assert.False(t, math.IsInf(tape.Adjoint(a), 0))
	assert.False(t, math.IsNaN(tape.Adjoint(a)))
}

func TestAcosClamped(t *testing.T) {
	tape := NewTape(4)
	// Slightly outside [-1,1], as normalized dot products can be.
	a := tape.Variable(1.0 + 1e-14)
	out := a.Acos()

	tape.Backward(out)
	assert.Equal(t, 0.0, out.Float())
	assert.False(t, math.IsNaN(tape.Adjoint(a)))
	assert.False(t, math.IsInf(tape.Adjoint(a), 0))
}

func TestTrigDerivatives(t *testing.T) {
	tape := NewTape(8)
	x := tape.Variable(math.Pi / 3)
	s := x.Sin()
	tape.Backward(s)
	assert.InDelta(t, math.Cos(math.Pi/3), tape.Adjoint(x), 1e-12)

	c := x.Cos()
	tape.Backward(c)
	assert.InDelta(t, -math.Sin(math.Pi/3), tape.Adjoint(x), 1e-12)
}

func TestVec3CrossAndDot(t *testing.T) {
	tape := NewTape(64)
	ex := NewVec3(tape, 1, 0, 0)
	ey := NewVec3(tape, 0, 1, 0)

	cr := ex.Cross(ey)
	x, y, z := cr.Floats()
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 0.0, y)
	assert.Equal(t, 1.0, z)

	assert.Equal(t, 0.0, ex.Dot(ey).Float())
	assert.Equal(t, 1.0, ex.Norm().Float())
}

func TestVec3NormGradient(t *testing.T) {
	// ∂‖p‖/∂x = x/‖p‖ for p=(3,4,0): 3/5.
	tape := NewTape(64)
	x := tape.Variable(3)
	y := tape.Variable(4)
	z := tape.Variable(0)
	n := Vec3{X: x, Y: y, Z: z}.Norm()

	tape.Backward(n)
	assert.InDelta(t, 0.6, tape.Adjoint(x), 1e-12)
	assert.InDelta(t, 0.8, tape.Adjoint(y), 1e-12)
	assert.InDelta(t, 0.0, tape.Adjoint(z), 1e-12)
}

func TestGradientMatchesFiniteDifference(t *testing.T) {
	f := func(a, b float64) float64 {
		return math.Sqrt(a*a+b*b) * math.Sin(a/b)
	}
	a0, b0 := 1.3, 2.7

	tape := NewTape(32)
	a := tape.Variable(a0)
	b := tape.Variable(b0)
	out := a.Square().Add(b.Square()).Sqrt().Mul(a.Div(b).Sin())
	tape.Backward(out)

	const h = 1e-7
	dfda := (f(a0+h, b0) - f(a0-h, b0)) / (2 * h)
	dfdb := (f(a0, b0+h) - f(a0, b0-h)) / (2 * h)

	assert.InDelta(t, dfda, tape.Adjoint(a), 1e-6)
	assert.InDelta(t, dfdb, tape.Adjoint(b), 1e-6)
}
