// Package autodiff provides tape-based reverse-mode automatic
// differentiation over scalar values.
//
// A Tape records one evaluation's computation graph. Values are handles
// into the tape; every arithmetic operation appends a node carrying the
// local partial derivatives with respect to its operands. Backward then
// accumulates adjoints from a chosen output down to every reachable leaf
// in a single reverse sweep.
//
// Tapes are cheap and single-use by convention: build a fresh tape per
// evaluation, differentiate, discard. No graph state is shared between
// evaluations, so a Tape is safe to use from exactly one goroutine.
package autodiff

import "math"

// node is one recorded operation. Leaves have no parents (p1 == -1).
// Unary operations use only p1/w1.
type node struct {
	p1, p2 int
	w1, w2 float64
}

// Tape is an append-only record of a single computation.
type Tape struct {
	nodes []node
	adj   []float64
}

// NewTape returns an empty tape with capacity for roughly n nodes.
func NewTape(n int) *Tape {
	return &Tape{nodes: make([]node, 0, n)}
}

// Value is a scalar bound to a tape node.
type Value struct {
	tape *Tape
	idx  int
	v    float64
}

// Len returns the number of recorded nodes.
func (t *Tape) Len() int { return len(t.nodes) }

func (t *Tape) leaf(v float64) Value {
	t.nodes = append(t.nodes, node{p1: -1, p2: -1})
	return Value{tape: t, idx: len(t.nodes) - 1, v: v}
}

// Constant records a leaf whose adjoint is never read.
func (t *Tape) Constant(v float64) Value { return t.leaf(v) }

// Variable records a leaf representing a free parameter.
func (t *Tape) Variable(v float64) Value { return t.leaf(v) }

func (t *Tape) unary(p Value, v, w float64) Value {
	t.nodes = append(t.nodes, node{p1: p.idx, p2: -1, w1: w})
	return Value{tape: t, idx: len(t.nodes) - 1, v: v}
}

func (t *Tape) binary(a, b Value, v, wa, wb float64) Value {
	t.nodes = append(t.nodes, node{p1: a.idx, p2: b.idx, w1: wa, w2: wb})
	return Value{tape: t, idx: len(t.nodes) - 1, v: v}
}

// Float returns the forward value.
func (v Value) Float() float64 { return v.v }

// Add returns v + b.
func (v Value) Add(b Value) Value { return v.tape.binary(v, b, v.v+b.v, 1, 1) }

// Sub returns v - b.
func (v Value) Sub(b Value) Value { return v.tape.binary(v, b, v.v-b.v, 1, -1) }

// Mul returns v * b.
func (v Value) Mul(b Value) Value { return v.tape.binary(v, b, v.v*b.v, b.v, v.v) }

// Div returns v / b. Division by zero produces the IEEE result; callers
// guard degenerate denominators before dividing.
func (v Value) Div(b Value) Value {
	return v.tape.binary(v, b, v.v/b.v, 1/b.v, -v.v/(b.v*b.v))
}

// Neg returns -v.
func (v Value) Neg() Value { return v.tape.unary(v, -v.v, -1) }

// AddConst returns v + c.
func (v Value) AddConst(c float64) Value { return v.tape.unary(v, v.v+c, 1) }

// MulConst returns v * c.
func (v Value) MulConst(c float64) Value { return v.tape.unary(v, v.v*c, c) }

// Square returns v².
func (v Value) Square() Value { return v.tape.unary(v, v.v*v.v, 2*v.v) }

// Sqrt returns √v. At v == 0 the true derivative is unbounded; the tape
// records a zero partial instead so downstream Jacobians stay finite.
func (v Value) Sqrt() Value {
	s := math.Sqrt(v.v)
	w := 0.0
	if s > 0 {
		w = 0.5 / s
	}
	return v.tape.unary(v, s, w)
}

// Abs returns |v| with the subgradient 0 at the kink.
func (v Value) Abs() Value {
	switch {
	case v.v > 0:
		return v.tape.unary(v, v.v, 1)
	case v.v < 0:
		return v.tape.unary(v, -v.v, -1)
	default:
		return v.tape.unary(v, 0, 0)
	}
}

// Pow returns v^p for constant p.
func (v Value) Pow(p float64) Value {
	return v.tape.unary(v, math.Pow(v.v, p), p*math.Pow(v.v, p-1))
}

// Sin returns sin(v).
func (v Value) Sin() Value { return v.tape.unary(v, math.Sin(v.v), math.Cos(v.v)) }

// Cos returns cos(v).
func (v Value) Cos() Value { return v.tape.unary(v, math.Cos(v.v), -math.Sin(v.v)) }

// acosClamp keeps the argument strictly inside (-1, 1) so the derivative
// of acos stays finite near the endpoints.
const acosClamp = 1 - 1e-9

// Acos returns arccos(v) in radians. The input is clamped to [-1, 1] so
// tiny numeric overshoot from normalized dot products cannot produce NaN.
func (v Value) Acos() Value {
	x := v.v
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}
	xd := x
	if xd > acosClamp {
		xd = acosClamp
	} else if xd < -acosClamp {
		xd = -acosClamp
	}
	w := -1 / math.Sqrt(1-xd*xd)
	return v.tape.unary(v, math.Acos(x), w)
}

// Backward runs a reverse sweep from out, replacing any adjoints left by
// a previous sweep. After it returns, Adjoint reports ∂out/∂leaf for
// every leaf recorded before out.
func (t *Tape) Backward(out Value) {
	if cap(t.adj) < len(t.nodes) {
		t.adj = make([]float64, len(t.nodes))
	} else {
		t.adj = t.adj[:len(t.nodes)]
		for i := range t.adj {
			t.adj[i] = 0
		}
	}
	t.adj[out.idx] = 1
	for i := out.idx; i >= 0; i-- {
		a := t.adj[i]
		if a == 0 {
			continue
		}
		n := t.nodes[i]
		if n.p1 >= 0 {
			t.adj[n.p1] += n.w1 * a
		}
		if n.p2 >= 0 {
			t.adj[n.p2] += n.w2 * a
		}
	}
}

// Adjoint returns the accumulated adjoint of v from the last Backward.
func (t *Tape) Adjoint(v Value) float64 {
	if v.idx >= len(t.adj) {
		return 0
	}
	return t.adj[v.idx]
}
