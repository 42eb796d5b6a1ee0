// Package scene holds the optimizable entities of a photogrammetric
// project (world points, cameras, lines, planes, image observations)
// and the per-solve ValueMap that maps them onto differentiable values.
package scene

import (
	"fmt"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
)

// Axis indexes a world coordinate.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

// WorldPoint is a 3D point whose axes are each independently
// defined/undefined and independently lockable. A locked axis never
// becomes a free variable; an undefined axis keeps any constraint that
// needs it out of the solve.
type WorldPoint struct {
	ID        uuid.UUID
	Name      string
	Color     string
	Group     string
	Source    Provenance
	CreatedAt time.Time
	UpdatedAt time.Time

	coord   [3]float64
	defined [3]bool
	locked  [3]bool
}

// NewWorldPoint creates a point with no defined axes.
func NewWorldPoint(name string) *WorldPoint {
	now := time.Now()
	return &WorldPoint{
		ID:        uuid.New(),
		Name:      name,
		Source:    ProvenanceUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewWorldPointAt creates a fully defined point at (x, y, z).
func NewWorldPointAt(name string, x, y, z float64) *WorldPoint {
	p := NewWorldPoint(name)
	p.SetXYZ(x, y, z)
	return p
}

// SetCoord defines one axis.
func (p *WorldPoint) SetCoord(a Axis, v float64) {
	p.coord[a] = v
	p.defined[a] = true
	p.UpdatedAt = time.Now()
}

// SetXYZ defines all three axes.
func (p *WorldPoint) SetXYZ(x, y, z float64) {
	p.coord = [3]float64{x, y, z}
	p.defined = [3]bool{true, true, true}
	p.UpdatedAt = time.Now()
}

// ClearCoord marks one axis undefined.
func (p *WorldPoint) ClearCoord(a Axis) {
	p.defined[a] = false
	p.UpdatedAt = time.Now()
}

// Coord returns one axis value and whether it is defined.
func (p *WorldPoint) Coord(a Axis) (float64, bool) {
	return p.coord[a], p.defined[a]
}

// Defined reports whether the axis has a value.
func (p *WorldPoint) Defined(a Axis) bool { return p.defined[a] }

// FullyDefined reports whether all three axes have values.
func (p *WorldPoint) FullyDefined() bool {
	return p.defined[0] && p.defined[1] && p.defined[2]
}

// Lock sets the lock flag for one axis.
func (p *WorldPoint) Lock(a Axis, locked bool) {
	p.locked[a] = locked
	p.UpdatedAt = time.Now()
}

// LockAll locks every axis.
func (p *WorldPoint) LockAll() {
	p.locked = [3]bool{true, true, true}
	p.UpdatedAt = time.Now()
}

// Locked reports the lock flag for one axis.
func (p *WorldPoint) Locked(a Axis) bool { return p.locked[a] }

// Vector returns the point as an r3 vector; ok is false unless all axes
// are defined.
func (p *WorldPoint) Vector() (r3.Vector, bool) {
	if !p.FullyDefined() {
		return r3.Vector{}, false
	}
	return r3.Vector{X: p.coord[0], Y: p.coord[1], Z: p.coord[2]}, true
}

// Contribute registers the point's defined axes into the ValueMap:
// unlocked axes as free variables, locked axes as constants. It is part
// of the contributor protocol; the solver never touches the coordinate
// fields directly.
func (p *WorldPoint) Contribute(vm *ValueMap) {
	var slots [3]int
	for a := AxisX; a <= AxisZ; a++ {
		if !p.defined[a] {
			slots[a] = noParam
			continue
		}
		a := a
		slots[a] = vm.addParam(
			fmt.Sprintf("point/%s/%s", p.ID, a),
			p.coord[a],
			!p.locked[a],
			func(v float64) {
				p.coord[a] = v
				p.Source = ProvenanceOptimized
				p.UpdatedAt = time.Now()
			},
		)
	}
	vm.registerPoint(p.ID, slots)
}
