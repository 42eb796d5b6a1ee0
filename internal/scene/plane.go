package scene

import (
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
)

// Plane is defined by three non-collinear world points.
type Plane struct {
	ID        uuid.UUID
	Name      string
	P0, P1, P2 uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPlane creates a plane through three points.
func NewPlane(name string, p0, p1, p2 uuid.UUID) *Plane {
	now := time.Now()
	return &Plane{ID: uuid.New(), Name: name, P0: p0, P1: p1, P2: p2, CreatedAt: now, UpdatedAt: now}
}

// Normal resolves the plane's unit normal through the repository. ok is
// false when any point is missing or undefined, or the three points are
// collinear.
func (p *Plane) Normal(repo Repository) (origin, normal r3.Vector, ok bool) {
	pts := [3]uuid.UUID{p.P0, p.P1, p.P2}
	var v [3]r3.Vector
	for i, id := range pts {
		wp, found := repo.Point(id)
		if !found {
			return r3.Vector{}, r3.Vector{}, false
		}
		vec, defined := wp.Vector()
		if !defined {
			return r3.Vector{}, r3.Vector{}, false
		}
		v[i] = vec
	}
	n := v[1].Sub(v[0]).Cross(v[2].Sub(v[0]))
	if n.Norm() == 0 {
		return r3.Vector{}, r3.Vector{}, false
	}
	return v[0], n.Normalize(), true
}
