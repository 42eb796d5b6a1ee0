package scene

import (
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
)

// Line references two world points; its direction is B−A.
type Line struct {
	ID        uuid.UUID
	Name      string
	A, B      uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewLine creates a line through two points.
func NewLine(name string, a, b uuid.UUID) *Line {
	now := time.Now()
	return &Line{ID: uuid.New(), Name: name, A: a, B: b, CreatedAt: now, UpdatedAt: now}
}

// Direction resolves the line's direction vector through the repository.
// ok is false when either endpoint is missing, not fully defined, or the
// endpoints coincide.
func (l *Line) Direction(repo Repository) (r3.Vector, bool) {
	pa, okA := repo.Point(l.A)
	pb, okB := repo.Point(l.B)
	if !okA || !okB {
		return r3.Vector{}, false
	}
	va, okA := pa.Vector()
	vb, okB := pb.Vector()
	if !okA || !okB {
		return r3.Vector{}, false
	}
	d := vb.Sub(va)
	if d.Norm() == 0 {
		return r3.Vector{}, false
	}
	return d, true
}
