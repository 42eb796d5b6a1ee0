package constraint

import (
	"math"

	"github.com/google/uuid"

	"github.com/photoscene/photoscene/internal/autodiff"
	"github.com/photoscene/photoscene/internal/scene"
)

// Coplanar constrains four or more points to lie on a single plane. The
// plane is spanned by the first three points; every further point
// contributes its signed distance to that plane as a residual.
type Coplanar struct {
	base   Base
	points []uuid.UUID
}

// NewCoplanar creates a coplanarity constraint over the given points.
func NewCoplanar(name string, points ...uuid.UUID) *Coplanar {
	return &Coplanar{
		base:   newBase(TypeCoplanar, name),
		points: append([]uuid.UUID(nil), points...),
	}
}

func (c *Coplanar) Base() *Base { return &c.base }

func (c *Coplanar) RequiredEntityCounts() EntityCounts {
	return EntityCounts{Points: 4, Variadic: true}
}

func (c *Coplanar) EntityIDs() []uuid.UUID { return cloneIDs(c.points) }

func (c *Coplanar) Preload(repo scene.Repository) error {
	for _, id := range c.points {
		if !repo.PointExists(id) {
			return &MissingEntityError{Constraint: c.base.ID, Entity: id}
		}
	}
	return nil
}

// Evaluate reports the largest absolute distance of any point to the
// plane spanned by the first three. Collinear anchor points make the
// plane undefined and the constraint unsatisfied.
func (c *Coplanar) Evaluate(repo scene.Repository) Evaluation {
	vs, ok := resolvePoints(repo, c.points)
	if !ok {
		return c.base.unsatisfied(0)
	}
	normal := vs[1].Sub(vs[0]).Cross(vs[2].Sub(vs[0]))
	n := normal.Norm()
	if n < degenerateEps {
		return c.base.unsatisfied(math.Inf(1))
	}
	var worst float64
	for _, v := range vs[3:] {
		d := math.Abs(v.Sub(vs[0]).Dot(normal)) / n
		if d > worst {
			worst = d
		}
	}
	return c.base.record(Evaluation{
		Satisfied: worst <= c.base.Tolerance,
		Value:     worst,
		Error:     worst,
	})
}

func (c *Coplanar) Residuals(vm *scene.ValueMap) []autodiff.Value {
	if len(c.points) < 4 {
		return nil
	}
	p0, ok0 := vm.Point(c.points[0])
	p1, ok1 := vm.Point(c.points[1])
	p2, ok2 := vm.Point(c.points[2])
	if !ok0 || !ok1 || !ok2 {
		return nil
	}
	normal := p1.Sub(p0).Cross(p2.Sub(p0))
	n := normal.Norm()
	if n.Float() < degenerateEps {
		return nil
	}
	var out []autodiff.Value
	for _, id := range c.points[3:] {
		p, ok := vm.Point(id)
		if !ok {
			return nil
		}
		out = append(out, p.Sub(p0).Dot(normal).Div(n))
	}
	return out
}

func (c *Coplanar) Validate(repo scene.Repository) []Issue {
	issues := c.base.validateCommon()
	if len(c.points) < 4 {
		issues = append(issues, c.base.issue("points", "at least 4 points required, got %d", len(c.points)))
	}
	issues = append(issues, validatePointSet(&c.base, repo, c.points)...)
	return issues
}

func (c *Coplanar) ToDTO() DTO {
	d := dtoFromBase(&c.base)
	d.Points = idsToStrings(c.points)
	return d
}

func (c *Coplanar) Clone() Constraint {
	return &Coplanar{base: cloneBase(c.base), points: cloneIDs(c.points)}
}
