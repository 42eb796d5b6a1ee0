package constraint

import (
	"github.com/google/uuid"

	"github.com/photoscene/photoscene/internal/autodiff"
	"github.com/photoscene/photoscene/internal/scene"
)

// Collinear constrains three or more points to lie on a single line.
// Display evaluation measures every point against the line through the
// first two; the solver residual is the cross product of the first
// triple, which vanishes exactly when those three are collinear.
type Collinear struct {
	base   Base
	points []uuid.UUID
}

// NewCollinear creates a collinearity constraint over the given points.
func NewCollinear(name string, points ...uuid.UUID) *Collinear {
	return &Collinear{
		base:   newBase(TypeCollinear, name),
		points: append([]uuid.UUID(nil), points...),
	}
}

func (c *Collinear) Base() *Base { return &c.base }

func (c *Collinear) RequiredEntityCounts() EntityCounts {
	return EntityCounts{Points: 3, Variadic: true}
}

func (c *Collinear) EntityIDs() []uuid.UUID { return cloneIDs(c.points) }

func (c *Collinear) Preload(repo scene.Repository) error {
	for _, id := range c.points {
		if !repo.PointExists(id) {
			return &MissingEntityError{Constraint: c.base.ID, Entity: id}
		}
	}
	return nil
}

// Evaluate reports the largest perpendicular distance of any point to
// the line through the first two.
func (c *Collinear) Evaluate(repo scene.Repository) Evaluation {
	vs, ok := resolvePoints(repo, c.points)
	if !ok {
		return c.base.unsatisfied(0)
	}
	axis := vs[1].Sub(vs[0])
	n := axis.Norm()
	if n < degenerateEps {
		return c.base.unsatisfied(0)
	}
	var worst float64
	for _, v := range vs[2:] {
		d := v.Sub(vs[0]).Cross(axis).Norm() / n
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

func (c *Collinear) Residuals(vm *scene.ValueMap) []autodiff.Value {
	if len(c.points) < 3 {
		return nil
	}
	p0, ok0 := vm.Point(c.points[0])
	p1, ok1 := vm.Point(c.points[1])
	p2, ok2 := vm.Point(c.points[2])
	if !ok0 || !ok1 || !ok2 {
		return nil
	}
	cross := p1.Sub(p0).Cross(p2.Sub(p0))
	return []autodiff.Value{cross.X, cross.Y, cross.Z}
}

func (c *Collinear) Validate(repo scene.Repository) []Issue {
	issues := c.base.validateCommon()
	if len(c.points) < 3 {
		issues = append(issues, c.base.issue("points", "at least 3 points required, got %d", len(c.points)))
	}
	issues = append(issues, validatePointSet(&c.base, repo, c.points)...)
	return issues
}

func (c *Collinear) ToDTO() DTO {
	d := dtoFromBase(&c.base)
	d.Points = idsToStrings(c.points)
	return d
}

func (c *Collinear) Clone() Constraint {
	return &Collinear{base: cloneBase(c.base), points: cloneIDs(c.points)}
}

// validatePointSet flags missing and duplicate point references.
func validatePointSet(b *Base, repo scene.Repository, ids []uuid.UUID) []Issue {
	var issues []Issue
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			issues = append(issues, b.issue("points", "point %s is referenced more than once", id))
			continue
		}
		seen[id] = true
		if !repo.PointExists(id) {
			issues = append(issues, b.issue("points", "point %s does not exist", id))
		}
	}
	return issues
}
