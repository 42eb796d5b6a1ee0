package constraint

import (
	"github.com/google/uuid"

	"github.com/photoscene/photoscene/internal/autodiff"
	"github.com/photoscene/photoscene/internal/scene"
)

// Distance constrains the euclidean distance between two points to a
// target value.
type Distance struct {
	base   Base
	A, B   uuid.UUID
	Target float64
}

// NewDistance creates a distance constraint between two points.
func NewDistance(name string, a, b uuid.UUID, target float64) *Distance {
	return &Distance{base: newBase(TypeDistance, name), A: a, B: b, Target: target}
}

func (c *Distance) Base() *Base { return &c.base }

func (c *Distance) RequiredEntityCounts() EntityCounts { return EntityCounts{Points: 2} }

func (c *Distance) EntityIDs() []uuid.UUID { return []uuid.UUID{c.A, c.B} }

func (c *Distance) Preload(repo scene.Repository) error {
	for _, id := range c.EntityIDs() {
		if !repo.PointExists(id) {
			return &MissingEntityError{Constraint: c.base.ID, Entity: id}
		}
	}
	return nil
}

func (c *Distance) Evaluate(repo scene.Repository) Evaluation {
	vs, ok := resolvePoints(repo, []uuid.UUID{c.A, c.B})
	if !ok {
		return c.base.unsatisfied(0)
	}
	dist := vs[1].Sub(vs[0]).Norm()
	err := dist - c.Target
	if err < 0 {
		err = -err
	}
	return c.base.record(Evaluation{
		Satisfied: err <= c.base.Tolerance,
		Value:     dist,
		Error:     err,
	})
}

func (c *Distance) Residuals(vm *scene.ValueMap) []autodiff.Value {
	a, okA := vm.Point(c.A)
	b, okB := vm.Point(c.B)
	if !okA || !okB {
		return nil
	}
	return []autodiff.Value{b.Sub(a).Norm().AddConst(-c.Target)}
}

func (c *Distance) Validate(repo scene.Repository) []Issue {
	issues := c.base.validateCommon()
	if c.A == c.B {
		issues = append(issues, c.base.issue("points", "distance endpoints must be distinct"))
	}
	for _, id := range c.EntityIDs() {
		if !repo.PointExists(id) {
			issues = append(issues, c.base.issue("points", "point %s does not exist", id))
		}
	}
	if c.Target < 0 {
		issues = append(issues, c.base.issue("targetDistance", "target distance must be >= 0, got %g", c.Target))
	}
	return issues
}

func (c *Distance) ToDTO() DTO {
	d := dtoFromBase(&c.base)
	d.Points = idsToStrings([]uuid.UUID{c.A, c.B})
	t := c.Target
	d.TargetDistance = &t
	return d
}

func (c *Distance) Clone() Constraint {
	return &Distance{base: cloneBase(c.base), A: c.A, B: c.B, Target: c.Target}
}
