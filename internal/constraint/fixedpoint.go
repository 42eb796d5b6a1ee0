package constraint

import (
	"math"

	"github.com/google/uuid"

	"github.com/photoscene/photoscene/internal/autodiff"
	"github.com/photoscene/photoscene/internal/scene"
)

// FixedPoint pins a point to a target location. The residual form has
// one component per axis so the solver sees independent gradients.
type FixedPoint struct {
	base   Base
	P      uuid.UUID
	Target [3]float64
}

// NewFixedPoint creates a fixed-position constraint.
func NewFixedPoint(name string, p uuid.UUID, target [3]float64) *FixedPoint {
	return &FixedPoint{base: newBase(TypeFixedPoint, name), P: p, Target: target}
}

func (c *FixedPoint) Base() *Base { return &c.base }

func (c *FixedPoint) RequiredEntityCounts() EntityCounts { return EntityCounts{Points: 1} }

func (c *FixedPoint) EntityIDs() []uuid.UUID { return []uuid.UUID{c.P} }

func (c *FixedPoint) Preload(repo scene.Repository) error {
	if !repo.PointExists(c.P) {
		return &MissingEntityError{Constraint: c.base.ID, Entity: c.P}
	}
	return nil
}

func (c *FixedPoint) Evaluate(repo scene.Repository) Evaluation {
	vs, ok := resolvePoints(repo, []uuid.UUID{c.P})
	if !ok {
		return c.base.unsatisfied(0)
	}
	dx := vs[0].X - c.Target[0]
	dy := vs[0].Y - c.Target[1]
	dz := vs[0].Z - c.Target[2]
	dist := math.Sqrt(dx*dx + dy*dy + dz*dz)
	return c.base.record(Evaluation{
		Satisfied: dist <= c.base.Tolerance,
		Value:     dist,
		Error:     dist,
	})
}

func (c *FixedPoint) Residuals(vm *scene.ValueMap) []autodiff.Value {
	p, ok := vm.Point(c.P)
	if !ok {
		return nil
	}
	return []autodiff.Value{
		p.X.AddConst(-c.Target[0]),
		p.Y.AddConst(-c.Target[1]),
		p.Z.AddConst(-c.Target[2]),
	}
}

func (c *FixedPoint) Validate(repo scene.Repository) []Issue {
	issues := c.base.validateCommon()
	if !repo.PointExists(c.P) {
		issues = append(issues, c.base.issue("points", "point %s does not exist", c.P))
	}
	return issues
}

func (c *FixedPoint) ToDTO() DTO {
	d := dtoFromBase(&c.base)
	d.Points = idsToStrings([]uuid.UUID{c.P})
	t := c.Target
	d.TargetXYZ = &t
	return d
}

func (c *FixedPoint) Clone() Constraint {
	return &FixedPoint{base: cloneBase(c.base), P: c.P, Target: c.Target}
}
