package constraint

import (
	"math"

	"github.com/google/uuid"

	"github.com/photoscene/photoscene/internal/autodiff"
	"github.com/photoscene/photoscene/internal/scene"
)

// Angle constrains the angle at vertex V formed by points A and C to a
// target value in degrees.
type Angle struct {
	base    Base
	A, V, C uuid.UUID
	Target  float64 // degrees
}

// NewAngle creates an angle constraint; target is in degrees.
func NewAngle(name string, a, v, c uuid.UUID, target float64) *Angle {
	return &Angle{base: newBase(TypeAngle, name), A: a, V: v, C: c, Target: target}
}

func (c *Angle) Base() *Base { return &c.base }

func (c *Angle) RequiredEntityCounts() EntityCounts { return EntityCounts{Points: 3} }

func (c *Angle) EntityIDs() []uuid.UUID { return []uuid.UUID{c.A, c.V, c.C} }

func (c *Angle) Preload(repo scene.Repository) error {
	for _, id := range c.EntityIDs() {
		if !repo.PointExists(id) {
			return &MissingEntityError{Constraint: c.base.ID, Entity: id}
		}
	}
	return nil
}

func (c *Angle) Evaluate(repo scene.Repository) Evaluation {
	vs, ok := resolvePoints(repo, c.EntityIDs())
	if !ok {
		return c.base.unsatisfied(0)
	}
	angle := angleDeg(vs[0], vs[1], vs[2])
	err := math.Abs(angle - c.Target)
	return c.base.record(Evaluation{
		Satisfied: err <= c.base.Tolerance,
		Value:     angle,
		Error:     err,
	})
}

func (c *Angle) Residuals(vm *scene.ValueMap) []autodiff.Value {
	a, okA := vm.Point(c.A)
	v, okV := vm.Point(c.V)
	cc, okC := vm.Point(c.C)
	if !okA || !okV || !okC {
		return nil
	}
	angle, ok := angleValue(a, v, cc)
	if !ok {
		return nil
	}
	return []autodiff.Value{angle.AddConst(-c.Target)}
}

func (c *Angle) Validate(repo scene.Repository) []Issue {
	issues := c.base.validateCommon()
	if c.A == c.V || c.C == c.V || c.A == c.C {
		issues = append(issues, c.base.issue("points", "angle points must be three distinct points"))
	}
	for _, id := range c.EntityIDs() {
		if !repo.PointExists(id) {
			issues = append(issues, c.base.issue("points", "point %s does not exist", id))
		}
	}
	if c.Target < 0 || c.Target > 180 {
		issues = append(issues, c.base.issue("targetAngle", "target angle must be in [0, 180] degrees, got %g", c.Target))
	}
	return issues
}

func (c *Angle) ToDTO() DTO {
	d := dtoFromBase(&c.base)
	d.Points = idsToStrings(c.EntityIDs())
	t := c.Target
	d.TargetAngle = &t
	return d
}

func (c *Angle) Clone() Constraint {
	return &Angle{base: cloneBase(c.base), A: c.A, V: c.V, C: c.C, Target: c.Target}
}
