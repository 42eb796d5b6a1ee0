package constraint

import (
	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/photoscene/photoscene/internal/autodiff"
	"github.com/photoscene/photoscene/internal/scene"
)

// EqualAngles constrains two or more vertex angles to be equal. Each
// triplet (A, V, C) measures the angle at its middle vertex V. The
// first triplet anchors the shared angle; every further triplet
// contributes the difference of its angle to the anchor as a residual.
type EqualAngles struct {
	base     Base
	triplets [][3]uuid.UUID
}

// NewEqualAngles creates an equal-angle constraint over the given
// point triplets.
func NewEqualAngles(name string, triplets ...[3]uuid.UUID) *EqualAngles {
	return &EqualAngles{
		base:     newBase(TypeEqualAngles, name),
		triplets: append([][3]uuid.UUID(nil), triplets...),
	}
}

func (c *EqualAngles) Base() *Base { return &c.base }

func (c *EqualAngles) RequiredEntityCounts() EntityCounts {
	return EntityCounts{Triplets: 2, Variadic: true}
}

func (c *EqualAngles) EntityIDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, 3*len(c.triplets))
	for _, t := range c.triplets {
		out = append(out, t[0], t[1], t[2])
	}
	return out
}

func (c *EqualAngles) Preload(repo scene.Repository) error {
	for _, t := range c.triplets {
		for _, id := range t {
			if !repo.PointExists(id) {
				return &MissingEntityError{Constraint: c.base.ID, Entity: id}
			}
		}
	}
	return nil
}

// Evaluate reports the standard deviation of the triplet angles in
// degrees.
func (c *EqualAngles) Evaluate(repo scene.Repository) Evaluation {
	// stat.StdDev of fewer than two samples is NaN; a single triplet
	// has nothing to compare against.
	if len(c.triplets) < 2 {
		return c.base.unsatisfied(0)
	}
	angles := make([]float64, len(c.triplets))
	for i, t := range c.triplets {
		vs, ok := resolvePoints(repo, t[:])
		if !ok {
			return c.base.unsatisfied(0)
		}
		angles[i] = angleDeg(vs[0], vs[1], vs[2])
	}
	spread := stat.StdDev(angles, nil)
	return c.base.record(Evaluation{
		Satisfied: spread <= c.base.Tolerance,
		Value:     spread,
		Error:     spread,
	})
}

func (c *EqualAngles) Residuals(vm *scene.ValueMap) []autodiff.Value {
	if len(c.triplets) < 2 {
		return nil
	}
	angles := make([]autodiff.Value, len(c.triplets))
	for i, t := range c.triplets {
		a, okA := vm.Point(t[0])
		v, okV := vm.Point(t[1])
		cc, okC := vm.Point(t[2])
		if !okA || !okV || !okC {
			return nil
		}
		ang, ok := angleValue(a, v, cc)
		if !ok {
			return nil
		}
		angles[i] = ang
	}
	out := make([]autodiff.Value, 0, len(angles)-1)
	for _, a := range angles[1:] {
		out = append(out, a.Sub(angles[0]))
	}
	return out
}

func (c *EqualAngles) Validate(repo scene.Repository) []Issue {
	issues := c.base.validateCommon()
	if len(c.triplets) < 2 {
		issues = append(issues, c.base.issue("triplets", "at least 2 point triplets required, got %d", len(c.triplets)))
	}
	for i, t := range c.triplets {
		if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
			issues = append(issues, c.base.issue("triplets", "triplet %d must reference three distinct points", i))
		}
		for _, id := range t {
			if !repo.PointExists(id) {
				issues = append(issues, c.base.issue("triplets", "point %s does not exist", id))
			}
		}
	}
	return issues
}

func (c *EqualAngles) ToDTO() DTO {
	d := dtoFromBase(&c.base)
	d.AngleTriplets = tripletsToStrings(c.triplets)
	return d
}

func (c *EqualAngles) Clone() Constraint {
	return &EqualAngles{base: cloneBase(c.base), triplets: append([][3]uuid.UUID(nil), c.triplets...)}
}
