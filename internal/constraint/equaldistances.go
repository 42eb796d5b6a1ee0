package constraint

import (
	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/photoscene/photoscene/internal/autodiff"
	"github.com/photoscene/photoscene/internal/scene"
)

// EqualDistances constrains two or more point pairs to span the same
// length. The first pair anchors the shared length; every further pair
// contributes the difference of its length to the anchor as a residual.
type EqualDistances struct {
	base  Base
	pairs [][2]uuid.UUID
}

// NewEqualDistances creates an equal-distance constraint over the given
// point pairs.
func NewEqualDistances(name string, pairs ...[2]uuid.UUID) *EqualDistances {
	return &EqualDistances{
		base:  newBase(TypeEqualDistances, name),
		pairs: append([][2]uuid.UUID(nil), pairs...),
	}
}

func (c *EqualDistances) Base() *Base { return &c.base }

func (c *EqualDistances) RequiredEntityCounts() EntityCounts {
	return EntityCounts{Pairs: 2, Variadic: true}
}

func (c *EqualDistances) EntityIDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, 2*len(c.pairs))
	for _, p := range c.pairs {
		out = append(out, p[0], p[1])
	}
	return out
}

func (c *EqualDistances) Preload(repo scene.Repository) error {
	for _, pair := range c.pairs {
		for _, id := range pair {
			if !repo.PointExists(id) {
				return &MissingEntityError{Constraint: c.base.ID, Entity: id}
			}
		}
	}
	return nil
}

// Evaluate reports the standard deviation of the pair lengths, which is
// zero exactly when all lengths agree.
func (c *EqualDistances) Evaluate(repo scene.Repository) Evaluation {
	// stat.StdDev of fewer than two samples is NaN; a single pair has
	// nothing to compare against.
	if len(c.pairs) < 2 {
		return c.base.unsatisfied(0)
	}
	dists := make([]float64, len(c.pairs))
	for i, pair := range c.pairs {
		vs, ok := resolvePoints(repo, pair[:])
		if !ok {
			return c.base.unsatisfied(0)
		}
		dists[i] = vs[1].Sub(vs[0]).Norm()
	}
	spread := stat.StdDev(dists, nil)
	return c.base.record(Evaluation{
		Satisfied: spread <= c.base.Tolerance,
		Value:     spread,
		Error:     spread,
	})
}

func (c *EqualDistances) Residuals(vm *scene.ValueMap) []autodiff.Value {
	if len(c.pairs) < 2 {
		return nil
	}
	dists := make([]autodiff.Value, len(c.pairs))
	for i, pair := range c.pairs {
		a, okA := vm.Point(pair[0])
		b, okB := vm.Point(pair[1])
		if !okA || !okB {
			return nil
		}
		dists[i] = b.Sub(a).Norm()
	}
	out := make([]autodiff.Value, 0, len(dists)-1)
	for _, d := range dists[1:] {
		out = append(out, d.Sub(dists[0]))
	}
	return out
}

func (c *EqualDistances) Validate(repo scene.Repository) []Issue {
	issues := c.base.validateCommon()
	if len(c.pairs) < 2 {
		issues = append(issues, c.base.issue("pairs", "at least 2 point pairs required, got %d", len(c.pairs)))
	}
	for i, pair := range c.pairs {
		if pair[0] == pair[1] {
			issues = append(issues, c.base.issue("pairs", "pair %d references the same point twice", i))
		}
		for _, id := range pair {
			if !repo.PointExists(id) {
				issues = append(issues, c.base.issue("pairs", "point %s does not exist", id))
			}
		}
	}
	return issues
}

func (c *EqualDistances) ToDTO() DTO {
	d := dtoFromBase(&c.base)
	d.DistancePairs = pairsToStrings(c.pairs)
	return d
}

func (c *EqualDistances) Clone() Constraint {
	return &EqualDistances{base: cloneBase(c.base), pairs: append([][2]uuid.UUID(nil), c.pairs...)}
}
