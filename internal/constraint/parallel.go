package constraint

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/photoscene/photoscene/internal/autodiff"
	"github.com/photoscene/photoscene/internal/scene"
)

// lineRefs caches the endpoint ids of referenced lines so residual
// evaluation does not resolve lines through the repository on every
// iteration. The cache is invalidated when the referenced lines change.
type lineRefs struct {
	ids    []uuid.UUID
	loaded bool
	ends   [][2]uuid.UUID
}

func (r *lineRefs) invalidate() {
	r.loaded = false
	r.ends = nil
}

func (r *lineRefs) preload(owner *Base, repo scene.Repository) error {
	ends := make([][2]uuid.UUID, len(r.ids))
	for i, id := range r.ids {
		l, found := repo.Line(id)
		if !found {
			return &MissingEntityError{Constraint: owner.ID, Entity: id}
		}
		ends[i] = [2]uuid.UUID{l.A, l.B}
	}
	r.ends = ends
	r.loaded = true
	return nil
}

// direction builds the differentiable direction of line i, ok false on
// any unresolvable endpoint.
func (r *lineRefs) direction(vm *scene.ValueMap, i int) (autodiff.Vec3, bool) {
	if !r.loaded {
		return autodiff.Vec3{}, false
	}
	a, okA := vm.Point(r.ends[i][0])
	b, okB := vm.Point(r.ends[i][1])
	if !okA || !okB {
		return autodiff.Vec3{}, false
	}
	return b.Sub(a), true
}

// Parallel constrains two lines to share a direction. The residual is
// the angle (in degrees) between the directions, folded to [0, 90] by
// taking the absolute dot product, so anti-parallel lines also satisfy.
type Parallel struct {
	base  Base
	lines lineRefs
}

// NewParallel creates a parallelism constraint between two lines.
func NewParallel(name string, l1, l2 uuid.UUID) *Parallel {
	return &Parallel{
		base:  newBase(TypeParallel, name),
		lines: lineRefs{ids: []uuid.UUID{l1, l2}},
	}
}

func (c *Parallel) Base() *Base { return &c.base }

func (c *Parallel) RequiredEntityCounts() EntityCounts { return EntityCounts{Lines: 2} }

func (c *Parallel) EntityIDs() []uuid.UUID { return cloneIDs(c.lines.ids) }

// SetLines retargets the constraint at a new pair of lines and drops
// the endpoint cache; Preload must run again before the next solve.
func (c *Parallel) SetLines(l1, l2 uuid.UUID) {
	c.lines.ids = []uuid.UUID{l1, l2}
	c.lines.invalidate()
	c.base.UpdatedAt = time.Now()
}

func (c *Parallel) Preload(repo scene.Repository) error {
	return c.lines.preload(&c.base, repo)
}

func (c *Parallel) Evaluate(repo scene.Repository) Evaluation {
	l1, ok1 := repo.Line(c.lines.ids[0])
	l2, ok2 := repo.Line(c.lines.ids[1])
	if !ok1 || !ok2 {
		return c.base.unsatisfied(0)
	}
	d1, ok1 := l1.Direction(repo)
	d2, ok2 := l2.Direction(repo)
	if !ok1 || !ok2 {
		return c.base.unsatisfied(0)
	}
	cos := math.Abs(d1.Dot(d2) / (d1.Norm() * d2.Norm()))
	if cos > 1 {
		cos = 1
	}
	dev := math.Acos(cos) * 180 / math.Pi
	return c.base.record(Evaluation{
		Satisfied: dev <= c.base.Tolerance,
		Value:     dev,
		Error:     dev,
	})
}

func (c *Parallel) Residuals(vm *scene.ValueMap) []autodiff.Value {
	d1, ok1 := c.lines.direction(vm, 0)
	d2, ok2 := c.lines.direction(vm, 1)
	if !ok1 || !ok2 {
		return nil
	}
	n1 := d1.Norm()
	n2 := d2.Norm()
	if n1.Float() < degenerateEps || n2.Float() < degenerateEps {
		return nil
	}
	cos := d1.Dot(d2).Div(n1.Mul(n2)).Abs()
	return []autodiff.Value{cos.Acos().MulConst(180 / math.Pi)}
}

func (c *Parallel) Validate(repo scene.Repository) []Issue {
	issues := c.base.validateCommon()
	issues = append(issues, validateLinePair(&c.base, repo, c.lines.ids)...)
	return issues
}

func (c *Parallel) ToDTO() DTO {
	d := dtoFromBase(&c.base)
	d.Lines = idsToStrings(c.lines.ids)
	return d
}

func (c *Parallel) Clone() Constraint {
	return &Parallel{base: cloneBase(c.base), lines: lineRefs{ids: cloneIDs(c.lines.ids)}}
}

func validateLinePair(b *Base, repo scene.Repository, ids []uuid.UUID) []Issue {
	var issues []Issue
	if len(ids) == 2 && ids[0] == ids[1] {
		issues = append(issues, b.issue("lines", "the two lines must be distinct"))
	}
	for _, id := range ids {
		if !repo.LineExists(id) {
			issues = append(issues, b.issue("lines", "line %s does not exist", id))
		}
	}
	return issues
}
