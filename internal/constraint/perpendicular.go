package constraint

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/photoscene/photoscene/internal/autodiff"
	"github.com/photoscene/photoscene/internal/scene"
)

// Perpendicular constrains two lines to meet at a right angle. The
// measured quantity is |d̂1·d̂2|, which is zero exactly when the
// directions are orthogonal.
type Perpendicular struct {
	base  Base
	lines lineRefs
}

// NewPerpendicular creates a perpendicularity constraint between two
// lines.
func NewPerpendicular(name string, l1, l2 uuid.UUID) *Perpendicular {
	return &Perpendicular{
		base:  newBase(TypePerpendicular, name),
		lines: lineRefs{ids: []uuid.UUID{l1, l2}},
	}
}

func (c *Perpendicular) Base() *Base { return &c.base }

func (c *Perpendicular) RequiredEntityCounts() EntityCounts { return EntityCounts{Lines: 2} }

func (c *Perpendicular) EntityIDs() []uuid.UUID { return cloneIDs(c.lines.ids) }

// SetLines retargets the constraint at a new pair of lines and drops
// the endpoint cache; Preload must run again before the next solve.
func (c *Perpendicular) SetLines(l1, l2 uuid.UUID) {
	c.lines.ids = []uuid.UUID{l1, l2}
	c.lines.invalidate()
	c.base.UpdatedAt = time.Now()
}

func (c *Perpendicular) Preload(repo scene.Repository) error {
	return c.lines.preload(&c.base, repo)
}

func (c *Perpendicular) Evaluate(repo scene.Repository) Evaluation {
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
	dot := math.Abs(d1.Dot(d2) / (d1.Norm() * d2.Norm()))
	return c.base.record(Evaluation{
		Satisfied: dot <= c.base.Tolerance,
		Value:     dot,
		Error:     dot,
	})
}

func (c *Perpendicular) Residuals(vm *scene.ValueMap) []autodiff.Value {
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
	return []autodiff.Value{d1.Dot(d2).Div(n1.Mul(n2)).Abs()}
}

func (c *Perpendicular) Validate(repo scene.Repository) []Issue {
	issues := c.base.validateCommon()
	issues = append(issues, validateLinePair(&c.base, repo, c.lines.ids)...)
	return issues
}

func (c *Perpendicular) ToDTO() DTO {
	d := dtoFromBase(&c.base)
	d.Lines = idsToStrings(c.lines.ids)
	return d
}

func (c *Perpendicular) Clone() Constraint {
	return &Perpendicular{base: cloneBase(c.base), lines: lineRefs{ids: cloneIDs(c.lines.ids)}}
}
