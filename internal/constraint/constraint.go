// Package constraint implements the geometric constraint variants of a
// photogrammetric project. Every variant offers two views of the same
// predicate: a cheap float-based Evaluate for status display, and a
// differentiable Residuals for the solver, produced against the
// per-solve ValueMap.
package constraint

import (
	"fmt"
	"math"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"

	"github.com/photoscene/photoscene/internal/autodiff"
	"github.com/photoscene/photoscene/internal/scene"
)

// Type tags the closed set of constraint variants.
type Type string

const (
	TypeDistance       Type = "distance"
	TypeAngle          Type = "angle"
	TypeParallel       Type = "parallel"
	TypePerpendicular  Type = "perpendicular"
	TypeFixedPoint     Type = "fixed_point"
	TypeCollinear      Type = "collinear"
	TypeCoplanar       Type = "coplanar"
	TypeEqualDistances Type = "equal_distances"
	TypeEqualAngles    Type = "equal_angles"
)

// Valid reports whether t is a known constraint type.
func (t Type) Valid() bool {
	switch t {
	case TypeDistance, TypeAngle, TypeParallel, TypePerpendicular,
		TypeFixedPoint, TypeCollinear, TypeCoplanar,
		TypeEqualDistances, TypeEqualAngles:
		return true
	}
	return false
}

// Status is the display state of a constraint after evaluation.
type Status string

const (
	StatusSatisfied Status = "satisfied"
	StatusViolated  Status = "violated"
	StatusWarning   Status = "warning"
	StatusDisabled  Status = "disabled"
)

// warningFactor widens the tolerance band for the warning status: a
// violated constraint whose error is within warningFactor×tolerance is
// reported as a warning rather than a violation.
const warningFactor = 2.0

// degenerateEps guards normalizations inside residual functions.
const degenerateEps = 1e-12

// Evaluation is the result of the fast, non-differentiable check.
type Evaluation struct {
	Satisfied bool
	Value     float64 // the measured quantity (distance, angle, ...)
	Error     float64 // deviation from the target
}

// EntityCounts describes how many entities of each kind a constraint
// type requires. Variadic types state a minimum.
type EntityCounts struct {
	Points   int
	Lines    int
	Pairs    int
	Triplets int
	Variadic bool
}

// Base carries the fields shared by every constraint variant.
type Base struct {
	ID        uuid.UUID
	Name      string
	Type      Type
	Status    Status
	Priority  int // metadata only, 1..10; does not weight residuals
	Tolerance float64
	Enabled   bool
	Driving   bool
	Group     string
	Tags      []string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Cached from the last Evaluate call.
	CurrentValue float64
	Err          float64
}

func newBase(t Type, name string) Base {
	now := time.Now()
	return Base{
		ID:        uuid.New(),
		Name:      name,
		Type:      t,
		Status:    StatusViolated,
		Priority:  5,
		Tolerance: 1e-6,
		Enabled:   true,
		Driving:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// record caches an evaluation on the base and derives the status.
func (b *Base) record(eval Evaluation) Evaluation {
	b.CurrentValue = eval.Value
	b.Err = eval.Error
	switch {
	case !b.Enabled:
		b.Status = StatusDisabled
	case eval.Satisfied:
		b.Status = StatusSatisfied
	case eval.Error <= warningFactor*b.Tolerance:
		b.Status = StatusWarning
	default:
		b.Status = StatusViolated
	}
	return eval
}

// unsatisfied caches and returns a failed evaluation (missing entities,
// undefined coordinates, degenerate geometry).
func (b *Base) unsatisfied(errVal float64) Evaluation {
	return b.record(Evaluation{Satisfied: false, Value: 0, Error: errVal})
}

// validateCommon checks the fields every variant shares.
func (b *Base) validateCommon() []Issue {
	var issues []Issue
	if b.Tolerance < 0 {
		issues = append(issues, Issue{
			ConstraintID:   b.ID,
			ConstraintName: b.Name,
			Field:          "tolerance",
			Message:        fmt.Sprintf("tolerance must be >= 0, got %g", b.Tolerance),
		})
	}
	if b.Priority < 1 || b.Priority > 10 {
		issues = append(issues, Issue{
			ConstraintID:   b.ID,
			ConstraintName: b.Name,
			Field:          "priority",
			Message:        fmt.Sprintf("priority must be in [1, 10], got %d", b.Priority),
		})
	}
	return issues
}

func (b *Base) issue(field, format string, args ...interface{}) Issue {
	return Issue{
		ConstraintID:   b.ID,
		ConstraintName: b.Name,
		Field:          field,
		Message:        fmt.Sprintf(format, args...),
	}
}

// Constraint is the polymorphic surface shared by all variants. The set
// of implementations is closed; FromDTO enumerates it.
type Constraint interface {
	// Base exposes the shared fields for mutation and inspection.
	Base() *Base

	// RequiredEntityCounts returns the variant's entity cardinality.
	RequiredEntityCounts() EntityCounts

	// EntityIDs lists every entity the constraint references, for the
	// repository's reverse index.
	EntityIDs() []uuid.UUID

	// Preload resolves and caches entity references so that repeated
	// residual evaluation does not hit the repository each iteration.
	Preload(repo scene.Repository) error

	// Evaluate computes the fast non-differentiable check and caches
	// value, error, and status on the base.
	Evaluate(repo scene.Repository) Evaluation

	// Residuals returns the differentiable residual values for the
	// current ValueMap evaluation, or nil when a required entity is
	// unavailable.
	Residuals(vm *scene.ValueMap) []autodiff.Value

	// Validate reports structural problems (cardinality, missing or
	// duplicate references, bad parameters). It never touches geometry.
	Validate(repo scene.Repository) []Issue

	// ToDTO converts the constraint to its transfer representation.
	ToDTO() DTO

	// Clone returns a deep copy with the same identity.
	Clone() Constraint
}

// resolvePoints fetches fully defined point vectors for the given ids.
// ok is false if any point is missing or has an undefined axis.
func resolvePoints(repo scene.Repository, ids []uuid.UUID) ([]r3.Vector, bool) {
	out := make([]r3.Vector, len(ids))
	for i, id := range ids {
		p, found := repo.Point(id)
		if !found {
			return nil, false
		}
		v, defined := p.Vector()
		if !defined {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// angleDeg returns the angle at vertex v formed by a and c, in degrees.
// A zero-length leg yields 0, matching the display convention for
// degenerate configurations.
func angleDeg(a, v, c r3.Vector) float64 {
	u := a.Sub(v)
	w := c.Sub(v)
	nu, nw := u.Norm(), w.Norm()
	if nu < degenerateEps || nw < degenerateEps {
		return 0
	}
	cos := u.Dot(w) / (nu * nw)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos) * 180 / math.Pi
}

// angleValue builds the differentiable angle at vertex v in degrees.
// ok is false when a leg is degenerate at the current forward values.
func angleValue(a, v, c autodiff.Vec3) (autodiff.Value, bool) {
	u := a.Sub(v)
	w := c.Sub(v)
	nu := u.Norm()
	nw := w.Norm()
	if nu.Float() < degenerateEps || nw.Float() < degenerateEps {
		return autodiff.Value{}, false
	}
	cos := u.Dot(w).Div(nu.Mul(nw))
	return cos.Acos().MulConst(180 / math.Pi), true
}

func cloneBase(b Base) Base {
	out := b
	out.Tags = append([]string(nil), b.Tags...)
	return out
}

func cloneIDs(ids []uuid.UUID) []uuid.UUID {
	return append([]uuid.UUID(nil), ids...)
}
