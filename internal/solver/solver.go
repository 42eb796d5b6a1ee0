// Package solver implements the damped Gauss-Newton loop that adjusts
// the free variables of a constraint system until the stacked residual
// vector is minimized. Each iteration linearizes the residuals with
// reverse-mode differentiation and solves the Levenberg-Marquardt
// normal equations.
package solver

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/photoscene/photoscene/internal/constraint"
	"github.com/photoscene/photoscene/internal/scene"
)

// State tracks where a system is in its solve lifecycle.
type State string

const (
	StateIdle          State = "idle"
	StateBuilding      State = "building"
	StateIterating     State = "iterating"
	StateConverged     State = "converged"
	StateMaxIterations State = "max_iterations"
	StateDiverged      State = "diverged"
	StateDone          State = "done"
)

// Options configures a solve.
type Options struct {
	// Tolerance is the residual norm below which the system counts as
	// converged.
	Tolerance float64
	// MaxIterations bounds the iteration loop. There is no other
	// cancellation mechanism inside a solve.
	MaxIterations int
	// Damping is the initial Levenberg-Marquardt lambda.
	Damping float64
	// Verbose enables per-iteration logging.
	Verbose bool
	// Logger receives solve progress. Defaults to a nop logger.
	Logger *zap.Logger
}

// DefaultOptions returns the solver defaults.
func DefaultOptions() Options {
	return Options{
		Tolerance:     1e-6,
		MaxIterations: 100,
		Damping:       1e-3,
	}
}

// Result is the terminal output of one solve.
type Result struct {
	Converged  bool    `json:"converged"`
	Iterations int     `json:"iterations"`
	Residual   float64 `json:"residual"`
	Error      string  `json:"error,omitempty"`
	// History holds the residual norm before iterating and after each
	// accepted step.
	History []float64 `json:"residualHistory,omitempty"`
}

// lambdaMax bounds damping escalation; past this the step direction is
// numerically meaningless and the solve is declared diverged.
const lambdaMax = 1e12

// stepEps is the squared-step threshold below which the iteration has
// stalled.
const stepEps = 1e-14

// System collects the participants of one solve. It is single use:
// register entities, constraints, and observations, then call Solve
// once. The solver owns write access to the registered entities for
// the duration of the call and mutates them only through the
// ValueMap's apply hooks.
type System struct {
	repo scene.Repository
	opts Options
	log  *zap.Logger

	points       []*scene.WorldPoint
	cameras      []*scene.Camera
	constraints  []constraint.Constraint
	observations []*scene.Observation

	state State
}

// New creates a system resolving entity references through repo.
func New(repo scene.Repository, opts Options) *System {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultOptions().MaxIterations
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultOptions().Tolerance
	}
	if opts.Damping <= 0 {
		opts.Damping = DefaultOptions().Damping
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &System{repo: repo, opts: opts, log: log, state: StateIdle}
}

// AddPoint registers a point whose free axes participate in the solve.
func (s *System) AddPoint(p *scene.WorldPoint) { s.points = append(s.points, p) }

// AddCamera registers a camera whose free parameters participate in
// the solve.
func (s *System) AddCamera(c *scene.Camera) { s.cameras = append(s.cameras, c) }

// AddConstraint registers a constraint. Disabled constraints are kept
// but contribute no residuals.
func (s *System) AddConstraint(c constraint.Constraint) {
	s.constraints = append(s.constraints, c)
}

// AddObservation registers an image observation.
func (s *System) AddObservation(o *scene.Observation) {
	s.observations = append(s.observations, o)
}

// State returns the current lifecycle state.
func (s *System) State() State { return s.state }

// Validate runs structural validation over the registered constraints.
// A non-empty report means Solve should not be attempted.
func (s *System) Validate() *constraint.Report {
	report := constraint.NewReport()
	for _, c := range s.constraints {
		report.Add(c.Validate(s.repo)...)
	}
	return report
}

// active returns the constraints that contribute residuals.
func (s *System) active() []constraint.Constraint {
	out := make([]constraint.Constraint, 0, len(s.constraints))
	for _, c := range s.constraints {
		if c.Base().Enabled && c.Base().Driving {
			out = append(out, c)
		}
	}
	return out
}

// residuals stacks the residual values of every active constraint and
// observation for the current ValueMap evaluation. Constraint order
// then observation order fixes the row order of the Jacobian.
func (s *System) residuals(vm *scene.ValueMap, active []constraint.Constraint) []float64 {
	var r []float64
	for _, c := range active {
		for _, v := range c.Residuals(vm) {
			r = append(r, v.Float())
		}
	}
	for _, o := range s.observations {
		for _, v := range o.Residuals(vm) {
			r = append(r, v.Float())
		}
	}
	return r
}

// linearize evaluates the residual vector and its Jacobian at x.
func (s *System) linearize(vm *scene.ValueMap, active []constraint.Constraint, x []float64) (r []float64, jac *mat.Dense) {
	vm.Begin(x)
	var rows [][]float64
	for _, c := range active {
		for _, v := range c.Residuals(vm) {
			r = append(r, v.Float())
			rows = append(rows, vm.Gradient(v))
		}
	}
	for _, o := range s.observations {
		for _, v := range o.Residuals(vm) {
			r = append(r, v.Float())
			rows = append(rows, vm.Gradient(v))
		}
	}
	n := vm.FreeCount()
	jac = mat.NewDense(max(len(r), 1), n, nil)
	for i, row := range rows {
		jac.SetRow(i, row)
	}
	return r, jac
}

// Solve runs the damped Gauss-Newton loop to completion. It never
// panics; numeric trouble is absorbed by damping and surfaces at worst
// as a non-converged result.
func (s *System) Solve() Result {
	s.state = StateBuilding

	vm := scene.NewValueMap()
	for _, p := range s.points {
		p.Contribute(vm)
	}
	for _, c := range s.cameras {
		c.Contribute(vm)
	}

	active := s.active()
	for _, c := range active {
		if err := c.Preload(s.repo); err != nil {
			s.state = StateDone
			return Result{Error: err.Error()}
		}
	}

	x := vm.InitialValues()
	n := vm.FreeCount()

	// A fully fixed system is trivially final: report the static
	// residual without stepping.
	if n == 0 {
		vm.Begin(nil)
		norm := floats.Norm(s.residuals(vm, active), 2)
		s.state = StateDone
		return Result{Converged: norm < s.opts.Tolerance, Iterations: 0, Residual: norm}
	}

	s.log.Debug("solve starting",
		zap.Int("freeVariables", n),
		zap.Int("constraints", len(active)),
		zap.Int("observations", len(s.observations)),
	)

	s.state = StateIterating
	lambda := s.opts.Damping

	r, jac := s.linearize(vm, active, x)
	norm := floats.Norm(r, 2)

	best := append([]float64(nil), x...)
	bestNorm := norm
	history := []float64{norm}

	iterations := 0
	for iterations < s.opts.MaxIterations {
		if norm < s.opts.Tolerance {
			s.state = StateConverged
			break
		}
		if math.IsNaN(norm) || math.IsInf(norm, 0) {
			s.state = StateDiverged
			break
		}
		iterations++

		delta, ok := s.step(jac, r, lambda, n)
		if !ok {
			// Singular normal equations: stiffen and retry.
			lambda *= 10
			if lambda > lambdaMax {
				s.state = StateDiverged
				break
			}
			continue
		}

		xNew := make([]float64, n)
		floats.AddTo(xNew, x, delta)
		vm.PostStep(xNew)

		vm.Begin(xNew)
		newNorm := floats.Norm(s.residuals(vm, active), 2)

		if s.opts.Verbose {
			s.log.Info("iteration",
				zap.Int("iteration", iterations),
				zap.Float64("residual", newNorm),
				zap.Float64("lambda", lambda),
			)
		}

		if newNorm < norm {
			x = xNew
			norm = newNorm
			history = append(history, norm)
			lambda = math.Max(lambda*0.3, 1e-12)
			if norm < bestNorm {
				bestNorm = norm
				copy(best, x)
			}
			if floats.Dot(delta, delta) < stepEps {
				break
			}
			r, jac = s.linearize(vm, active, x)
			continue
		}

		// Worse step: reject, stiffen, retry from x.
		lambda *= 10
		if lambda > lambdaMax {
			s.state = StateDiverged
			break
		}
	}

	if s.state == StateIterating {
		if norm < s.opts.Tolerance {
			s.state = StateConverged
		} else {
			s.state = StateMaxIterations
		}
	}

	vm.Commit(best)
	converged := s.state == StateConverged || bestNorm < s.opts.Tolerance

	s.log.Debug("solve finished",
		zap.String("state", string(s.state)),
		zap.Bool("converged", converged),
		zap.Int("iterations", iterations),
		zap.Float64("residual", bestNorm),
	)

	result := Result{Converged: converged, Iterations: iterations, Residual: bestNorm, History: history}
	if s.state == StateDiverged {
		result.Error = "solve diverged"
	}
	s.state = StateDone
	return result
}

// step solves the damped normal equations (JᵀJ + λI)Δ = −Jᵀr. ok is
// false when the damped system is still not positive definite.
func (s *System) step(jac *mat.Dense, r []float64, lambda float64, n int) ([]float64, bool) {
	var jtj mat.Dense
	jtj.Mul(jac.T(), jac)

	a := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := jtj.At(i, j)
			if i == j {
				v += lambda
			}
			a.SetSym(i, j, v)
		}
	}

	rVec := mat.NewVecDense(len(r), r)
	var jtr mat.VecDense
	jtr.MulVec(jac.T(), rVec)

	var chol mat.Cholesky
	if !chol.Factorize(a) {
		return nil, false
	}
	var delta mat.VecDense
	if err := chol.SolveVecTo(&delta, &jtr); err != nil {
		return nil, false
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = -delta.AtVec(i)
	}
	return out, true
}
