package scene

import (
	"github.com/google/uuid"

	"github.com/photoscene/photoscene/internal/autodiff"
)

// noParam marks an absent parameter slot (e.g. an undefined axis).
const noParam = -1

// param is one registered scalar: either a free variable with a slot in
// the solver's parameter vector, or a fixed constant.
type param struct {
	name  string
	value float64
	free  bool
	slot  int // index into the free-parameter vector, noParam if fixed
	apply func(float64)
}

type pointSlots struct {
	axis [3]int
}

type cameraSlots struct {
	pos  [3]int
	quat [4]int

	focal, aspect, ppx, ppy, skew int
	k1, k2, k3, p1, p2            int
}

// ValueMap is the ephemeral per-solve mapping from entities to their
// differentiable representation. Entities contribute parameters in
// registration order, and that order fixes the column ordering of the
// Jacobian: rebuilding the map from the same entities in the same order
// always produces the same variable layout.
//
// A ValueMap is built once per Solve call, carried through the
// iterations, and discarded afterwards. It is not safe for concurrent
// use.
type ValueMap struct {
	params   []param
	freeIdx  []int // param indices of free variables, in insertion order
	points   map[uuid.UUID]pointSlots
	cameras  map[uuid.UUID]*cameraSlots
	postStep []func(x []float64)

	tape *autodiff.Tape
	vals []autodiff.Value
}

// NewValueMap returns an empty map ready for contributions.
func NewValueMap() *ValueMap {
	return &ValueMap{
		points:  make(map[uuid.UUID]pointSlots),
		cameras: make(map[uuid.UUID]*cameraSlots),
	}
}

func (vm *ValueMap) addParam(name string, value float64, free bool, apply func(float64)) int {
	p := param{name: name, value: value, free: free, slot: noParam, apply: apply}
	if free {
		p.slot = len(vm.freeIdx)
	}
	vm.params = append(vm.params, p)
	idx := len(vm.params) - 1
	if free {
		vm.freeIdx = append(vm.freeIdx, idx)
	}
	return idx
}

func (vm *ValueMap) registerPoint(id uuid.UUID, slots [3]int) {
	vm.points[id] = pointSlots{axis: slots}
}

func (vm *ValueMap) registerCamera(id uuid.UUID, slots *cameraSlots) {
	vm.cameras[id] = slots
}

// freeSlot returns the free-vector slot of a registered parameter, or
// noParam if the parameter is fixed.
func (vm *ValueMap) freeSlot(paramIdx int) int {
	return vm.params[paramIdx].slot
}

// FreeCount returns the number of free variables.
func (vm *ValueMap) FreeCount() int { return len(vm.freeIdx) }

// VariableNames returns the free variable names in Jacobian column order.
func (vm *ValueMap) VariableNames() []string {
	names := make([]string, len(vm.freeIdx))
	for i, pi := range vm.freeIdx {
		names[i] = vm.params[pi].name
	}
	return names
}

// InitialValues returns the free variables' current values in slot order.
func (vm *ValueMap) InitialValues() []float64 {
	x := make([]float64, len(vm.freeIdx))
	for i, pi := range vm.freeIdx {
		x[i] = vm.params[pi].value
	}
	return x
}

// OnPostStep registers a hook run on the parameter vector after every
// accepted solver step. Cameras use this to restore the unit-quaternion
// invariant without exposing their slot layout.
func (vm *ValueMap) OnPostStep(fn func(x []float64)) {
	vm.postStep = append(vm.postStep, fn)
}

// PostStep runs the registered hooks on x.
func (vm *ValueMap) PostStep(x []float64) {
	for _, fn := range vm.postStep {
		fn(x)
	}
}

// Begin starts a fresh evaluation: a new tape is created and every
// parameter becomes a tape value: free parameters take their entry from
// x, fixed parameters their registered constant. Residual functions may
// only be called between Begin and the next Begin.
func (vm *ValueMap) Begin(x []float64) {
	vm.tape = autodiff.NewTape(4 * len(vm.params))
	if cap(vm.vals) < len(vm.params) {
		vm.vals = make([]autodiff.Value, len(vm.params))
	}
	vm.vals = vm.vals[:len(vm.params)]
	for i, p := range vm.params {
		if p.free {
			vm.vals[i] = vm.tape.Variable(x[p.slot])
		} else {
			vm.vals[i] = vm.tape.Constant(p.value)
		}
	}
}

// Tape returns the current evaluation's tape.
func (vm *ValueMap) Tape() *autodiff.Tape { return vm.tape }

// Constant records a constant on the current tape.
func (vm *ValueMap) Constant(v float64) autodiff.Value { return vm.tape.Constant(v) }

// Gradient differentiates one residual and returns ∂r/∂x over the free
// variables in slot order. The returned slice is freshly allocated.
func (vm *ValueMap) Gradient(r autodiff.Value) []float64 {
	vm.tape.Backward(r)
	g := make([]float64, len(vm.freeIdx))
	for i, pi := range vm.freeIdx {
		g[i] = vm.tape.Adjoint(vm.vals[pi])
	}
	return g
}

// Commit writes the solved values back through each free parameter's
// apply hook. Entities mark their own provenance in the hook; this is
// the only path by which the solver mutates entity state.
func (vm *ValueMap) Commit(x []float64) {
	for i, pi := range vm.freeIdx {
		vm.params[pi].value = x[i]
		if vm.params[pi].apply != nil {
			vm.params[pi].apply(x[i])
		}
	}
}

// Point returns the differentiable 3-vector of a contributed point; ok
// is false if the point was never contributed or has an undefined axis.
func (vm *ValueMap) Point(id uuid.UUID) (autodiff.Vec3, bool) {
	s, found := vm.points[id]
	if !found {
		return autodiff.Vec3{}, false
	}
	for _, pi := range s.axis {
		if pi == noParam {
			return autodiff.Vec3{}, false
		}
	}
	return autodiff.Vec3{
		X: vm.vals[s.axis[0]],
		Y: vm.vals[s.axis[1]],
		Z: vm.vals[s.axis[2]],
	}, true
}

// HasPoint reports whether the point was contributed with all axes
// defined.
func (vm *ValueMap) HasPoint(id uuid.UUID) bool {
	_, ok := vm.Point(id)
	return ok
}

// Camera returns the differentiable camera model for the current
// evaluation.
func (vm *ValueMap) Camera(id uuid.UUID) (*CameraModel, bool) {
	s, found := vm.cameras[id]
	if !found {
		return nil, false
	}
	return &CameraModel{
		Position: autodiff.Vec3{X: vm.vals[s.pos[0]], Y: vm.vals[s.pos[1]], Z: vm.vals[s.pos[2]]},
		QW:       vm.vals[s.quat[0]],
		QX:       vm.vals[s.quat[1]],
		QY:       vm.vals[s.quat[2]],
		QZ:       vm.vals[s.quat[3]],
		Focal:    vm.vals[s.focal],
		Aspect:   vm.vals[s.aspect],
		PPX:      vm.vals[s.ppx],
		PPY:      vm.vals[s.ppy],
		Skew:     vm.vals[s.skew],
		K1:       vm.vals[s.k1],
		K2:       vm.vals[s.k2],
		K3:       vm.vals[s.k3],
		P1:       vm.vals[s.p1],
		P2:       vm.vals[s.p2],
	}, true
}
