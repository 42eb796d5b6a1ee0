package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointContributionLockedAxes(t *testing.T) {
	p := NewWorldPointAt("p", 1, 2, 3)
	p.Lock(AxisY, true)

	vm := NewValueMap()
	p.Contribute(vm)

	assert.Equal(t, 2, vm.FreeCount())
	assert.Equal(t, []float64{1, 3}, vm.InitialValues())
}

func TestPointContributionUndefinedAxis(t *testing.T) {
	p := NewWorldPoint("p")
	p.SetCoord(AxisX, 5)
	p.SetCoord(AxisY, 6)

	vm := NewValueMap()
	p.Contribute(vm)
	vm.Begin(vm.InitialValues())

	_, ok := vm.Point(p.ID)
	assert.False(t, ok, "a point with an undefined axis must not resolve")
}

func TestVariableOrderIsInsertionOrder(t *testing.T) {
	a := NewWorldPointAt("a", 0, 0, 0)
	b := NewWorldPointAt("b", 1, 1, 1)

	vm := NewValueMap()
	a.Contribute(vm)
	b.Contribute(vm)

	names := vm.VariableNames()
	require.Len(t, names, 6)
	assert.Contains(t, names[0], a.ID.String())
	assert.Contains(t, names[3], b.ID.String())

	// Rebuilding from the same entities yields the same layout.
	vm2 := NewValueMap()
	a.Contribute(vm2)
	b.Contribute(vm2)
	assert.Equal(t, names, vm2.VariableNames())
}

func TestGradientOverFreeVariables(t *testing.T) {
	p := NewWorldPointAt("p", 3, 4, 0)

	vm := NewValueMap()
	p.Contribute(vm)
	vm.Begin(vm.InitialValues())

	vec, ok := vm.Point(p.ID)
	require.True(t, ok)
	norm := vec.Norm()

	g := vm.Gradient(norm)
	require.Len(t, g, 3)
	assert.InDelta(t, 0.6, g[0], 1e-12)
	assert.InDelta(t, 0.8, g[1], 1e-12)
	assert.InDelta(t, 0.0, g[2], 1e-12)
}

func TestLockedAxisExcludedFromGradient(t *testing.T) {
	p := NewWorldPointAt("p", 3, 4, 0)
	p.Lock(AxisX, true)

	vm := NewValueMap()
	p.Contribute(vm)
	require.Equal(t, 2, vm.FreeCount())

	vm.Begin(vm.InitialValues())
	vec, ok := vm.Point(p.ID)
	require.True(t, ok)

	g := vm.Gradient(vec.Norm())
	require.Len(t, g, 2)
	assert.InDelta(t, 0.8, g[0], 1e-12) // y column comes first now
}

func TestCommitWritesBackAndMarksProvenance(t *testing.T) {
	p := NewWorldPointAt("p", 1, 2, 3)
	require.Equal(t, ProvenanceUser, p.Source)

	vm := NewValueMap()
	p.Contribute(vm)
	vm.Commit([]float64{10, 20, 30})

	x, _ := p.Coord(AxisX)
	y, _ := p.Coord(AxisY)
	z, _ := p.Coord(AxisZ)
	assert.Equal(t, 10.0, x)
	assert.Equal(t, 20.0, y)
	assert.Equal(t, 30.0, z)
	assert.Equal(t, ProvenanceOptimized, p.Source)
}

func TestCameraPostStepNormalizesQuaternion(t *testing.T) {
	c := NewCamera("cam")
	require.False(t, c.LockPose)

	vm := NewValueMap()
	c.Contribute(vm)

	x := vm.InitialValues()
	// Perturb the quaternion entries (slots 3..6 follow the position).
	x[3], x[4], x[5], x[6] = 2, 0, 0, 0
	vm.PostStep(x)

	assert.InDelta(t, 1.0, x[3], 1e-12)
	assert.Equal(t, 0.0, x[4])
}

func TestLockedCameraContributesNoVariables(t *testing.T) {
	c := NewCamera("cam")
	c.LockPose = true

	vm := NewValueMap()
	c.Contribute(vm)
	assert.Equal(t, 0, vm.FreeCount())
}

func TestCameraRotationCommitMarksProvenance(t *testing.T) {
	c := NewCamera("cam")
	require.Equal(t, ProvenanceUser, c.Source)
	require.False(t, c.LockPose)

	vm := NewValueMap()
	c.Contribute(vm)

	// Rotate 180 degrees about Z, leaving the position where it was.
	x := vm.InitialValues()
	x[3], x[4], x[5], x[6] = 0, 0, 0, 1
	vm.Commit(x)

	assert.Equal(t, [4]float64{0, 0, 0, 1}, c.Rotation)
	assert.Equal(t, ProvenanceOptimized, c.Source)
}
