package scene

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCamera returns a camera at the origin with identity rotation
// looking down +Z, focal 800, principal point (320, 240).
func testCamera() *Camera {
	c := NewCamera("test")
	c.Focal = 800
	c.PrincipalX = 320
	c.PrincipalY = 240
	return c
}

func TestProjectCenterPoint(t *testing.T) {
	c := testCamera()
	u, v, ok := c.Project(r3.Vector{X: 0, Y: 0, Z: 5})
	require.True(t, ok)
	assert.InDelta(t, 320, u, 1e-9)
	assert.InDelta(t, 240, v, 1e-9)
}

func TestProjectOffAxis(t *testing.T) {
	c := testCamera()
	// x/z = 0.1 → u = 320 + 800*0.1 = 400.
	u, v, ok := c.Project(r3.Vector{X: 1, Y: 0, Z: 10})
	require.True(t, ok)
	assert.InDelta(t, 400, u, 1e-9)
	assert.InDelta(t, 240, v, 1e-9)
}

func TestProjectBehindCameraFails(t *testing.T) {
	c := testCamera()
	_, _, ok := c.Project(r3.Vector{X: 0, Y: 0, Z: -5})
	assert.False(t, ok)

	_, _, ok = c.Project(r3.Vector{X: 1, Y: 1, Z: 0})
	assert.False(t, ok, "zero depth must be rejected")
}

func TestRadialDistortionShiftsProjection(t *testing.T) {
	c := testCamera()
	undistorted, _, ok := c.Project(r3.Vector{X: 2, Y: 0, Z: 10})
	require.True(t, ok)

	c.K1 = 0.1
	distorted, _, ok := c.Project(r3.Vector{X: 2, Y: 0, Z: 10})
	require.True(t, ok)

	// Positive k1 pushes points outward: r²=0.04, factor 1.004.
	assert.Greater(t, distorted, undistorted)
	assert.InDelta(t, 320+800*0.2*1.004, distorted, 1e-9)
}

func TestDifferentiableProjectionMatchesFloatPath(t *testing.T) {
	c := testCamera()
	c.K1, c.K2, c.P1, c.P2 = 0.02, -0.001, 0.0005, -0.0003
	c.Skew = 0.8
	c.Aspect = 1.05
	// Rotate 30° about Y and move the camera off-origin.
	ang := math.Pi / 6
	c.Rotation = [4]float64{math.Cos(ang / 2), 0, math.Sin(ang / 2), 0}
	c.Position = [3]float64{0.4, -0.2, 0.1}

	world := r3.Vector{X: 1.2, Y: 0.7, Z: 9.5}
	uf, vf, ok := c.Project(world)
	require.True(t, ok)

	vm := NewValueMap()
	c.Contribute(vm)
	p := NewWorldPointAt("p", world.X, world.Y, world.Z)
	p.Contribute(vm)
	vm.Begin(vm.InitialValues())

	cam, found := vm.Camera(c.ID)
	require.True(t, found)
	vec, found := vm.Point(p.ID)
	require.True(t, found)

	u, v, ok := cam.Project(vec)
	require.True(t, ok)
	assert.InDelta(t, uf, u.Float(), 1e-9)
	assert.InDelta(t, vf, v.Float(), 1e-9)
}

func TestProjectionGradientMatchesFiniteDifference(t *testing.T) {
	c := testCamera()
	c.LockPose = true
	world := r3.Vector{X: 1.5, Y: -0.5, Z: 8}

	p := NewWorldPointAt("p", world.X, world.Y, world.Z)
	vm := NewValueMap()
	c.Contribute(vm)
	p.Contribute(vm)
	require.Equal(t, 3, vm.FreeCount())

	x0 := vm.InitialValues()
	vm.Begin(x0)
	cam, _ := vm.Camera(c.ID)
	vec, _ := vm.Point(p.ID)
	u, _, ok := cam.Project(vec)
	require.True(t, ok)
	g := vm.Gradient(u)

	const h = 1e-6
	for i := 0; i < 3; i++ {
		xp := append([]float64(nil), x0...)
		xp[i] += h
		up, _, _ := c.Project(r3.Vector{X: xp[0], Y: xp[1], Z: xp[2]})
		xm := append([]float64(nil), x0...)
		xm[i] -= h
		um, _, _ := c.Project(r3.Vector{X: xm[0], Y: xm[1], Z: xm[2]})
		assert.InDelta(t, (up-um)/(2*h), g[i], 1e-4, "axis %d", i)
	}
}

func TestObservationResidualZeroAtExactProjection(t *testing.T) {
	c := testCamera()
	c.LockPose = true
	world := r3.Vector{X: 0.5, Y: 0.25, Z: 4}
	u, v, ok := c.Project(world)
	require.True(t, ok)

	p := NewWorldPointAt("p", world.X, world.Y, world.Z)
	obs := NewObservation(c.ID, p.ID, u, v)

	vm := NewValueMap()
	c.Contribute(vm)
	p.Contribute(vm)
	vm.Begin(vm.InitialValues())

	rs := obs.Residuals(vm)
	require.Len(t, rs, 2)
	assert.InDelta(t, 0, rs[0].Float(), 1e-9)
	assert.InDelta(t, 0, rs[1].Float(), 1e-9)
}

func TestObservationSentinelBehindCamera(t *testing.T) {
	c := testCamera()
	p := NewWorldPointAt("p", 0, 0, -3)
	obs := NewObservation(c.ID, p.ID, 100, 100)

	vm := NewValueMap()
	c.Contribute(vm)
	p.Contribute(vm)
	vm.Begin(vm.InitialValues())

	rs := obs.Residuals(vm)
	require.Len(t, rs, 2)
	assert.Equal(t, SentinelResidual, rs[0].Float())
	assert.False(t, math.IsInf(rs[1].Float(), 0))
}
