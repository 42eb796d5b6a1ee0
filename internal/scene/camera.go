package scene

import (
	"fmt"
	"math"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
)

// minDepth is the smallest camera-space depth the projection accepts.
// Points at or behind the image plane produce sentinel residuals.
const minDepth = 1e-9

// SentinelResidual is the finite magnitude reported for degenerate
// projections instead of NaN or infinity.
const SentinelResidual = 1e6

// Camera is a viewpoint with a pinhole projection model and
// Brown–Conrady lens distortion. Rotation is a unit quaternion (w,x,y,z)
// mapping camera-frame vectors into the world frame; the norm invariant
// is restored after every solver step.
//
// Each parameter group is independently lockable. A freshly constructed
// camera has a free pose and locked intrinsics, which matches the common
// case of a pre-calibrated lens on an unknown mount.
type Camera struct {
	ID        uuid.UUID
	Name      string
	Source    Provenance
	CreatedAt time.Time
	UpdatedAt time.Time

	Position [3]float64
	Rotation [4]float64 // w, x, y, z

	Focal      float64
	Aspect     float64
	PrincipalX float64
	PrincipalY float64
	Skew       float64

	K1, K2, K3 float64 // radial
	P1, P2     float64 // tangential

	LockPose       bool
	LockFocal      bool
	LockAspect     bool
	LockPrincipal  bool
	LockSkew       bool
	LockDistortion bool
}

// NewCamera creates a camera at the origin looking down +Z with unit
// focal length, identity rotation, and all intrinsics locked.
func NewCamera(name string) *Camera {
	now := time.Now()
	return &Camera{
		ID:             uuid.New(),
		Name:           name,
		Source:         ProvenanceUser,
		CreatedAt:      now,
		UpdatedAt:      now,
		Rotation:       [4]float64{1, 0, 0, 0},
		Focal:          1,
		Aspect:         1,
		LockFocal:      true,
		LockAspect:     true,
		LockPrincipal:  true,
		LockSkew:       true,
		LockDistortion: true,
	}
}

// NormalizeRotation rescales the quaternion to unit norm. A zero
// quaternion is reset to identity.
func (c *Camera) NormalizeRotation() {
	n := math.Sqrt(c.Rotation[0]*c.Rotation[0] + c.Rotation[1]*c.Rotation[1] +
		c.Rotation[2]*c.Rotation[2] + c.Rotation[3]*c.Rotation[3])
	if n == 0 {
		c.Rotation = [4]float64{1, 0, 0, 0}
		return
	}
	for i := range c.Rotation {
		c.Rotation[i] /= n
	}
}

// rotationMatrix returns the world-from-camera rotation of the (assumed
// unit) quaternion.
func (c *Camera) rotationMatrix() [3][3]float64 {
	w, x, y, z := c.Rotation[0], c.Rotation[1], c.Rotation[2], c.Rotation[3]
	return [3][3]float64{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
	}
}

// Project maps a world point to pixel coordinates using plain float
// arithmetic. It is the fast, non-differentiable twin of the ValueMap
// projection, used for status display and reporting. ok is false when
// the point is at or behind the image plane.
func (c *Camera) Project(p r3.Vector) (u, v float64, ok bool) {
	m := c.rotationMatrix()
	dx := p.X - c.Position[0]
	dy := p.Y - c.Position[1]
	dz := p.Z - c.Position[2]

	// Camera-space coordinates via the transposed (inverse) rotation.
	xc := m[0][0]*dx + m[1][0]*dy + m[2][0]*dz
	yc := m[0][1]*dx + m[1][1]*dy + m[2][1]*dz
	zc := m[0][2]*dx + m[1][2]*dy + m[2][2]*dz

	if zc < minDepth {
		return 0, 0, false
	}

	xn := xc / zc
	yn := yc / zc
	r2 := xn*xn + yn*yn
	radial := 1 + c.K1*r2 + c.K2*r2*r2 + c.K3*r2*r2*r2
	xd := xn*radial + 2*c.P1*xn*yn + c.P2*(r2+2*xn*xn)
	yd := yn*radial + c.P1*(r2+2*yn*yn) + 2*c.P2*xn*yn

	u = c.Focal*xd + c.Skew*yd + c.PrincipalX
	v = c.Focal*c.Aspect*yd + c.PrincipalY
	return u, v, true
}

// Contribute registers the camera's parameter groups into the ValueMap.
// When the pose is free, a post-step hook renormalizes the quaternion
// after every accepted solver step.
func (c *Camera) Contribute(vm *ValueMap) {
	slots := &cameraSlots{}
	posNames := [3]string{"px", "py", "pz"}
	for i := 0; i < 3; i++ {
		i := i
		slots.pos[i] = vm.addParam(
			fmt.Sprintf("camera/%s/%s", c.ID, posNames[i]),
			c.Position[i], !c.LockPose,
			func(v float64) {
				c.Position[i] = v
				c.Source = ProvenanceOptimized
				c.UpdatedAt = time.Now()
			},
		)
	}
	quatNames := [4]string{"qw", "qx", "qy", "qz"}
	for i := 0; i < 4; i++ {
		i := i
		slots.quat[i] = vm.addParam(
			fmt.Sprintf("camera/%s/%s", c.ID, quatNames[i]),
			c.Rotation[i], !c.LockPose,
			func(v float64) {
				c.Rotation[i] = v
				c.Source = ProvenanceOptimized
				c.UpdatedAt = time.Now()
			},
		)
	}

	scalar := func(name string, val float64, free bool, set func(float64)) int {
		return vm.addParam(fmt.Sprintf("camera/%s/%s", c.ID, name), val, free,
			func(v float64) {
				set(v)
				c.Source = ProvenanceOptimized
				c.UpdatedAt = time.Now()
			})
	}
	slots.focal = scalar("focal", c.Focal, !c.LockFocal, func(v float64) { c.Focal = v })
	slots.aspect = scalar("aspect", c.Aspect, !c.LockAspect, func(v float64) { c.Aspect = v })
	slots.ppx = scalar("ppx", c.PrincipalX, !c.LockPrincipal, func(v float64) { c.PrincipalX = v })
	slots.ppy = scalar("ppy", c.PrincipalY, !c.LockPrincipal, func(v float64) { c.PrincipalY = v })
	slots.skew = scalar("skew", c.Skew, !c.LockSkew, func(v float64) { c.Skew = v })
	slots.k1 = scalar("k1", c.K1, !c.LockDistortion, func(v float64) { c.K1 = v })
	slots.k2 = scalar("k2", c.K2, !c.LockDistortion, func(v float64) { c.K2 = v })
	slots.k3 = scalar("k3", c.K3, !c.LockDistortion, func(v float64) { c.K3 = v })
	slots.p1 = scalar("p1", c.P1, !c.LockDistortion, func(v float64) { c.P1 = v })
	slots.p2 = scalar("p2", c.P2, !c.LockDistortion, func(v float64) { c.P2 = v })

	vm.registerCamera(c.ID, slots)

	if !c.LockPose {
		quatSlots := [4]int{}
		for i, pi := range slots.quat {
			quatSlots[i] = vm.freeSlot(pi)
		}
		vm.OnPostStep(func(x []float64) {
			n := 0.0
			for _, s := range quatSlots {
				n += x[s] * x[s]
			}
			n = math.Sqrt(n)
			if n == 0 {
				x[quatSlots[0]] = 1
				x[quatSlots[1]] = 0
				x[quatSlots[2]] = 0
				x[quatSlots[3]] = 0
				return
			}
			for _, s := range quatSlots {
				x[s] /= n
			}
		})
	}
}
