package scene

import "github.com/photoscene/photoscene/internal/autodiff"

// CameraModel is the differentiable form of a camera for one ValueMap
// evaluation. All fields are tape values, so a projected pixel carries
// derivatives with respect to the point position and every unlocked
// camera parameter.
type CameraModel struct {
	Position autodiff.Vec3
	QW, QX, QY, QZ autodiff.Value

	Focal, Aspect, PPX, PPY, Skew autodiff.Value
	K1, K2, K3, P1, P2            autodiff.Value
}

// Project maps a world point to pixel coordinates.
//
// Pipeline: world→camera transform (conjugate quaternion rotation of the
// offset vector), perspective divide, Brown–Conrady radial and
// tangential distortion, intrinsics. ok is false when the camera-space
// depth is degenerate (|z| below epsilon or the point behind the image
// plane); callers substitute sentinel residuals in that case.
func (m *CameraModel) Project(p autodiff.Vec3) (u, v autodiff.Value, ok bool) {
	d := p.Sub(m.Position)

	// Normalize the quaternion inside the graph so mid-iteration drift
	// in the rotation parameters cannot scale the projection.
	n := m.QW.Square().Add(m.QX.Square()).Add(m.QY.Square()).Add(m.QZ.Square()).Sqrt()
	qw := m.QW.Div(n)
	// Conjugate: rotating world→camera inverts the camera's rotation.
	qx := m.QX.Div(n).Neg()
	qy := m.QY.Div(n).Neg()
	qz := m.QZ.Div(n).Neg()

	// v' = v + qw*t + qv × t, with t = 2 (qv × v).
	qv := autodiff.Vec3{X: qx, Y: qy, Z: qz}
	t := qv.Cross(d)
	t = autodiff.Vec3{X: t.X.MulConst(2), Y: t.Y.MulConst(2), Z: t.Z.MulConst(2)}
	cam := d.Add(t.Scale(qw)).Add(qv.Cross(t))

	if cam.Z.Float() < minDepth {
		return autodiff.Value{}, autodiff.Value{}, false
	}

	xn := cam.X.Div(cam.Z)
	yn := cam.Y.Div(cam.Z)

	r2 := xn.Square().Add(yn.Square())
	r4 := r2.Square()
	r6 := r4.Mul(r2)
	radial := m.K1.Mul(r2).Add(m.K2.Mul(r4)).Add(m.K3.Mul(r6)).AddConst(1)

	xy := xn.Mul(yn)
	xd := xn.Mul(radial).
		Add(m.P1.Mul(xy).MulConst(2)).
		Add(m.P2.Mul(r2.Add(xn.Square().MulConst(2))))
	yd := yn.Mul(radial).
		Add(m.P1.Mul(r2.Add(yn.Square().MulConst(2)))).
		Add(m.P2.Mul(xy).MulConst(2))

	u = m.Focal.Mul(xd).Add(m.Skew.Mul(yd)).Add(m.PPX)
	v = m.Focal.Mul(m.Aspect).Mul(yd).Add(m.PPY)
	return u, v, true
}
