package autodiff

// Vec3 is a 3-vector of tape values.
type Vec3 struct {
	X, Y, Z Value
}

// NewVec3 builds a vector of constants on t.
func NewVec3(t *Tape, x, y, z float64) Vec3 {
	return Vec3{X: t.Constant(x), Y: t.Constant(y), Z: t.Constant(z)}
}

// Add returns a + b componentwise.
func (a Vec3) Add(b Vec3) Vec3 {
	return Vec3{a.X.Add(b.X), a.Y.Add(b.Y), a.Z.Add(b.Z)}
}

// Sub returns a - b componentwise.
func (a Vec3) Sub(b Vec3) Vec3 {
	return Vec3{a.X.Sub(b.X), a.Y.Sub(b.Y), a.Z.Sub(b.Z)}
}

// Scale returns a scaled by s.
func (a Vec3) Scale(s Value) Vec3 {
	return Vec3{a.X.Mul(s), a.Y.Mul(s), a.Z.Mul(s)}
}

// Dot returns a · b.
func (a Vec3) Dot(b Vec3) Value {
	return a.X.Mul(b.X).Add(a.Y.Mul(b.Y)).Add(a.Z.Mul(b.Z))
}

// Cross returns a × b.
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		X: a.Y.Mul(b.Z).Sub(a.Z.Mul(b.Y)),
		Y: a.Z.Mul(b.X).Sub(a.X.Mul(b.Z)),
		Z: a.X.Mul(b.Y).Sub(a.Y.Mul(b.X)),
	}
}

// Norm returns ‖a‖.
func (a Vec3) Norm() Value { return a.Dot(a).Sqrt() }

// Normalize returns a / ‖a‖. The zero vector maps to itself (Sqrt records
// a zero partial at zero, and the division yields IEEE infinities only in
// the forward values the caller is expected to have guarded).
func (a Vec3) Normalize() Vec3 {
	n := a.Norm()
	return Vec3{a.X.Div(n), a.Y.Div(n), a.Z.Div(n)}
}

// Floats returns the three forward values.
func (a Vec3) Floats() (x, y, z float64) {
	return a.X.Float(), a.Y.Float(), a.Z.Float()
}
