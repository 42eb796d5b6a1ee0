package scene

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/photoscene/photoscene/internal/autodiff"
)

// Observation is a measured 2D image location of a world point in one
// camera's frame. Each observation contributes a (u, v) residual pair to
// the solve.
type Observation struct {
	ID        uuid.UUID
	CameraID  uuid.UUID
	PointID   uuid.UUID
	U, V      float64
	CreatedAt time.Time
}

// NewObservation records that point was seen at pixel (u, v) in camera.
func NewObservation(camera, point uuid.UUID, u, v float64) *Observation {
	return &Observation{
		ID:        uuid.New(),
		CameraID:  camera,
		PointID:   point,
		U:         u,
		V:         v,
		CreatedAt: time.Now(),
	}
}

// Residuals returns the reprojection residual pair (projected − observed)
// for the current ValueMap evaluation. A missing camera or point yields
// nil; a degenerate projection yields a pair of finite sentinel
// constants so the solver always sees finite values.
func (o *Observation) Residuals(vm *ValueMap) []autodiff.Value {
	cam, okCam := vm.Camera(o.CameraID)
	pt, okPt := vm.Point(o.PointID)
	if !okCam || !okPt {
		return nil
	}
	u, v, ok := cam.Project(pt)
	if !ok {
		return []autodiff.Value{
			vm.Constant(SentinelResidual),
			vm.Constant(SentinelResidual),
		}
	}
	return []autodiff.Value{
		u.AddConst(-o.U),
		v.AddConst(-o.V),
	}
}

// ReprojectionError returns the pixel distance between the observation
// and the camera's current projection of the point, for display. ok is
// false when either entity is unresolvable or the projection is
// degenerate.
func (o *Observation) ReprojectionError(repo Repository) (float64, bool) {
	cam, okCam := repo.Camera(o.CameraID)
	pt, okPt := repo.Point(o.PointID)
	if !okCam || !okPt {
		return 0, false
	}
	vec, defined := pt.Vector()
	if !defined {
		return 0, false
	}
	u, v, ok := cam.Project(vec)
	if !ok {
		return 0, false
	}
	return math.Hypot(u-o.U, v-o.V), true
}
