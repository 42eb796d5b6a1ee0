package scene

import "github.com/google/uuid"

// Repository resolves entity ids. The solver and the constraints depend
// only on this interface; the concrete store lives in
// internal/repository.
type Repository interface {
	Point(id uuid.UUID) (*WorldPoint, bool)
	Line(id uuid.UUID) (*Line, bool)
	Plane(id uuid.UUID) (*Plane, bool)
	Camera(id uuid.UUID) (*Camera, bool)

	PointExists(id uuid.UUID) bool
	LineExists(id uuid.UUID) bool
	PlaneExists(id uuid.UUID) bool
	CameraExists(id uuid.UUID) bool
}
