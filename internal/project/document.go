// Package project defines the on-disk document format of a scene and
// converts between it and the live entity store. The document is plain
// JSON so project files diff cleanly under version control.
package project

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/photoscene/photoscene/internal/constraint"
	"github.com/photoscene/photoscene/internal/repository"
	"github.com/photoscene/photoscene/internal/scene"
)

// Version is the current document schema version.
const Version = 1

// Document is the serialized form of one project.
type Document struct {
	Version      int              `json:"version"`
	Name         string           `json:"name"`
	Points       []PointDTO       `json:"points,omitempty"`
	Cameras      []CameraDTO      `json:"cameras,omitempty"`
	Lines        []LineDTO        `json:"lines,omitempty"`
	Planes       []PlaneDTO       `json:"planes,omitempty"`
	Observations []ObservationDTO `json:"observations,omitempty"`
	Constraints  []constraint.DTO `json:"constraints,omitempty"`
}

// PointDTO carries one world point. A nil axis value means the axis is
// undefined.
type PointDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	Group     string    `json:"group,omitempty"`
	Source    string    `json:"source"`
	X         *float64  `json:"x,omitempty"`
	Y         *float64  `json:"y,omitempty"`
	Z         *float64  `json:"z,omitempty"`
	LockedX   bool      `json:"lockedX,omitempty"`
	LockedY   bool      `json:"lockedY,omitempty"`
	LockedZ   bool      `json:"lockedZ,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CameraDTO carries one camera with its pose, intrinsics, and lock
// flags.
type CameraDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation"`

	Focal      float64 `json:"focal"`
	Aspect     float64 `json:"aspect"`
	PrincipalX float64 `json:"principalX"`
	PrincipalY float64 `json:"principalY"`
	Skew       float64 `json:"skew"`

	K1 float64 `json:"k1"`
	K2 float64 `json:"k2"`
	K3 float64 `json:"k3"`
	P1 float64 `json:"p1"`
	P2 float64 `json:"p2"`

	LockPose       bool `json:"lockPose,omitempty"`
	LockFocal      bool `json:"lockFocal,omitempty"`
	LockAspect     bool `json:"lockAspect,omitempty"`
	LockPrincipal  bool `json:"lockPrincipal,omitempty"`
	LockSkew       bool `json:"lockSkew,omitempty"`
	LockDistortion bool `json:"lockDistortion,omitempty"`
}

// LineDTO carries one line by its endpoint ids.
type LineDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	A         string    `json:"a"`
	B         string    `json:"b"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PlaneDTO carries one plane by its three point ids.
type PlaneDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	P0        string    `json:"p0"`
	P1        string    `json:"p1"`
	P2        string    `json:"p2"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ObservationDTO carries one image observation.
type ObservationDTO struct {
	ID        string    `json:"id"`
	CameraID  string    `json:"cameraId"`
	PointID   string    `json:"pointId"`
	U         float64   `json:"u"`
	V         float64   `json:"v"`
	CreatedAt time.Time `json:"createdAt"`
}

// Snapshot captures the store into a document. Entity sections are
// sorted by id so the same project always serializes to the same
// bytes.
func Snapshot(name string, store *repository.Store) *Document {
	doc := &Document{Version: Version, Name: name}

	for _, p := range store.Points() {
		doc.Points = append(doc.Points, pointToDTO(p))
	}
	sort.Slice(doc.Points, func(i, j int) bool { return doc.Points[i].ID < doc.Points[j].ID })

	for _, c := range store.Cameras() {
		doc.Cameras = append(doc.Cameras, cameraToDTO(c))
	}
	sort.Slice(doc.Cameras, func(i, j int) bool { return doc.Cameras[i].ID < doc.Cameras[j].ID })

	for _, l := range store.Lines() {
		doc.Lines = append(doc.Lines, LineDTO{
			ID: l.ID.String(), Name: l.Name,
			A: l.A.String(), B: l.B.String(),
			CreatedAt: l.CreatedAt, UpdatedAt: l.UpdatedAt,
		})
	}
	sort.Slice(doc.Lines, func(i, j int) bool { return doc.Lines[i].ID < doc.Lines[j].ID })

	for _, p := range store.Planes() {
		doc.Planes = append(doc.Planes, PlaneDTO{
			ID: p.ID.String(), Name: p.Name,
			P0: p.P0.String(), P1: p.P1.String(), P2: p.P2.String(),
			CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
		})
	}
	sort.Slice(doc.Planes, func(i, j int) bool { return doc.Planes[i].ID < doc.Planes[j].ID })

	for _, o := range store.Observations() {
		doc.Observations = append(doc.Observations, ObservationDTO{
			ID:       o.ID.String(),
			CameraID: o.CameraID.String(), PointID: o.PointID.String(),
			U: o.U, V: o.V, CreatedAt: o.CreatedAt,
		})
	}

	for _, c := range store.Constraints() {
		doc.Constraints = append(doc.Constraints, c.ToDTO())
	}

	return doc
}

// Build reconstructs the entity store described by the document.
func (d *Document) Build() (*repository.Store, error) {
	if d.Version > Version {
		return nil, fmt.Errorf("document version %d is newer than supported version %d", d.Version, Version)
	}

	store := repository.NewStore()

	for _, dto := range d.Points {
		p, err := pointFromDTO(dto)
		if err != nil {
			return nil, err
		}
		if err := store.AddPoint(p); err != nil {
			return nil, err
		}
	}

	for _, dto := range d.Cameras {
		c, err := cameraFromDTO(dto)
		if err != nil {
			return nil, err
		}
		if err := store.AddCamera(c); err != nil {
			return nil, err
		}
	}

	for _, dto := range d.Lines {
		id, err := uuid.Parse(dto.ID)
		if err != nil {
			return nil, fmt.Errorf("line %q: %w", dto.ID, err)
		}
		a, err := uuid.Parse(dto.A)
		if err != nil {
			return nil, fmt.Errorf("line %s endpoint: %w", dto.ID, err)
		}
		b, err := uuid.Parse(dto.B)
		if err != nil {
			return nil, fmt.Errorf("line %s endpoint: %w", dto.ID, err)
		}
		l := &scene.Line{ID: id, Name: dto.Name, A: a, B: b, CreatedAt: dto.CreatedAt, UpdatedAt: dto.UpdatedAt}
		if err := store.AddLine(l); err != nil {
			return nil, err
		}
	}

	for _, dto := range d.Planes {
		id, err := uuid.Parse(dto.ID)
		if err != nil {
			return nil, fmt.Errorf("plane %q: %w", dto.ID, err)
		}
		var refs [3]uuid.UUID
		for i, raw := range [3]string{dto.P0, dto.P1, dto.P2} {
			refs[i], err = uuid.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("plane %s point: %w", dto.ID, err)
			}
		}
		p := &scene.Plane{ID: id, Name: dto.Name, P0: refs[0], P1: refs[1], P2: refs[2], CreatedAt: dto.CreatedAt, UpdatedAt: dto.UpdatedAt}
		if err := store.AddPlane(p); err != nil {
			return nil, err
		}
	}

	for _, dto := range d.Observations {
		id, err := uuid.Parse(dto.ID)
		if err != nil {
			return nil, fmt.Errorf("observation %q: %w", dto.ID, err)
		}
		cam, err := uuid.Parse(dto.CameraID)
		if err != nil {
			return nil, fmt.Errorf("observation %s camera: %w", dto.ID, err)
		}
		pt, err := uuid.Parse(dto.PointID)
		if err != nil {
			return nil, fmt.Errorf("observation %s point: %w", dto.ID, err)
		}
		o := &scene.Observation{ID: id, CameraID: cam, PointID: pt, U: dto.U, V: dto.V, CreatedAt: dto.CreatedAt}
		if err := store.AddObservation(o); err != nil {
			return nil, err
		}
	}

	for _, dto := range d.Constraints {
		c, err := constraint.FromDTO(dto)
		if err != nil {
			return nil, err
		}
		if err := store.AddConstraint(c); err != nil {
			return nil, err
		}
	}

	return store, nil
}

func pointToDTO(p *scene.WorldPoint) PointDTO {
	dto := PointDTO{
		ID:        p.ID.String(),
		Name:      p.Name,
		Color:     p.Color,
		Group:     p.Group,
		Source:    string(p.Source),
		LockedX:   p.Locked(scene.AxisX),
		LockedY:   p.Locked(scene.AxisY),
		LockedZ:   p.Locked(scene.AxisZ),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if v, ok := p.Coord(scene.AxisX); ok {
		dto.X = &v
	}
	if v, ok := p.Coord(scene.AxisY); ok {
		dto.Y = &v
	}
	if v, ok := p.Coord(scene.AxisZ); ok {
		dto.Z = &v
	}
	return dto
}

func pointFromDTO(dto PointDTO) (*scene.WorldPoint, error) {
	id, err := uuid.Parse(dto.ID)
	if err != nil {
		return nil, fmt.Errorf("point %q: %w", dto.ID, err)
	}
	source := scene.Provenance(dto.Source)
	if dto.Source != "" && !source.Valid() {
		return nil, fmt.Errorf("point %s: unknown source %q", dto.ID, dto.Source)
	}

	p := scene.NewWorldPoint(dto.Name)
	p.ID = id
	p.Color = dto.Color
	p.Group = dto.Group
	if dto.X != nil {
		p.SetCoord(scene.AxisX, *dto.X)
	}
	if dto.Y != nil {
		p.SetCoord(scene.AxisY, *dto.Y)
	}
	if dto.Z != nil {
		p.SetCoord(scene.AxisZ, *dto.Z)
	}
	p.Lock(scene.AxisX, dto.LockedX)
	p.Lock(scene.AxisY, dto.LockedY)
	p.Lock(scene.AxisZ, dto.LockedZ)
	if dto.Source != "" {
		p.Source = source
	}
	p.CreatedAt = dto.CreatedAt
	p.UpdatedAt = dto.UpdatedAt
	return p, nil
}

func cameraToDTO(c *scene.Camera) CameraDTO {
	return CameraDTO{
		ID:        c.ID.String(),
		Name:      c.Name,
		Source:    string(c.Source),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,

		Position: c.Position,
		Rotation: c.Rotation,

		Focal:      c.Focal,
		Aspect:     c.Aspect,
		PrincipalX: c.PrincipalX,
		PrincipalY: c.PrincipalY,
		Skew:       c.Skew,

		K1: c.K1, K2: c.K2, K3: c.K3,
		P1: c.P1, P2: c.P2,

		LockPose:       c.LockPose,
		LockFocal:      c.LockFocal,
		LockAspect:     c.LockAspect,
		LockPrincipal:  c.LockPrincipal,
		LockSkew:       c.LockSkew,
		LockDistortion: c.LockDistortion,
	}
}

func cameraFromDTO(dto CameraDTO) (*scene.Camera, error) {
	id, err := uuid.Parse(dto.ID)
	if err != nil {
		return nil, fmt.Errorf("camera %q: %w", dto.ID, err)
	}
	source := scene.Provenance(dto.Source)
	if dto.Source != "" && !source.Valid() {
		return nil, fmt.Errorf("camera %s: unknown source %q", dto.ID, dto.Source)
	}

	c := &scene.Camera{
		ID:        id,
		Name:      dto.Name,
		Source:    source,
		CreatedAt: dto.CreatedAt,
		UpdatedAt: dto.UpdatedAt,

		Position: dto.Position,
		Rotation: dto.Rotation,

		Focal:      dto.Focal,
		Aspect:     dto.Aspect,
		PrincipalX: dto.PrincipalX,
		PrincipalY: dto.PrincipalY,
		Skew:       dto.Skew,

		K1: dto.K1, K2: dto.K2, K3: dto.K3,
		P1: dto.P1, P2: dto.P2,

		LockPose:       dto.LockPose,
		LockFocal:      dto.LockFocal,
		LockAspect:     dto.LockAspect,
		LockPrincipal:  dto.LockPrincipal,
		LockSkew:       dto.LockSkew,
		LockDistortion: dto.LockDistortion,
	}
	if c.Rotation == ([4]float64{}) {
		c.Rotation = [4]float64{1, 0, 0, 0}
	}
	if c.Source == "" {
		c.Source = scene.ProvenanceUser
	}
	return c, nil
}
