// Package repository implements the in-memory entity store backing a
// photogrammetric project. Entities live in arenas keyed by their id;
// a reverse index from entity id to constraint ids is maintained on
// constraint add and remove, so entity deletion can find and detach
// the constraints that reference it without the entities themselves
// carrying pointers back.
package repository

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/photoscene/photoscene/internal/constraint"
	"github.com/photoscene/photoscene/internal/scene"
)

// Store holds the entities and constraints of one project. It
// implements scene.Repository. All methods are safe for concurrent
// readers; writes take the exclusive lock.
type Store struct {
	mu sync.RWMutex

	points  map[uuid.UUID]*scene.WorldPoint
	lines   map[uuid.UUID]*scene.Line
	planes  map[uuid.UUID]*scene.Plane
	cameras map[uuid.UUID]*scene.Camera

	observations map[uuid.UUID]*scene.Observation

	// Insertion order per arena. Point and camera order decides the
	// ValueMap slot layout of a solve, which must be reproducible for
	// identical inputs.
	ptOrder    []uuid.UUID
	lineOrder  []uuid.UUID
	planeOrder []uuid.UUID
	camOrder   []uuid.UUID
	obsOrder   []uuid.UUID

	constraints map[uuid.UUID]constraint.Constraint
	// order keeps constraint insertion order so residual stacking is
	// reproducible across solves of the same project.
	order []uuid.UUID

	// byEntity maps an entity id to the ids of constraints that
	// reference it.
	byEntity map[uuid.UUID]map[uuid.UUID]struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		points:       make(map[uuid.UUID]*scene.WorldPoint),
		lines:        make(map[uuid.UUID]*scene.Line),
		planes:       make(map[uuid.UUID]*scene.Plane),
		cameras:      make(map[uuid.UUID]*scene.Camera),
		observations: make(map[uuid.UUID]*scene.Observation),
		constraints:  make(map[uuid.UUID]constraint.Constraint),
		byEntity:     make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// AddPoint registers a world point.
func (s *Store) AddPoint(p *scene.WorldPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.points[p.ID]; exists {
		return fmt.Errorf("point %s already exists", p.ID)
	}
	s.points[p.ID] = p
	s.ptOrder = append(s.ptOrder, p.ID)
	return nil
}

// AddLine registers a line. Both endpoints must already be in the
// store.
func (s *Store) AddLine(l *scene.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.lines[l.ID]; exists {
		return fmt.Errorf("line %s already exists", l.ID)
	}
	for _, end := range [2]uuid.UUID{l.A, l.B} {
		if _, ok := s.points[end]; !ok {
			return fmt.Errorf("line %s references missing point %s", l.ID, end)
		}
	}
	s.lines[l.ID] = l
	s.lineOrder = append(s.lineOrder, l.ID)
	return nil
}

// AddPlane registers a plane. All three points must already be in the
// store.
func (s *Store) AddPlane(p *scene.Plane) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.planes[p.ID]; exists {
		return fmt.Errorf("plane %s already exists", p.ID)
	}
	for _, id := range [3]uuid.UUID{p.P0, p.P1, p.P2} {
		if _, ok := s.points[id]; !ok {
			return fmt.Errorf("plane %s references missing point %s", p.ID, id)
		}
	}
	s.planes[p.ID] = p
	s.planeOrder = append(s.planeOrder, p.ID)
	return nil
}

// AddCamera registers a camera.
func (s *Store) AddCamera(c *scene.Camera) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.cameras[c.ID]; exists {
		return fmt.Errorf("camera %s already exists", c.ID)
	}
	s.cameras[c.ID] = c
	s.camOrder = append(s.camOrder, c.ID)
	return nil
}

// Point implements scene.Repository.
func (s *Store) Point(id uuid.UUID) (*scene.WorldPoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.points[id]
	return p, ok
}

// Line implements scene.Repository.
func (s *Store) Line(id uuid.UUID) (*scene.Line, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lines[id]
	return l, ok
}

// Plane implements scene.Repository.
func (s *Store) Plane(id uuid.UUID) (*scene.Plane, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.planes[id]
	return p, ok
}

// Camera implements scene.Repository.
func (s *Store) Camera(id uuid.UUID) (*scene.Camera, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cameras[id]
	return c, ok
}

func (s *Store) PointExists(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.points[id]
	return ok
}

func (s *Store) LineExists(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.lines[id]
	return ok
}

func (s *Store) PlaneExists(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.planes[id]
	return ok
}

func (s *Store) CameraExists(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cameras[id]
	return ok
}

// Points returns all world points in insertion order.
func (s *Store) Points() []*scene.WorldPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*scene.WorldPoint, 0, len(s.ptOrder))
	for _, id := range s.ptOrder {
		out = append(out, s.points[id])
	}
	return out
}

// Lines returns all lines in insertion order.
func (s *Store) Lines() []*scene.Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*scene.Line, 0, len(s.lineOrder))
	for _, id := range s.lineOrder {
		out = append(out, s.lines[id])
	}
	return out
}

// Planes returns all planes in insertion order.
func (s *Store) Planes() []*scene.Plane {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*scene.Plane, 0, len(s.planeOrder))
	for _, id := range s.planeOrder {
		out = append(out, s.planes[id])
	}
	return out
}

// Cameras returns all cameras in insertion order.
func (s *Store) Cameras() []*scene.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*scene.Camera, 0, len(s.camOrder))
	for _, id := range s.camOrder {
		out = append(out, s.cameras[id])
	}
	return out
}

// AddObservation registers an image observation. Camera and point must
// already be in the store.
func (s *Store) AddObservation(o *scene.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.observations[o.ID]; exists {
		return fmt.Errorf("observation %s already exists", o.ID)
	}
	if _, ok := s.cameras[o.CameraID]; !ok {
		return fmt.Errorf("observation %s references missing camera %s", o.ID, o.CameraID)
	}
	if _, ok := s.points[o.PointID]; !ok {
		return fmt.Errorf("observation %s references missing point %s", o.ID, o.PointID)
	}
	s.observations[o.ID] = o
	s.obsOrder = append(s.obsOrder, o.ID)
	return nil
}

// RemoveObservation unregisters an observation.
func (s *Store) RemoveObservation(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.observations[id]; !ok {
		return fmt.Errorf("observation %s does not exist", id)
	}
	delete(s.observations, id)
	for i, oid := range s.obsOrder {
		if oid == id {
			s.obsOrder = append(s.obsOrder[:i], s.obsOrder[i+1:]...)
			break
		}
	}
	return nil
}

// Observations returns the observations in insertion order.
func (s *Store) Observations() []*scene.Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*scene.Observation, 0, len(s.obsOrder))
	for _, id := range s.obsOrder {
		out = append(out, s.observations[id])
	}
	return out
}

// AddConstraint registers a constraint and indexes its entity
// references.
func (s *Store) AddConstraint(c constraint.Constraint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := c.Base().ID
	if _, exists := s.constraints[id]; exists {
		return fmt.Errorf("constraint %s already exists", id)
	}
	s.constraints[id] = c
	s.order = append(s.order, id)
	for _, ref := range c.EntityIDs() {
		set, ok := s.byEntity[ref]
		if !ok {
			set = make(map[uuid.UUID]struct{})
			s.byEntity[ref] = set
		}
		set[id] = struct{}{}
	}
	return nil
}

// RemoveConstraint unregisters a constraint and drops its reverse
// index entries.
func (s *Store) RemoveConstraint(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.constraints[id]
	if !ok {
		return fmt.Errorf("constraint %s does not exist", id)
	}
	s.dropConstraintLocked(id, c)
	return nil
}

func (s *Store) dropConstraintLocked(id uuid.UUID, c constraint.Constraint) {
	delete(s.constraints, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	for _, ref := range c.EntityIDs() {
		if set, ok := s.byEntity[ref]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(s.byEntity, ref)
			}
		}
	}
}

// Constraint looks up a constraint by id.
func (s *Store) Constraint(id uuid.UUID) (constraint.Constraint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.constraints[id]
	return c, ok
}

// Constraints returns the constraints in insertion order.
func (s *Store) Constraints() []constraint.Constraint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]constraint.Constraint, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.constraints[id])
	}
	return out
}

// ConstraintsOn returns the constraints referencing the given entity,
// in insertion order.
func (s *Store) ConstraintsOn(entity uuid.UUID) []constraint.Constraint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.byEntity[entity]
	if !ok {
		return nil
	}
	out := make([]constraint.Constraint, 0, len(set))
	for _, id := range s.order {
		if _, referenced := set[id]; referenced {
			out = append(out, s.constraints[id])
		}
	}
	return out
}

// RemovePoint deletes a point together with every line, plane, and
// constraint that references it.
func (s *Store) RemovePoint(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.points[id]; !ok {
		return fmt.Errorf("point %s does not exist", id)
	}

	for lid, l := range s.lines {
		if l.A == id || l.B == id {
			s.removeEntityLocked(lid)
			delete(s.lines, lid)
			s.lineOrder = dropID(s.lineOrder, lid)
		}
	}
	for pid, p := range s.planes {
		if p.P0 == id || p.P1 == id || p.P2 == id {
			s.removeEntityLocked(pid)
			delete(s.planes, pid)
			s.planeOrder = dropID(s.planeOrder, pid)
		}
	}
	s.removeEntityLocked(id)
	s.dropObservationsLocked(func(o *scene.Observation) bool { return o.PointID == id })
	delete(s.points, id)
	s.ptOrder = dropID(s.ptOrder, id)
	return nil
}

func dropID(order []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for i, oid := range order {
		if oid == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

// RemoveLine deletes a line together with the constraints that
// reference it.
func (s *Store) RemoveLine(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lines[id]; !ok {
		return fmt.Errorf("line %s does not exist", id)
	}
	s.removeEntityLocked(id)
	delete(s.lines, id)
	s.lineOrder = dropID(s.lineOrder, id)
	return nil
}

// RemoveCamera deletes a camera.
func (s *Store) RemoveCamera(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cameras[id]; !ok {
		return fmt.Errorf("camera %s does not exist", id)
	}
	s.dropObservationsLocked(func(o *scene.Observation) bool { return o.CameraID == id })
	delete(s.cameras, id)
	s.camOrder = dropID(s.camOrder, id)
	return nil
}

// dropObservationsLocked removes every observation matching the
// predicate, preserving the order of the rest.
func (s *Store) dropObservationsLocked(match func(*scene.Observation) bool) {
	kept := s.obsOrder[:0]
	for _, oid := range s.obsOrder {
		if match(s.observations[oid]) {
			delete(s.observations, oid)
			continue
		}
		kept = append(kept, oid)
	}
	s.obsOrder = kept
}

// removeEntityLocked detaches and deletes every constraint referencing
// the entity.
func (s *Store) removeEntityLocked(entity uuid.UUID) {
	set, ok := s.byEntity[entity]
	if !ok {
		return
	}
	ids := make([]uuid.UUID, 0, len(set))
	for cid := range set {
		ids = append(ids, cid)
	}
	for _, cid := range ids {
		if c, found := s.constraints[cid]; found {
			s.dropConstraintLocked(cid, c)
		}
	}
}
