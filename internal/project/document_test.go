package project

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoscene/photoscene/internal/constraint"
	"github.com/photoscene/photoscene/internal/repository"
	"github.com/photoscene/photoscene/internal/scene"
	"github.com/photoscene/photoscene/internal/solver"
)

func buildSampleStore(t *testing.T) *repository.Store {
	t.Helper()
	store := repository.NewStore()

	a := scene.NewWorldPointAt("a", 0, 0, 0)
	a.LockAll()
	b := scene.NewWorldPointAt("b", 3, 4, 0)
	b.Group = "facade"
	partial := scene.NewWorldPoint("partial")
	partial.SetCoord(scene.AxisX, 1.5)
	partial.Lock(scene.AxisX, true)

	for _, p := range []*scene.WorldPoint{a, b, partial} {
		require.NoError(t, store.AddPoint(p))
	}

	cam := scene.NewCamera("cam")
	cam.Position = [3]float64{0, 0, -5}
	cam.Focal = 800
	cam.PrincipalX = 320
	cam.PrincipalY = 240
	cam.K1 = -0.1
	require.NoError(t, store.AddCamera(cam))

	l := scene.NewLine("ab", a.ID, b.ID)
	require.NoError(t, store.AddLine(l))
	pl := scene.NewPlane("ground", a.ID, b.ID, partial.ID)
	require.NoError(t, store.AddPlane(pl))

	require.NoError(t, store.AddObservation(scene.NewObservation(cam.ID, b.ID, 412.5, 239.1)))

	require.NoError(t, store.AddConstraint(constraint.NewDistance("ab", a.ID, b.ID, 5)))
	require.NoError(t, store.AddConstraint(constraint.NewFixedPoint("pin", b.ID, [3]float64{3, 4, 0})))

	return store
}

func TestDocumentRoundTrip(t *testing.T) {
	store := buildSampleStore(t)
	doc := Snapshot("sample", store)

	path := filepath.Join(t.TempDir(), "sample.photoscene.json")
	require.NoError(t, Save(path, doc))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Version, loaded.Version)
	assert.Equal(t, "sample", loaded.Name)

	rebuilt, err := loaded.Build()
	require.NoError(t, err)

	// Compare against the loaded document rather than the live store:
	// JSON strips the monotonic clock reading from timestamps.
	resnap := Snapshot("sample", rebuilt)
	assert.Equal(t, loaded.Points, resnap.Points)
	assert.Equal(t, loaded.Cameras, resnap.Cameras)
	assert.Equal(t, loaded.Lines, resnap.Lines)
	assert.Equal(t, loaded.Planes, resnap.Planes)
	assert.Equal(t, loaded.Constraints, resnap.Constraints)
	assert.Len(t, rebuilt.Observations(), 1)
	assert.Len(t, rebuilt.Constraints(), 2)
}

func TestRebuiltStorePreservesAxisState(t *testing.T) {
	store := buildSampleStore(t)
	doc := Snapshot("sample", store)
	rebuilt, err := doc.Build()
	require.NoError(t, err)

	var partial *scene.WorldPoint
	for _, p := range rebuilt.Points() {
		if p.Name == "partial" {
			partial = p
		}
	}
	require.NotNil(t, partial)

	x, ok := partial.Coord(scene.AxisX)
	require.True(t, ok)
	assert.Equal(t, 1.5, x)
	assert.True(t, partial.Locked(scene.AxisX))
	assert.False(t, partial.Defined(scene.AxisY))
	assert.False(t, partial.Defined(scene.AxisZ))
}

func TestLoadedProjectSolves(t *testing.T) {
	store := repository.NewStore()
	p := scene.NewWorldPointAt("p", 5, 3, 7)
	require.NoError(t, store.AddPoint(p))
	require.NoError(t, store.AddConstraint(constraint.NewFixedPoint("pin", p.ID, [3]float64{0, 0, 0})))

	path := filepath.Join(t.TempDir(), "solveme.json")
	require.NoError(t, Save(path, Snapshot("solveme", store)))

	doc, err := Load(path)
	require.NoError(t, err)
	rebuilt, err := doc.Build()
	require.NoError(t, err)

	sys := NewSystem(rebuilt, solver.Options{Tolerance: 1e-6, MaxIterations: 50})
	res := sys.Solve()
	assert.True(t, res.Converged)

	pt := rebuilt.Points()[0]
	x, _ := pt.Coord(scene.AxisX)
	assert.InDelta(t, 0, x, 1e-4)
}

func TestBuildRejectsNewerVersion(t *testing.T) {
	doc := &Document{Version: Version + 1}
	_, err := doc.Build()
	assert.Error(t, err)
}

func TestBuildRejectsBadReferences(t *testing.T) {
	doc := &Document{
		Version: Version,
		Lines: []LineDTO{{
			ID: "00000000-0000-0000-0000-000000000001",
			A:  "00000000-0000-0000-0000-000000000002",
			B:  "00000000-0000-0000-0000-000000000003",
		}},
	}
	_, err := doc.Build()
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
