package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoscene/photoscene/internal/constraint"
	"github.com/photoscene/photoscene/internal/project"
	"github.com/photoscene/photoscene/internal/repository"
	"github.com/photoscene/photoscene/internal/scene"
	"github.com/photoscene/photoscene/internal/solver"
)

func writeProject(t *testing.T, store *repository.Store) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.photoscene.json")
	require.NoError(t, project.Save(path, project.Snapshot("scene", store)))
	return path
}

func solvableStore(t *testing.T) *repository.Store {
	t.Helper()
	store := repository.NewStore()
	p := scene.NewWorldPointAt("p", 5, 3, 7)
	require.NoError(t, store.AddPoint(p))
	require.NoError(t, store.AddConstraint(constraint.NewFixedPoint("pin", p.ID, [3]float64{0, 0, 0})))
	return store
}

func newTestApp(t *testing.T, store *repository.Store) (*App, string) {
	t.Helper()
	path := writeProject(t, store)
	app, err := NewApp(path, solver.Options{Tolerance: 1e-6, MaxIterations: 50}, nil)
	require.NoError(t, err)
	return app, path
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t, solvableStore(t))
	srv := httptest.NewServer(app.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestGetProject(t *testing.T) {
	app, _ := newTestApp(t, solvableStore(t))
	srv := httptest.NewServer(app.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/project")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var doc project.Document
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "scene", doc.Name)
	assert.Len(t, doc.Points, 1)
	assert.Len(t, doc.Constraints, 1)
}

func TestSolveEndpoint(t *testing.T) {
	app, path := newTestApp(t, solvableStore(t))
	srv := httptest.NewServer(app.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/solve", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body solveResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Result.Converged)
	require.NotNil(t, body.Document)

	// The solved coordinates must be persisted back to the file.
	saved, err := project.Load(path)
	require.NoError(t, err)
	require.Len(t, saved.Points, 1)
	require.NotNil(t, saved.Points[0].X)
	assert.InDelta(t, 0, *saved.Points[0].X, 1e-4)
	assert.Equal(t, string(scene.ProvenanceOptimized), saved.Points[0].Source)
}

func TestSolveOptionOverrides(t *testing.T) {
	app, _ := newTestApp(t, solvableStore(t))
	srv := httptest.NewServer(app.Router())
	defer srv.Close()

	// One iteration is not enough to reach 1e-12 from (5,3,7).
	one := 1
	tol := 1e-12
	req, _ := json.Marshal(solveRequest{Tolerance: &tol, MaxIterations: &one})
	resp, err := http.Post(srv.URL+"/api/solve", "application/json", bytes.NewReader(req))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body solveResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Result.Iterations)
}

func TestValidateEndpoint(t *testing.T) {
	store := solvableStore(t)
	// Reference an entity that does not exist.
	bad := constraint.NewDistance("dangling", uuid.New(), uuid.New(), -1)
	require.NoError(t, store.AddConstraint(bad))

	app, _ := newTestApp(t, store)
	srv := httptest.NewServer(app.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/validate", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestValidatePasses(t *testing.T) {
	app, _ := newTestApp(t, solvableStore(t))
	srv := httptest.NewServer(app.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/validate", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSolveRejectsInvalidProject(t *testing.T) {
	store := solvableStore(t)
	require.NoError(t, store.AddConstraint(constraint.NewDistance("neg", uuid.New(), uuid.New(), -1)))

	app, _ := newTestApp(t, store)
	srv := httptest.NewServer(app.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/solve", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestConstraintsEndpoint(t *testing.T) {
	app, _ := newTestApp(t, solvableStore(t))
	srv := httptest.NewServer(app.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/constraints")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dtos []constraint.DTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&dtos))
	require.Len(t, dtos, 1)
	assert.Equal(t, "pin", dtos[0].Name)
	assert.Equal(t, constraint.TypeFixedPoint, dtos[0].Type)
}

func TestNewAppMissingFile(t *testing.T) {
	_, err := NewApp(filepath.Join(t.TempDir(), "nope.json"), solver.Options{}, nil)
	assert.Error(t, err)
}

func TestServerGracefulShutdown(t *testing.T) {
	app, _ := newTestApp(t, solvableStore(t))

	cfg := DefaultConfig(app.Router())
	cfg.Address = "127.0.0.1:0"
	srv, err := NewServer(cfg)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.ErrorIs(t, <-done, http.ErrServerClosed)
}
