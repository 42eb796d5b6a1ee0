package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/photoscene/photoscene/internal/constraint"
	"github.com/photoscene/photoscene/internal/project"
	"github.com/photoscene/photoscene/internal/repository"
	"github.com/photoscene/photoscene/internal/scene"
)

// writeSolvableProject creates a project file with one free point
// pinned to the origin.
func writeSolvableProject(t *testing.T, dir string) string {
	t.Helper()
	store := repository.NewStore()
	p := scene.NewWorldPointAt("p", 5, 3, 7)
	if err := store.AddPoint(p); err != nil {
		t.Fatal(err)
	}
	if err := store.AddConstraint(constraint.NewFixedPoint("pin", p.ID, [3]float64{0, 0, 0})); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "scene.photoscene.json")
	if err := project.Save(path, project.Snapshot("scene", store)); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSolveCommand(t *testing.T) {
	path := writeSolvableProject(t, t.TempDir())

	cmd := NewSolveCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{path, "--no-color"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("solve failed: %v\n%s", err, out.String())
	}

	if !strings.Contains(out.String(), "solve converged") {
		t.Errorf("expected convergence message, got:\n%s", out.String())
	}

	// The file must carry the optimized coordinates.
	doc, err := project.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Points) != 1 || doc.Points[0].X == nil {
		t.Fatal("expected one point with defined X")
	}
	if x := *doc.Points[0].X; x < -1e-3 || x > 1e-3 {
		t.Errorf("expected X near 0 after solve, got %g", x)
	}
}

func TestSolveCommandDryRun(t *testing.T) {
	path := writeSolvableProject(t, t.TempDir())

	cmd := NewSolveCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{path, "--no-color", "--dry-run"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	// Dry run must leave the file untouched.
	doc, err := project.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if x := *doc.Points[0].X; x != 5 {
		t.Errorf("expected X unchanged at 5, got %g", x)
	}
}

func TestSolveCommandRejectsInvalidProject(t *testing.T) {
	dir := t.TempDir()
	store := repository.NewStore()
	bad := constraint.NewDistance("dangling", uuid.New(), uuid.New(), -1)
	if err := store.AddConstraint(bad); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "bad.photoscene.json")
	if err := project.Save(path, project.Snapshot("bad", store)); err != nil {
		t.Fatal(err)
	}

	cmd := NewSolveCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{path, "--no-color"})

	if err := cmd.Execute(); err == nil {
		t.Error("expected validation error")
	}
}

func TestSolveCommandMissingFile(t *testing.T) {
	cmd := NewSolveCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope.json"), "--no-color"})

	if err := cmd.Execute(); err == nil {
		t.Error("expected error for missing project file")
	}
}

func TestProjectName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"scene.photoscene.json", "scene"},
		{"/some/dir/courtyard.photoscene.json", "courtyard"},
		{"plain.json", "plain"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		if got := projectName(tt.path); got != tt.want {
			t.Errorf("projectName(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
