package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/photoscene/photoscene/internal/repository"
	"github.com/photoscene/photoscene/internal/solver"
)

// Load reads and parses a project document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project file: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing project file %s: %w", path, err)
	}
	return &doc, nil
}

// Save writes the document to disk, creating parent directories as
// needed.
func Save(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding project: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating project directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing project file: %w", err)
	}
	return nil
}

// NewSystem builds a solver system over every entity, constraint, and
// observation in the store.
func NewSystem(store *repository.Store, opts solver.Options) *solver.System {
	sys := solver.New(store, opts)
	for _, p := range store.Points() {
		sys.AddPoint(p)
	}
	for _, c := range store.Cameras() {
		sys.AddCamera(c)
	}
	for _, c := range store.Constraints() {
		sys.AddConstraint(c)
	}
	for _, o := range store.Observations() {
		sys.AddObservation(o)
	}
	return sys
}
