package repository

import "github.com/photoscene/photoscene/internal/constraint"

// PreloadAll resolves and caches the entity references of every
// enabled constraint, so that the per-iteration residual passes of a
// solve do not go back through the store. The first unresolvable
// reference aborts the pass.
func (s *Store) PreloadAll() error {
	for _, c := range s.Constraints() {
		if !c.Base().Enabled {
			continue
		}
		if err := c.Preload(s); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAll runs structural validation over every constraint and
// collects the issues into a single report.
func (s *Store) ValidateAll() *constraint.Report {
	report := constraint.NewReport()
	for _, c := range s.Constraints() {
		report.Add(c.Validate(s)...)
	}
	return report
}

// EvaluateAll refreshes the cached value, error, and status of every
// constraint against the current entity geometry.
func (s *Store) EvaluateAll() {
	for _, c := range s.Constraints() {
		c.Evaluate(s)
	}
}
