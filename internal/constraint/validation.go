package constraint

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Issue is a single structural problem found on a constraint.
type Issue struct {
	ConstraintID   uuid.UUID `json:"constraintId"`
	ConstraintName string    `json:"constraintName"`
	Field          string    `json:"field"`
	Message        string    `json:"message"`
}

// Error implements the error interface
func (i Issue) Error() string {
	return fmt.Sprintf("%s (%s): %s: %s", i.ConstraintName, i.ConstraintID, i.Field, i.Message)
}

// Report collects the issues of a validation pass across constraints.
type Report struct {
	Issues []Issue `json:"issues"`
}

// NewReport creates an empty validation report.
func NewReport() *Report {
	return &Report{}
}

// Add appends a batch of issues to the report.
func (r *Report) Add(issues ...Issue) {
	r.Issues = append(r.Issues, issues...)
}

// HasIssues returns true if any constraint failed validation.
func (r *Report) HasIssues() bool {
	return len(r.Issues) > 0
}

// Count returns the total number of issues in the report.
func (r *Report) Count() int {
	return len(r.Issues)
}

// Error implements the error interface
func (r *Report) Error() string {
	if !r.HasIssues() {
		return "validation failed"
	}

	var messages []string
	for _, issue := range r.Issues {
		messages = append(messages, fmt.Sprintf("  - %s", issue.Error()))
	}

	if len(messages) == 1 {
		return fmt.Sprintf("validation failed: %s", strings.TrimPrefix(messages[0], "  - "))
	}

	return fmt.Sprintf("validation failed:\n%s", strings.Join(messages, "\n"))
}

// MarshalJSON implements json.Marshaler for custom JSON serialization
func (r *Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Error  string  `json:"error"`
		Issues []Issue `json:"issues"`
	}{
		Error:  "validation_failed",
		Issues: r.Issues,
	})
}

// MissingEntityError reports a constraint reference that does not
// resolve in the repository.
type MissingEntityError struct {
	Constraint uuid.UUID
	Entity     uuid.UUID
}

// Error implements the error interface
func (e *MissingEntityError) Error() string {
	return fmt.Sprintf("constraint %s references missing entity %s", e.Constraint, e.Entity)
}
