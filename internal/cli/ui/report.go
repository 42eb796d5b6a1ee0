package ui

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"

	"github.com/photoscene/photoscene/internal/constraint"
	"github.com/photoscene/photoscene/internal/solver"
)

// RenderSolveResult prints the outcome of one solve as a key-value
// block.
func RenderSolveResult(w io.Writer, res solver.Result, noColor bool) {
	if res.Converged {
		WriteSuccess(w, "solve converged", noColor)
	} else {
		msg := "solve did not converge"
		if res.Error != "" {
			msg = fmt.Sprintf("solve failed: %s", res.Error)
		}
		WriteError(w, ErrorOptions{
			Level:   ErrorLevelWarning,
			Problem: msg,
			NoColor: noColor,
		})
	}

	kv := NewKeyValueTable(w, noColor)
	kv.AddRow("Iterations", strconv.Itoa(res.Iterations))
	kv.AddRow("Residual", fmt.Sprintf("%.6g", res.Residual))
	kv.Render()
}

// RenderConstraintTable prints the evaluated status of every
// constraint.
func RenderConstraintTable(w io.Writer, constraints []constraint.Constraint, noColor bool) {
	table := NewTable(w, []string{"NAME", "TYPE", "STATUS", "VALUE", "ERROR"}, noColor)
	table.AlignRight(3, 4)
	for _, c := range constraints {
		b := c.Base()
		table.AddRow(
			b.Name,
			string(b.Type),
			statusCell(b.Status, noColor),
			fmt.Sprintf("%.6g", b.CurrentValue),
			fmt.Sprintf("%.6g", b.Err),
		)
	}
	table.Render()
}

// RenderValidationReport prints a pass/fail summary with one line per
// issue.
func RenderValidationReport(w io.Writer, report *constraint.Report, noColor bool) {
	if !report.HasIssues() {
		WriteSuccess(w, "all constraints are structurally valid", noColor)
		return
	}

	red := color.New(color.FgRed, color.Bold)
	if noColor {
		red.DisableColor()
	}
	red.Fprintf(w, "✗ %d validation issue(s)\n", report.Count())
	for _, issue := range report.Issues {
		fmt.Fprintf(w, "  - %s (%s): %s\n", issue.ConstraintName, issue.Field, issue.Message)
	}
}

func statusCell(s constraint.Status, noColor bool) string {
	var c *color.Color
	switch s {
	case constraint.StatusSatisfied:
		c = color.New(color.FgGreen)
	case constraint.StatusWarning:
		c = color.New(color.FgYellow)
	case constraint.StatusViolated:
		c = color.New(color.FgRed)
	default:
		c = color.New(color.FgHiBlack)
	}
	if noColor {
		c.DisableColor()
	}
	return c.Sprint(string(s))
}
