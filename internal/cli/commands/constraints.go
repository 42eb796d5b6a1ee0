package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/photoscene/photoscene/internal/cli/config"
	"github.com/photoscene/photoscene/internal/cli/ui"
	"github.com/photoscene/photoscene/internal/constraint"
)

var (
	constraintsProject string
	constraintsType    string
	constraintsNoColor bool
)

// constraintTypeNames lists every constraint type for filtering and
// fuzzy suggestions.
var constraintTypeNames = []string{
	string(constraint.TypeDistance),
	string(constraint.TypeAngle),
	string(constraint.TypeParallel),
	string(constraint.TypePerpendicular),
	string(constraint.TypeFixedPoint),
	string(constraint.TypeCollinear),
	string(constraint.TypeCoplanar),
	string(constraint.TypeEqualDistances),
	string(constraint.TypeEqualAngles),
}

// NewConstraintsCommand creates the constraints command
func NewConstraintsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "constraints [project-file]",
		Short: "List constraints with their evaluated status",
		Long: `Evaluate every constraint against the current coordinates and
print a status table.

Examples:
  photoscene constraints
  photoscene constraints --type distance
  photoscene constraints scene.photoscene.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runConstraints,
	}

	cmd.Flags().StringVarP(&constraintsProject, "project", "f", "", "Project file (default from photoscene.yml)")
	cmd.Flags().StringVarP(&constraintsType, "type", "t", "", "Only show constraints of this type")
	cmd.Flags().BoolVar(&constraintsNoColor, "no-color", false, "Disable colored output")

	return cmd
}

func runConstraints(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if constraintsType != "" && !constraint.Type(constraintsType).Valid() {
		suggestions := ui.FindSimilar(constraintsType, constraintTypeNames)
		fmt.Fprintln(cmd.ErrOrStderr(), ui.UnknownConstraintTypeError(constraintsType, suggestions, constraintsNoColor))
		return fmt.Errorf("unknown constraint type: %s", constraintsType)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	path := resolveProjectPath(args, constraintsProject, cfg)
	store, err := loadStore(path)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.ProjectFileError(path, err, constraintsNoColor))
		return err
	}

	store.EvaluateAll()

	constraints := store.Constraints()
	if constraintsType != "" {
		filtered := constraints[:0]
		for _, c := range constraints {
			if c.Base().Type == constraint.Type(constraintsType) {
				filtered = append(filtered, c)
			}
		}
		constraints = filtered
	}

	if len(constraints) == 0 {
		fmt.Fprintln(out, ui.Info("No constraints to show", constraintsNoColor))
		return nil
	}

	ui.RenderConstraintTable(out, constraints, constraintsNoColor)
	return nil
}
