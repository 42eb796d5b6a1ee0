package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/photoscene/photoscene/internal/cli/config"
	"github.com/photoscene/photoscene/internal/cli/ui"
)

var (
	validateProject string
	validateNoColor bool
)

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [project-file]",
		Short: "Check the project's constraints for structural problems",
		Long: `Check every constraint for structural problems without solving:
wrong entity counts, duplicate or dangling references, negative
targets, angles outside [0, 180], and invalid tolerances.

Examples:
  photoscene validate
  photoscene validate scene.photoscene.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runValidate,
	}

	cmd.Flags().StringVarP(&validateProject, "project", "f", "", "Project file (default from photoscene.yml)")
	cmd.Flags().BoolVar(&validateNoColor, "no-color", false, "Disable colored output")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	path := resolveProjectPath(args, validateProject, cfg)
	store, err := loadStore(path)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.ProjectFileError(path, err, validateNoColor))
		return err
	}

	report := store.ValidateAll()
	ui.RenderValidationReport(cmd.OutOrStdout(), report, validateNoColor)
	if report.HasIssues() {
		return fmt.Errorf("%d validation issue(s)", report.Count())
	}
	return nil
}
