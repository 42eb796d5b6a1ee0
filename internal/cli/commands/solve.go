package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/photoscene/photoscene/internal/cli/config"
	"github.com/photoscene/photoscene/internal/cli/ui"
	"github.com/photoscene/photoscene/internal/project"
	"github.com/photoscene/photoscene/internal/repository"
	"github.com/photoscene/photoscene/internal/solver"
)

var (
	solveProject    string
	solveTolerance  float64
	solveMaxIters   int
	solveDamping    float64
	solveVerbose    bool
	solveDryRun     bool
	solveNoColor    bool
	solveShowStatus bool
)

// NewSolveCommand creates the solve command
func NewSolveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve [project-file]",
		Short: "Solve the scene's constraint system",
		Long: `Load a project file, run the constraint solver, and write the
optimized coordinates back to the file.

The solver adjusts every unlocked, defined coordinate until all
enabled driving constraints are satisfied within tolerance. Locked
coordinates and disabled constraints are left untouched.

Examples:
  photoscene solve
  photoscene solve scene.photoscene.json
  photoscene solve --tolerance 1e-8 --max-iterations 200
  photoscene solve --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSolve,
	}

	cmd.Flags().StringVarP(&solveProject, "project", "f", "", "Project file (default from photoscene.yml)")
	cmd.Flags().Float64Var(&solveTolerance, "tolerance", 0, "Convergence tolerance (residual norm)")
	cmd.Flags().IntVar(&solveMaxIters, "max-iterations", 0, "Maximum solver iterations")
	cmd.Flags().Float64Var(&solveDamping, "damping", 0, "Initial Levenberg-Marquardt damping")
	cmd.Flags().BoolVarP(&solveVerbose, "verbose", "v", false, "Log each solver iteration")
	cmd.Flags().BoolVar(&solveDryRun, "dry-run", false, "Solve without writing the project file")
	cmd.Flags().BoolVar(&solveNoColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&solveShowStatus, "status", true, "Show per-constraint status after solving")

	return cmd
}

func runSolve(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), []string{
			"Check photoscene.yml for invalid values",
			"Run 'photoscene new' to scaffold a fresh project",
		}, solveNoColor))
		return err
	}

	path := resolveProjectPath(args, solveProject, cfg)
	store, err := loadStore(path)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.ProjectFileError(path, err, solveNoColor))
		return err
	}

	if report := store.ValidateAll(); report.HasIssues() {
		ui.RenderValidationReport(out, report, solveNoColor)
		return fmt.Errorf("project has %d validation issue(s)", report.Count())
	}

	opts := solverOptions(cfg, solveVerbose)
	if cmd.Flags().Changed("tolerance") {
		opts.Tolerance = solveTolerance
	}
	if cmd.Flags().Changed("max-iterations") {
		opts.MaxIterations = solveMaxIters
	}
	if cmd.Flags().Changed("damping") {
		opts.Damping = solveDamping
	}

	system := project.NewSystem(store, opts)

	var res solver.Result
	spinErr := ui.WithSpinner(out, "Solving constraints...", solveNoColor, func() error {
		res = system.Solve()
		if res.Error != "" {
			return fmt.Errorf("%s", res.Error)
		}
		return nil
	})

	store.EvaluateAll()
	ui.RenderSolveResult(out, res, solveNoColor)
	if solveShowStatus {
		fmt.Fprintln(out)
		ui.RenderConstraintTable(out, store.Constraints(), solveNoColor)
	}

	if spinErr != nil {
		return spinErr
	}

	if !solveDryRun {
		name := projectName(path)
		if err := project.Save(path, project.Snapshot(name, store)); err != nil {
			return fmt.Errorf("failed to save project: %w", err)
		}
		fmt.Fprintln(out, ui.Info(fmt.Sprintf("Saved %s", path), solveNoColor))
	}

	return nil
}

// resolveProjectPath picks the project file from the positional arg,
// the --project flag, or the config default, in that order.
func resolveProjectPath(args []string, flag string, cfg *config.Config) string {
	if len(args) > 0 {
		return args[0]
	}
	if flag != "" {
		return flag
	}
	return cfg.ProjectFile
}

func loadStore(path string) (*repository.Store, error) {
	doc, err := project.Load(path)
	if err != nil {
		return nil, err
	}
	return doc.Build()
}

func solverOptions(cfg *config.Config, verbose bool) solver.Options {
	opts := solver.Options{
		Tolerance:     cfg.Solver.Tolerance,
		MaxIterations: cfg.Solver.MaxIterations,
		Damping:       cfg.Solver.Damping,
		Verbose:       verbose || cfg.Solver.Verbose,
	}
	if opts.Verbose {
		log, err := zap.NewDevelopment()
		if err == nil {
			opts.Logger = log
		}
	}
	return opts
}

// projectName derives a document name from the file path, trimming
// the conventional .photoscene.json suffix.
func projectName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".json")
	base = strings.TrimSuffix(base, ".photoscene")
	return base
}
