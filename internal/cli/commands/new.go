package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/photoscene/photoscene/internal/project"
	"github.com/photoscene/photoscene/internal/repository"
)

var (
	newInteractive bool
	newPort        int
	newTolerance   float64
)

// validateProjectName validates project name with security checks
func validateProjectName(name string) error {
	name = strings.TrimSpace(name)

	// Check length
	if len(name) == 0 || len(name) > 100 {
		return fmt.Errorf("project name must be 1-100 characters")
	}

	// Check for absolute paths
	if filepath.IsAbs(name) {
		return fmt.Errorf("project name cannot be an absolute path")
	}

	// Only allow alphanumeric, dash, and underscore
	// This regex already prevents dots (including ".."), so no additional check needed
	matched, _ := regexp.MatchString(`^[a-zA-Z0-9_-]+$`, name)
	if !matched {
		return fmt.Errorf("project name can only contain letters, numbers, dashes, and underscores")
	}

	return nil
}

// NewNewCommand creates the new command
func NewNewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new [project-name]",
		Short: "Create a new photoscene project",
		Long: `Create a new photoscene project with a config file and an empty
scene document.

If no project name is provided, you will be prompted to enter one.

Examples:
  photoscene new courtyard
  photoscene new facade-survey --port 8080
  photoscene new --interactive`,
		RunE: runNew,
	}

	cmd.Flags().BoolVarP(&newInteractive, "interactive", "i", false, "Interactive project setup with prompts")
	cmd.Flags().IntVar(&newPort, "port", 3000, "Default server port")
	cmd.Flags().Float64Var(&newTolerance, "tolerance", 1e-6, "Default solver tolerance")

	return cmd
}

func runNew(cmd *cobra.Command, args []string) error {
	var projectName string

	successColor := color.New(color.FgGreen, color.Bold)
	infoColor := color.New(color.FgCyan)
	promptColor := color.New(color.FgYellow)

	// Get project name from args or prompt
	if len(args) > 0 {
		projectName = args[0]
	}

	if projectName == "" {
		prompt := &survey.Input{
			Message: "Project name:",
		}
		if err := survey.AskOne(prompt, &projectName, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	// Interactive mode
	if newInteractive {
		questions := []*survey.Question{
			{
				Name: "projectName",
				Prompt: &survey.Input{
					Message: "Project name:",
					Default: projectName,
				},
				Validate: survey.Required,
			},
			{
				Name: "tolerance",
				Prompt: &survey.Input{
					Message: "Solver tolerance:",
					Default: "1e-6",
					Help:    "Residual norm below which a solve counts as converged",
				},
			},
			{
				Name: "port",
				Prompt: &survey.Input{
					Message: "Server port:",
					Default: "3000",
				},
			},
		}

		answers := struct {
			ProjectName string
			Tolerance   string
			Port        string
		}{}

		if err := survey.Ask(questions, &answers); err != nil {
			return err
		}

		projectName = answers.ProjectName

		if tol, err := strconv.ParseFloat(answers.Tolerance, 64); err == nil && tol > 0 {
			newTolerance = tol
		}
		fmt.Sscanf(answers.Port, "%d", &newPort)
	}

	// Validate project name with security checks
	if err := validateProjectName(projectName); err != nil {
		return err
	}

	// Create project directory
	projectPath := filepath.Join(".", projectName)
	if _, err := os.Stat(projectPath); err == nil {
		return fmt.Errorf("directory %s already exists", projectName)
	}

	infoColor.Fprintf(cmd.OutOrStdout(), "Creating project: %s\n\n", projectName)

	// Create directory structure
	dirs := []string{
		projectPath,
		filepath.Join(projectPath, "images"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	sceneFile := "scene.photoscene.json"

	// Write the config file
	configContent := fmt.Sprintf(`# photoscene project configuration
project_file: %s

solver:
  tolerance: %g
  max_iterations: 100
  damping: 1e-3
  verbose: false

server:
  host: localhost
  port: %d
`, sceneFile, newTolerance, newPort)

	configPath := filepath.Join(projectPath, "photoscene.yml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to create photoscene.yml: %w", err)
	}
	infoColor.Fprintln(cmd.OutOrStdout(), "  ✓ Created photoscene.yml")

	// Write an empty scene document
	scenePath := filepath.Join(projectPath, sceneFile)
	if err := project.Save(scenePath, project.Snapshot(projectName, repository.NewStore())); err != nil {
		return fmt.Errorf("failed to create %s: %w", sceneFile, err)
	}
	infoColor.Fprintf(cmd.OutOrStdout(), "  ✓ Created %s\n", sceneFile)

	// Create README
	readmePath := filepath.Join(projectPath, "README.md")
	readmeContent := fmt.Sprintf(`# %s

A photoscene reconstruction project.

## Getting Started

1. Add points, cameras, and constraints to %s

2. Check the constraint system:
   `+"`"+`bash
   photoscene validate
   `+"`"+`

3. Solve:
   `+"`"+`bash
   photoscene solve
   `+"`"+`

## Project Structure

- `+"`%s`"+` - Scene document (points, cameras, constraints)
- `+"`images/`"+` - Source photographs
- `+"`photoscene.yml`"+` - Project configuration
`, projectName, sceneFile, sceneFile)

	if err := os.WriteFile(readmePath, []byte(readmeContent), 0644); err != nil {
		return fmt.Errorf("failed to create README: %w", err)
	}
	infoColor.Fprintln(cmd.OutOrStdout(), "  ✓ Created README.md")

	// Print success message
	fmt.Fprintln(cmd.OutOrStdout())
	successColor.Fprintf(cmd.OutOrStdout(), "✓ Created project: %s\n\n", projectName)

	promptColor.Fprintln(cmd.OutOrStdout(), "Get started:")
	fmt.Fprintf(cmd.OutOrStdout(), "  cd %s\n", projectName)
	fmt.Fprintln(cmd.OutOrStdout(), "  photoscene validate")
	fmt.Fprintln(cmd.OutOrStdout(), "  photoscene solve")
	fmt.Fprintln(cmd.OutOrStdout())

	return nil
}
