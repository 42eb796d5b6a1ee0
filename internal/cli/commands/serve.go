package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/photoscene/photoscene/internal/cli/config"
	"github.com/photoscene/photoscene/internal/web"
)

var (
	serveProject string
	serveHost    string
	servePort    int
	serveVerbose bool
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [project-file]",
		Short: "Serve the project over an HTTP API",
		Long: `Start an HTTP server exposing the project for editor integration.

Endpoints:
  GET  /health           - liveness check
  GET  /api/project      - current project document
  GET  /api/constraints  - evaluated constraint statuses
  POST /api/solve        - run the solver and persist the result
  POST /api/validate     - structural validation report

Examples:
  photoscene serve
  photoscene serve --port 8080
  photoscene serve scene.photoscene.json --host 0.0.0.0`,
		Args: cobra.MaximumNArgs(1),
		RunE: runServe,
	}

	cmd.Flags().StringVarP(&serveProject, "project", "f", "", "Project file (default from photoscene.yml)")
	cmd.Flags().StringVar(&serveHost, "host", "", "Host to bind (default from photoscene.yml)")
	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default from photoscene.yml)")
	cmd.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "Log each solver iteration")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	host := cfg.Server.Host
	if cmd.Flags().Changed("host") {
		host = serveHost
	}
	port := cfg.Server.Port
	if cmd.Flags().Changed("port") {
		port = servePort
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	path := resolveProjectPath(args, serveProject, cfg)
	app, err := web.NewApp(path, solverOptions(cfg, serveVerbose), log)
	if err != nil {
		return fmt.Errorf("failed to load project %s: %w", path, err)
	}

	serverCfg := web.DefaultConfig(app.Router())
	serverCfg.Address = fmt.Sprintf("%s:%d", host, port)
	serverCfg.Logger = log

	srv, err := web.NewServer(serverCfg)
	if err != nil {
		return err
	}

	infoColor := color.New(color.FgCyan)
	infoColor.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s\n", path, serverCfg.Address)

	return srv.Run(cmd.Context())
}
