package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/photoscene/photoscene/internal/constraint"
	"github.com/photoscene/photoscene/internal/project"
	"github.com/photoscene/photoscene/internal/repository"
	"github.com/photoscene/photoscene/internal/solver"
)

// App serves a single project over HTTP. Solves are serialized; the
// store is not safe for concurrent mutation during a solve.
type App struct {
	mu    sync.Mutex
	path  string
	name  string
	store *repository.Store
	opts  solver.Options
	log   *zap.Logger
}

// NewApp loads the project at path and prepares it for serving.
func NewApp(path string, opts solver.Options, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	doc, err := project.Load(path)
	if err != nil {
		return nil, err
	}
	store, err := doc.Build()
	if err != nil {
		return nil, err
	}

	return &App{
		path:  path,
		name:  doc.Name,
		store: store,
		opts:  opts,
		log:   log,
	}, nil
}

// Router builds the HTTP API for the app.
func (a *App) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.requestLogger)

	r.Get("/health", a.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/project", a.handleProject)
		r.Get("/constraints", a.handleConstraints)
		r.Post("/solve", a.handleSolve)
		r.Post("/validate", a.handleValidate)
	})

	return r
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleProject(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	doc := project.Snapshot(a.name, a.store)
	a.mu.Unlock()

	writeJSON(w, http.StatusOK, doc)
}

func (a *App) handleConstraints(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.store.PreloadAll(); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	a.store.EvaluateAll()

	constraints := a.store.Constraints()
	dtos := make([]constraint.DTO, 0, len(constraints))
	for _, c := range constraints {
		dtos = append(dtos, c.ToDTO())
	}
	writeJSON(w, http.StatusOK, dtos)
}

// solveRequest optionally overrides solver options for one solve.
type solveRequest struct {
	Tolerance     *float64 `json:"tolerance,omitempty"`
	MaxIterations *int     `json:"maxIterations,omitempty"`
	Damping       *float64 `json:"damping,omitempty"`
}

// solveResponse pairs the solve outcome with the updated document.
type solveResponse struct {
	Result   solver.Result     `json:"result"`
	Document *project.Document `json:"document"`
}

func (a *App) handleSolve(w http.ResponseWriter, r *http.Request) {
	opts := a.opts

	if r.Body != nil && r.ContentLength != 0 {
		var req solveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if req.Tolerance != nil {
			opts.Tolerance = *req.Tolerance
		}
		if req.MaxIterations != nil {
			opts.MaxIterations = *req.MaxIterations
		}
		if req.Damping != nil {
			opts.Damping = *req.Damping
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	report := a.store.ValidateAll()
	if report.HasIssues() {
		writeJSON(w, http.StatusUnprocessableEntity, report)
		return
	}

	opts.Logger = a.log
	system := project.NewSystem(a.store, opts)

	start := time.Now()
	res := system.Solve()
	a.log.Info("solve finished",
		zap.Bool("converged", res.Converged),
		zap.Int("iterations", res.Iterations),
		zap.Float64("residual", res.Residual),
		zap.Duration("elapsed", time.Since(start)))

	if res.Error != "" {
		writeJSON(w, http.StatusConflict, solveResponse{Result: res})
		return
	}

	a.store.EvaluateAll()
	doc := project.Snapshot(a.name, a.store)
	if err := project.Save(a.path, doc); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, solveResponse{Result: res, Document: doc})
}

func (a *App) handleValidate(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	report := a.store.ValidateAll()
	a.mu.Unlock()

	status := http.StatusOK
	if report.HasIssues() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, report)
}

// requestLogger logs one line per request with status and latency.
func (a *App) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("requestID", middleware.GetReqID(r.Context())))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already written; an encode failure cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
