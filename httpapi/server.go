// Package httpapi exposes the orchestration facade over HTTP. It is a thin
// JSON layer: every endpoint maps one-to-one onto a facade operation, and
// response codes are owned here, not in the runtime.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agentos-project/agentos"
)

// Server serves the module control API.
type Server struct {
	facade *agentos.Orchestrator
	logger agentos.Logger
}

// NewServer creates an HTTP server over the given facade.
func NewServer(facade *agentos.Orchestrator, logger agentos.Logger) *Server {
	return &Server{facade: facade, logger: logger}
}

// Router builds the chi router for the control API:
//
//	GET  /modules              catalog listing joined with live status
//	GET  /modules/{name}       one module (catalog row + live view if running)
//	POST /modules/{name}/enable
//	POST /modules/{name}/disable
//	POST /scan                 full manifest rescan
//	GET  /validate             core-module validation
//	GET  /health               aggregate health fan-out
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/modules", s.handleListModules)
	r.Get("/modules/{name}", s.handleGetModule)
	r.Post("/modules/{name}/enable", s.handleEnable)
	r.Post("/modules/{name}/disable", s.handleDisable)
	r.Post("/scan", s.handleScan)
	r.Get("/validate", s.handleValidate)
	r.Get("/health", s.handleHealth)

	return r
}

// moduleView is the JSON shape of one module: the persisted catalog row plus
// live runtime state when the module is running.
type moduleView struct {
	Name         string               `json:"name"`
	Version      string               `json:"version"`
	Type         agentos.ModuleType   `json:"type"`
	Dependencies []string             `json:"dependencies,omitempty"`
	Enabled      bool                 `json:"enabled"`
	Status       agentos.ModuleStatus `json:"status"`
	Error        string               `json:"error,omitempty"`
	Running      bool                 `json:"running"`
}

func viewFromRecord(rec agentos.Record, live *agentos.Instance) moduleView {
	view := moduleView{
		Name:         rec.Name,
		Version:      rec.Version,
		Type:         rec.Type,
		Dependencies: rec.Dependencies,
		Enabled:      rec.Enabled,
		Status:       rec.Status,
		Error:        rec.Error,
	}
	if live != nil {
		view.Running = true
		view.Status = live.Status()
	}
	return view
}

func (s *Server) handleListModules(w http.ResponseWriter, r *http.Request) {
	records, err := s.facade.ListCatalog(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	views := make([]moduleView, 0, len(records))
	for _, rec := range records {
		live, _ := s.facade.GetModule(rec.Name)
		views = append(views, viewFromRecord(rec, live))
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetModule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rec, err := s.facade.GetCatalogEntry(r.Context(), name)
	if err != nil {
		if errors.Is(err, agentos.ErrCatalogNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	live, _ := s.facade.GetModule(name)
	s.writeJSON(w, http.StatusOK, viewFromRecord(rec, live))
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	s.handleSetEnabled(w, r, s.facade.EnableModule)
}

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	s.handleSetEnabled(w, r, s.facade.DisableModule)
}

func (s *Server) handleSetEnabled(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, name string) error) {
	name := chi.URLParam(r, "name")
	if err := op(r.Context(), name); err != nil {
		if errors.Is(err, agentos.ErrCatalogNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"module": name, "result": "ok"})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	result, err := s.facade.ScanForModules(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	report, err := s.facade.ValidateCoreModules(r.Context())
	if err != nil {
		// Validation failures carry the full report alongside the error so
		// operators see everything wrong in one response.
		s.writeJSON(w, http.StatusConflict, map[string]any{
			"error":  err.Error(),
			"report": report,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snapshot := s.facade.HealthCheckAll(r.Context())
	status := http.StatusOK
	if !snapshot.Readiness.IsHealthy() {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, snapshot)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
