package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"polyvox/internal/config"
	"polyvox/internal/logging"
	"polyvox/internal/queue"
	"polyvox/internal/stage"
)

// HealthReporter is the workflow surface the server needs; kept narrow so
// tests can stub it.
type HealthReporter interface {
	Running() bool
	Health(ctx context.Context) []stage.Health
}

// Server exposes queue and workflow state over HTTP.
type Server struct {
	bind     string
	store    *queue.Store
	manager  HealthReporter
	logger   *slog.Logger
	server   *http.Server
	listener net.Listener
}

// NewServer constructs the API server. It does not bind yet; call Start.
func NewServer(cfg *config.Config, store *queue.Store, manager HealthReporter, logger *slog.Logger) *Server {
	s := &Server{
		bind:    strings.TrimSpace(cfg.Paths.APIBind),
		store:   store,
		manager: manager,
		logger:  logging.NewComponentLogger(logger, "api"),
	}
	s.server = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/queue", s.handleQueue)
		r.Get("/queue/{id}", s.handleQueueItem)
		r.Delete("/queue/completed", s.handleClearCompleted)
		r.Get("/workflows/{workflowID}", s.handleWorkflow)
		r.Post("/workflows/{workflowID}/cancel", s.handleCancel)
	})
	return r
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api bind address not configured")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	s.logger.Info("api server listening", logging.String("addr", listener.Addr().String()))
	return nil
}

// Addr returns the bound address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	db := s.store.CheckHealth(r.Context())
	stages := s.manager.Health(r.Context())
	healthy := db.DatabaseReadable && db.IntegrityCheck
	for _, st := range stages {
		if !st.Ready {
			healthy = false
		}
	}
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, map[string]any{
		"healthy":  healthy,
		"database": db,
		"stages":   stages,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	summary, err := s.store.Health(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, StatusView{
		Running: s.manager.Running(),
		Queue:   summary,
	})
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	var statuses []queue.Status
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, ok := queue.ParseStatus(strings.TrimSpace(part))
			if !ok {
				s.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown status %q", part))
				return
			}
			statuses = append(statuses, status)
		}
	}
	items, err := s.store.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": ItemViews(items)})
}

func (s *Server) handleQueueItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("job id must be numeric"))
		return
	}
	item, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if item == nil {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("job %d not found", id))
		return
	}
	s.writeJSON(w, http.StatusOK, itemView(item))
}

func (s *Server) handleClearCompleted(w http.ResponseWriter, r *http.Request) {
	removed, err := s.store.ClearCompleted(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

func (s *Server) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflowID")
	items, err := s.store.ListByWorkflow(r.Context(), workflowID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if len(items) == 0 {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("workflow %s not found", workflowID))
		return
	}
	s.writeJSON(w, http.StatusOK, NewWorkflowView(workflowID, items))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflowID")
	cancelled, err := s.store.CancelWorkflow(r.Context(), workflowID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.logger.Info("workflow cancelled",
		logging.String(logging.FieldWorkflowID, workflowID),
		logging.Int64("cancelled", cancelled),
	)
	s.writeJSON(w, http.StatusOK, map[string]any{"cancelled": cancelled})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Debug("response encode failed", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
