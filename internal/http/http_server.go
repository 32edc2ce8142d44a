package http

// this is the entry point of the controller's status and control surface

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/emaxgrid.net/internal/controller"
	"gitlab.com/emaxgrid.net/internal/core/ports/primary"
	"gitlab.com/emaxgrid.net/internal/tcp/defs"
)

// Server exposes pool status and lets an external estimation driver trigger
// task rounds over HTTP.
type Server struct {
	router *mux.Router
	Port   int
	pool   *controller.Service
	logger primary.Logger
	srv    *http.Server
}

// NewServer creates the HTTP surface for one pool
func NewServer(port int, pool *controller.Service, logger primary.Logger) *Server {
	return &Server{
		Port:   port,
		pool:   pool,
		logger: logger,
	}
}

// Init wires the routes
func (s *Server) Init() error {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/pool", s.handlePoolStatus).Methods(http.MethodGet)
	r.HandleFunc("/rounds/solve", s.handleSolveRound).Methods(http.MethodPost)
	s.router = r
	return nil
}

// Start serves in the background
func (s *Server) Start(ctx context.Context) {
	s.srv = &http.Server{
		Addr:        fmt.Sprintf(":%d", s.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		s.logger.Info("HTTP surface listening", "port", s.Port)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()
}

// Stop shuts the HTTP surface down
func (s *Server) Stop() {
	if s.srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server forced to shutdown", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handlePoolStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pool.Status())
}

// handleSolveRound runs one synchronous solve round across the pool. The
// caller blocks until every member acknowledged the round.
func (s *Server) handleSolveRound(w http.ResponseWriter, r *http.Request) {
	results, err := s.pool.RunRound(r.Context(), defs.TaskSolve)
	if err != nil {
		s.logger.Error("Solve round failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
