// Package api implements the build server's HTTP control plane: instruction
// submission and state snapshot endpoints, backed by the scheduler.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"codeberg.org/opensuse/docbuildd/internal/metrics"
	"codeberg.org/opensuse/docbuildd/internal/model"
	"codeberg.org/opensuse/docbuildd/internal/scheduler"
)

// Historian looks up archived finished instructions for a target. Satisfied
// by *internal/state.History; left nil (its endpoint then 404s) when no
// history database is configured.
type Historian interface {
	ForTarget(ctx context.Context, target string, limit int) ([]*model.BuildInstruction, error)
}

// Server is the chi-routed HTTP control plane.
type Server struct {
	addr     string
	router   *chi.Mux
	server   *http.Server
	sched    *scheduler.Scheduler
	history  Historian
	recorder metrics.Recorder
}

// NewServer constructs a Server bound to addr, fronting sched. history may
// be nil when no historical archive is configured.
func NewServer(addr string, sched *scheduler.Scheduler, history Historian, recorder metrics.Recorder) *Server {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	s := &Server{
		addr:     addr,
		router:   chi.NewRouter(),
		sched:    sched,
		history:  history,
		recorder: recorder,
	}
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	s.router.Get("/", s.handleListInstructions)
	s.router.Get("/build_instructions/", s.handleListInstructions)
	s.router.Get("/build_instructions/history", s.handleHistory)
	s.router.Get("/deliverables/", s.handleListDeliverables)
	s.router.Post("/", s.handleSubmit)
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
