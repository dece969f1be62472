package api

import (
	"context"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"

	"cohortprep/internal"
)

// AdminServer serves health checks and runtime profiling on a separate
// port, away from the public API
type AdminServer struct {
	router *chi.Mux
	db     *sqlx.DB
	port   string
	log    *internal.Logger
}

// NewAdminServer creates the admin router
func NewAdminServer(port string, db *sqlx.DB, log *internal.Logger) *AdminServer {
	if log == nil {
		log = internal.DefaultLogger
	}
	s := &AdminServer{
		router: chi.NewRouter(),
		db:     db,
		port:   port,
		log:    log,
	}
	s.setupRoutes()
	return s
}

func (s *AdminServer) setupRoutes() {
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/debug/pprof", func(r chi.Router) {
		r.Get("/", pprof.Index)
		r.Get("/cmdline", pprof.Cmdline)
		r.Get("/profile", pprof.Profile)
		r.Get("/symbol", pprof.Symbol)
		r.Get("/trace", pprof.Trace)
		r.Get("/{name}", func(w http.ResponseWriter, req *http.Request) {
			pprof.Handler(chi.URLParam(req, "name")).ServeHTTP(w, req)
		})
	})
}

// Router exposes the chi mux for testing
func (s *AdminServer) Router() http.Handler {
	return s.router
}

// Start runs the admin server; intended to run in its own goroutine
func (s *AdminServer) Start() error {
	s.log.Info("admin server listening on :%s", s.port)
	return http.ListenAndServe(":"+s.port, s.router)
}

// handleHealthz reports process liveness
func (s *AdminServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleReadyz reports readiness, including database reachability
func (s *AdminServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			s.log.Warn("readiness check failed: %v", err)
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
