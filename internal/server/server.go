// Package server provides the HTTP server for the reptrack dashboard and API.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ayusman/reptrack/internal/server/api"
	"github.com/ayusman/reptrack/internal/session"
	"github.com/ayusman/reptrack/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Sessions  *session.Manager
	// NewSource builds frame sources for started sessions. Defaults to real cameras and files.
	NewSource api.SourceFactory
	// CameraID is used when a start request names no camera.
	CameraID int
	Logger   *slog.Logger
}

// Server represents the HTTP server for the reptrack application.
type Server struct {
	config Config
	router chi.Router
	log    *slog.Logger
	live   *LiveHandler
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	log := config.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		config: config,
		router: chi.NewRouter(),
		log:    log,
		start:  time.Now(),
	}
	s.routes()
	return s
}

// routes configures all HTTP routes for the server.
func (s *Server) routes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		api.NewExerciseHandler().Register(r)

		if s.config.Store != nil {
			api.NewHistoryHandler(s.config.Store).Register(r)
		}

		if m := s.config.Sessions; m != nil {
			api.NewSessionHandler(m, s.config.Store, s.config.NewSource, s.config.CameraID, s.log).Register(r)
			r.Handle("/stream", NewStreamHandler(m))
			s.live = NewLiveHandler(m, s.log, liveInterval)
			r.Handle("/live", s.live)
		}
	})

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		s.router.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops background broadcasting and disconnects live clients.
func (s *Server) Close() {
	if s.live != nil {
		s.live.Close()
	}
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Sessions != nil {
		_, active := s.config.Sessions.Snapshot()
		response["session_active"] = active
	}
	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
