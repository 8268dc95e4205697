package api

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gompdf/pageflow"
	"github.com/gompdf/pageflow/internal/config"
)

// Server is the HTTP API server for pageflow sessions.
type Server struct {
	router chi.Router
	log    *slog.Logger
	cfg    config.Config

	mu       sync.RWMutex
	sessions map[string]*pageflow.Session
}

// NewServer creates and configures the HTTP server.
func NewServer(log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		log:      log,
		cfg:      cfg,
		sessions: make(map[string]*pageflow.Session),
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/sessions", s.handleCreateSession)
		r.Get("/api/sessions", s.handleListSessions)

		r.Route("/api/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/edits", s.handleEdits)
			r.Post("/undo", s.handleUndo)
			r.Get("/pages", s.handlePages)
			r.Get("/export/{format}", s.handleExport)
		})
	})

	s.router = r
}

// sessionOptions derives session options from the server config. Uploaded
// documents never reach local files or private hosts.
func (s *Server) sessionOptions() []pageflow.Option {
	return []pageflow.Option{
		pageflow.WithDebounce(s.cfg.Debounce),
		pageflow.WithCooldown(s.cfg.Cooldown),
		pageflow.WithFrameInterval(s.cfg.FrameInterval),
		pageflow.WithSettleTimeout(s.cfg.SettleTimeout),
		pageflow.WithFetchTimeout(s.cfg.FetchTimeout),
		pageflow.WithSandbox(s.cfg.AllowedBases...),
		pageflow.WithLogger(s.log),
	}
}

func (s *Server) session(id string) *pageflow.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// Close closes every open session.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.Close()
		delete(s.sessions, id)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	n := len(s.sessions)
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": n})
}
