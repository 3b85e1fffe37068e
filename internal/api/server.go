package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/charliek/respawn/internal/constants"
)

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Addr string // host:port; port 0 picks a free port
	// Middleware wraps every route, after the built-in middleware
	Middleware []func(http.Handler) http.Handler
	// Quiet disables the request logger
	Quiet bool
}

// Server is the read-only status API
type Server struct {
	config     ServerConfig
	router     *chi.Mux
	handlers   *Handlers
	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates a new API server
func NewServer(config ServerConfig, handlers *Handlers) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if !config.Quiet {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware())
	for _, mw := range config.Middleware {
		r.Use(mw)
	}

	s := &Server{
		config:   config,
		router:   r,
		handlers: handlers,
	}
	s.registerRoutes()

	return s
}

// corsMiddleware allows read-only access from localhost origins only
func corsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if isLocalhostOrigin(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// isLocalhostOrigin checks that origin is exactly a localhost address with an optional port
func isLocalhostOrigin(origin string) bool {
	if origin == "" {
		return false
	}

	localhostPrefixes := []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
		"http://[::1]",
		"https://[::1]",
	}

	for _, prefix := range localhostPrefixes {
		if origin == prefix || strings.HasPrefix(origin, prefix+":") {
			return true
		}
	}
	return false
}

// registerRoutes sets up all API routes
func (s *Server) registerRoutes() {
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Get("/metrics", s.handlers.Metrics)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.Timeout(constants.DefaultRequestTimeout)).Get("/status", s.handlers.GetStatus)
		r.With(middleware.Timeout(constants.DefaultRequestTimeout)).Get("/events", s.handlers.GetEvents)
		// Streams stay open; no timeout
		r.Get("/events/stream", s.handlers.StreamEvents)
	})
}

// Handler returns the router, for embedding or tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Listen binds the configured address. After it returns, Addr reports the
// bound address.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled for SSE
		IdleTimeout:  60 * time.Second,
	}
	s.mu.Unlock()
	return nil
}

// Serve serves requests on the bound listener until Shutdown.
// A normal shutdown returns nil.
func (s *Server) Serve() error {
	s.mu.Lock()
	server, ln := s.httpServer, s.listener
	s.mu.Unlock()

	if server == nil {
		return errors.New("api server: Listen must be called before Serve")
	}
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Start binds and serves
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	server := s.httpServer
	s.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// Addr returns the bound address once listening, the configured one before
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}
