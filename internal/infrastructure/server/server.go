package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/leondli/tagserver/internal/infrastructure/config"
	"github.com/leondli/tagserver/internal/infrastructure/middleware"
)

// Server represents the HTTP server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     *config.ServerConfig

	mu       sync.Mutex
	listener net.Listener
}

// New creates a new HTTP server
func New(cfg *config.ServerConfig) *Server {
	gin.SetMode(cfg.GinMode())

	router := gin.New()

	// Apply global middleware
	// the logger wraps recovery so panicking requests are still logged
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Recovery(cfg.ExposeErrors))
	router.Use(middleware.CORS())

	return &Server{
		router: router,
		config: cfg,
		httpServer: &http.Server{
			Addr:              cfg.GetAddress(),
			Handler:           router,
			ReadHeaderTimeout: cfg.ReadTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
	}
}

// Router returns the Gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start binds the configured address and serves until Shutdown. Port 0
// picks a free port; see Addr.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	log.Info().
		Str("address", ln.Addr().String()).
		Str("mode", s.config.GinMode()).
		Msg("Starting HTTP server")

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the bound address, or "" before Start has listened
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
