// Package server provides the HTTP API for semloc.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/semloc/semloc/internal/config"
	"github.com/semloc/semloc/internal/kb"
	"github.com/semloc/semloc/internal/keyword"
	"github.com/semloc/semloc/internal/resolve"
	"github.com/semloc/semloc/internal/targets"
)

// Server is the HTTP server for the semloc API.
type Server struct {
	engine   *resolve.Engine
	store    kb.Store
	keywords keyword.KeywordIndex
	spell    *keyword.SpellChecker
	registry *targets.Registry
	config   *config.ServerConfig
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. spell may be nil.
func NewServer(
	engine *resolve.Engine,
	store kb.Store,
	keywords keyword.KeywordIndex,
	spell *keyword.SpellChecker,
	registry *targets.Registry,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:   engine,
		store:    store,
		keywords: keywords,
		spell:    spell,
		registry: registry,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/resolve", s.handleResolve)
	r.Post("/api/v1/discover", s.handleDiscover)
	r.Get("/api/v1/keys", s.handleListKeys)
	r.Get("/api/v1/keys/{key}", s.handleGetKey)
	r.Post("/api/v1/keys/{key}/annotations", s.handleAnnotate)
	r.Delete("/api/v1/keys/{key}/annotations/{id}", s.handleRevokeAnnotation)
	r.Post("/api/v1/keys/{key}/corrections", s.handleCorrect)
	r.Get("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
