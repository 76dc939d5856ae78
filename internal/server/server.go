// Package server provides the HTTP API for ajwiba.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/ajwiba/internal/config"
	"github.com/hyperjump/ajwiba/internal/indexer"
	"github.com/hyperjump/ajwiba/internal/search"
	"github.com/hyperjump/ajwiba/internal/storage"
	"go.uber.org/zap"
)

// Server is the HTTP server for the ajwiba API.
type Server struct {
	service *search.Service
	indexer *indexer.Indexer
	store   storage.QuestionStore // nil unless content comes from the SQLite store
	config  *config.ServerConfig
	full    *config.Config // optional, for status reporting
	logger  *zap.Logger
	limiter *clientLimiters
	router  chi.Router
	server  *http.Server
}

// NewServer creates a server with the given dependencies. idx, store and full may be nil.
func NewServer(
	service *search.Service,
	idx *indexer.Indexer,
	store storage.QuestionStore,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	full *config.Config,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		service: service,
		indexer: idx,
		store:   store,
		config:  cfg,
		full:    full,
		logger:  logger,
	}
	if cfg != nil && cfg.RateLimit > 0 {
		s.limiter = newClientLimiters(cfg.RateLimit, cfg.RateBurst)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(recoverer(s.logger))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Group(func(r chi.Router) {
		r.Use(rateLimit(s.limiter))
		r.Get("/search", s.handleSearch)
		r.Get("/api/v1/search", s.handleSearch)
		r.Post("/api/v1/search", s.handleSearchJSON)
	})

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)
	r.Post("/api/v1/reindex", s.handleReindex)

	r.Post("/api/v1/questions", s.handleUpsertQuestion)
	r.Get("/api/v1/questions/{slug}", s.handleGetQuestion)
	r.Delete("/api/v1/questions/{slug}", s.handleDeleteQuestion)
	return r
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr), zap.String("backend", s.service.BackendName()))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
