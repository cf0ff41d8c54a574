// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the worker over HTTP. Handlers validate and
// translate; all domain logic stays in the pipeline packages, and domain
// errors map onto HTTP statuses in one place.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gaply/gaply-worker/internal/embed"
	"github.com/gaply/gaply-worker/internal/extract"
	"github.com/gaply/gaply-worker/internal/gapfind"
	"github.com/gaply/gaply-worker/internal/ingest"
	"github.com/gaply/gaply-worker/internal/retrieval"
	"github.com/gaply/gaply-worker/internal/summary"
	"github.com/gaply/gaply-worker/internal/vecindex"
	"github.com/gaply/gaply-worker/pkg/types"
)

// Store is the subset of the chunk store the handlers read and delete
// through.
type Store interface {
	GetPaper(ctx context.Context, paperID string) (types.Paper, error)
	ListPapers(ctx context.Context) ([]types.Paper, error)
	CountChunks(ctx context.Context, paperID string) (int, error)
	DeletePaper(ctx context.Context, paperID string) error
}

// Deps carries the wired pipeline components.
type Deps struct {
	Manager   *ingest.Manager
	Retrieval *retrieval.Service
	Summary   *summary.Assembler
	Gapfind   *gapfind.Finder
	Store     Store
	Index     vecindex.Index
	Provider  embed.Provider
	Extractor extract.Extractor
}

// Server is the worker's HTTP surface.
type Server struct {
	deps   Deps
	engine *gin.Engine
}

// New builds the server and registers all routes.
func New(deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), cors())

	s := &Server{deps: deps, engine: engine}

	engine.GET("/health", s.handleHealth)

	worker := engine.Group("/worker")
	worker.POST("/ingest", s.handleIngest)
	worker.GET("/ingest/:paperID", s.handleIngestStatus)
	worker.POST("/retrieve", s.handleRetrieve)
	worker.POST("/summarize", s.handleSummarize)
	worker.POST("/gapfind", s.handleGapfind)
	worker.GET("/papers", s.handleListPapers)
	worker.GET("/papers/:paperID", s.handleGetPaper)
	worker.DELETE("/papers/:paperID", s.handleDeletePaper)

	return s
}

// Handler returns the HTTP handler, for tests and custom servers.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

// statusFromError maps the worker's error taxonomy onto HTTP statuses.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrModelUnready):
		return http.StatusServiceUnavailable
	case errors.Is(err, types.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFromError(err), gin.H{"error": err.Error()})
}

// cors allows browser frontends to call the worker directly.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
