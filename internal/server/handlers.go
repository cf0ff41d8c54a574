// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gaply/gaply-worker/internal/summary"
	"github.com/gaply/gaply-worker/internal/vecindex"
	"github.com/gaply/gaply-worker/pkg/types"
)

const defaultRetrieveK = 10

type ingestRequest struct {
	// Identifier is a DOI, arXiv id, URL, or local path. The doi and
	// storage_path fields are accepted as aliases for callers that
	// distinguish them.
	Identifier  string `json:"identifier"`
	DOI         string `json:"doi"`
	StoragePath string `json:"storage_path"`
	PaperID     string `json:"paper_id"`
}

func (r ingestRequest) identifier() string {
	switch {
	case r.Identifier != "":
		return r.Identifier
	case r.DOI != "":
		return r.DOI
	default:
		return r.StoragePath
	}
}

// handleIngest acknowledges with 202 and runs the pipeline in the
// background; progress is observable at /worker/ingest/:paperID.
func (s *Server) handleIngest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	paperID, err := s.deps.Manager.Start(c.Request.Context(), req.identifier(), req.PaperID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"paper_id": paperID,
		"state":    types.IngestPending,
	})
}

func (s *Server) handleIngestStatus(c *gin.Context) {
	status, err := s.deps.Manager.Status(c.Request.Context(), c.Param("paperID"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

type retrieveRequest struct {
	Query   string `json:"query" binding:"required"`
	K       int    `json:"k"`
	PaperID string `json:"paper_id"`
	Section string `json:"section"`
}

func (s *Server) handleRetrieve(c *gin.Context) {
	var req retrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.K == 0 {
		req.K = defaultRetrieveK
	}

	filter := vecindex.Filter{PaperID: req.PaperID, Section: types.Section(req.Section)}
	results, err := s.deps.Retrieval.Retrieve(c.Request.Context(), req.Query, req.K, filter)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"query":   req.Query,
		"results": results,
	})
}

type summarizeRequest struct {
	PaperID     string `json:"paper_id" binding:"required"`
	Scope       string `json:"scope"`
	Granularity string `json:"granularity"`
}

func (s *Server) handleSummarize(c *gin.Context) {
	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Scope == "" {
		req.Scope = string(summary.ScopeFull)
	}
	if req.Granularity == "" {
		req.Granularity = string(summary.GranularitySentence)
	}

	items, err := s.deps.Summary.Summarize(c.Request.Context(), req.PaperID,
		summary.Scope(req.Scope), summary.Granularity(req.Granularity))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"paper_id":    req.PaperID,
		"scope":       req.Scope,
		"granularity": req.Granularity,
		"items":       items,
	})
}

type gapfindRequest struct {
	PaperIDs []string `json:"paper_ids" binding:"required"`
	Topic    string   `json:"topic" binding:"required"`
}

func (s *Server) handleGapfind(c *gin.Context) {
	var req gapfindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	gaps, err := s.deps.Gapfind.FindGaps(c.Request.Context(), req.PaperIDs, req.Topic)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if gaps == nil {
		gaps = []types.Gap{}
	}
	c.JSON(http.StatusOK, gin.H{"gaps": gaps})
}

func (s *Server) handleListPapers(c *gin.Context) {
	papers, err := s.deps.Store.ListPapers(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	if papers == nil {
		papers = []types.Paper{}
	}
	c.JSON(http.StatusOK, gin.H{"papers": papers})
}

func (s *Server) handleGetPaper(c *gin.Context) {
	ctx := c.Request.Context()
	paperID := c.Param("paperID")

	paper, err := s.deps.Store.GetPaper(ctx, paperID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	count, err := s.deps.Store.CountChunks(ctx, paperID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"paper":       paper,
		"chunk_count": count,
	})
}

func (s *Server) handleDeletePaper(c *gin.Context) {
	if err := s.deps.Store.DeletePaper(c.Request.Context(), c.Param("paperID")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleHealth reports per-dependency health; 503 until everything the
// worker needs is reachable and the model is warmed up.
func (s *Server) handleHealth(c *gin.Context) {
	ctx := c.Request.Context()
	components := gin.H{
		"model_ready": s.deps.Provider.Ready(),
		"index":       s.deps.Index.Healthy(ctx),
		"extractor":   s.deps.Extractor.Healthy(ctx),
	}

	healthy := s.deps.Provider.Ready() && s.deps.Index.Healthy(ctx) && s.deps.Extractor.Healthy(ctx)
	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "components": components})
}
