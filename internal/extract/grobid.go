// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns PDF papers into structured documents: GROBID
// produces TEI XML, the TEI parser recovers metadata and paragraphs,
// and the chunker splits paragraphs into sentence chunks with
// positional provenance.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gaply/gaply-worker/internal/httputil"
	"github.com/gaply/gaply-worker/pkg/types"
)

// Extractor produces a structured Document from PDF bytes. Satisfied by
// GROBID; tests supply a stub.
type Extractor interface {
	Extract(ctx context.Context, pdf []byte, filename string) (Document, error)
	Healthy(ctx context.Context) bool
}

// GROBID is a client for a GROBID service. Full-text processing is slow
// for long papers, so the client defaults to a generous timeout.
type GROBID struct {
	baseURL    string
	userAgent  string
	maxRetries int
	client     *http.Client
}

// NewGROBID builds a client from config. BaseURL is required.
func NewGROBID(cfg types.ExtractorConfig) (*GROBID, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: GROBID base URL is required", types.ErrValidation)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	return &GROBID{
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

// Extract sends the PDF to GROBID's full-text endpoint and parses the
// TEI response into a Document.
func (g *GROBID) Extract(ctx context.Context, pdf []byte, filename string) (Document, error) {
	if len(pdf) == 0 {
		return Document{}, fmt.Errorf("%w: empty PDF", types.ErrValidation)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("input", filename)
	if err != nil {
		return Document{}, fmt.Errorf("building multipart form: %w", err)
	}
	if _, err := part.Write(pdf); err != nil {
		return Document{}, fmt.Errorf("writing PDF to form: %w", err)
	}
	mw.WriteField("consolidateHeader", "1")
	mw.WriteField("consolidateCitations", "1")
	if err := mw.Close(); err != nil {
		return Document{}, fmt.Errorf("closing multipart form: %w", err)
	}

	url := g.baseURL + "/api/processFulltextDocument"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return Document{}, fmt.Errorf("creating GROBID request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, g.client, req, g.maxRetries)
	if err != nil {
		return Document{}, fmt.Errorf("%w: GROBID at %s: %v", types.ErrUpstreamUnavailable, g.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("%w: GROBID processing: HTTP %d", types.ErrUpstreamUnavailable, resp.StatusCode)
	}

	tei, err := io.ReadAll(resp.Body)
	if err != nil {
		return Document{}, fmt.Errorf("reading GROBID response: %w", err)
	}
	return ParseTEI(tei)
}

// Healthy probes GROBID's liveness endpoint.
func (g *GROBID) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/api/isalive", nil)
	if err != nil {
		return false
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
