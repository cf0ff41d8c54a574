// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest runs the paper ingestion pipeline: fetch the PDF,
// extract structure, chunk into sentences, embed, and persist. Papers
// are processed one request at a time per paper id, and every stage
// transition is recorded so ingestion is observable while it runs.
package ingest

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gaply/gaply-worker/internal/embed"
	"github.com/gaply/gaply-worker/internal/extract"
	"github.com/gaply/gaply-worker/internal/vecindex"
	"github.com/gaply/gaply-worker/pkg/types"
)

// backgroundTimeout bounds a detached pipeline run; GROBID alone can
// take minutes on long papers.
const backgroundTimeout = 15 * time.Minute

// stateWriteTimeout bounds the terminal status write, which runs on its
// own context because the run context may already be dead.
const stateWriteTimeout = 10 * time.Second

// Store is the subset of the chunk store the pipeline writes to.
type Store interface {
	UpsertPaper(ctx context.Context, paper types.Paper) error
	AddChunks(ctx context.Context, paperID string, chunks []types.Chunk) error
	SetIngestState(ctx context.Context, paperID string, state types.IngestState, chunkCount int, errMsg string) error
	IngestStatus(ctx context.Context, paperID string) (types.IngestStatus, error)
}

// Manager coordinates ingestion runs. A second request for a paper that
// is already in flight is acknowledged without starting another run.
type Manager struct {
	fetcher   Fetcher
	extractor extract.Extractor
	provider  embed.Provider
	index     vecindex.Index
	store     Store
	logw      io.Writer

	mu       sync.Mutex
	inflight map[string]bool
	wg       sync.WaitGroup
}

// NewManager wires the pipeline stages together. logw receives progress
// lines; pass io.Discard to silence them.
func NewManager(fetcher Fetcher, extractor extract.Extractor, provider embed.Provider, index vecindex.Index, store Store, logw io.Writer) *Manager {
	if logw == nil {
		logw = io.Discard
	}
	return &Manager{
		fetcher:   fetcher,
		extractor: extractor,
		provider:  provider,
		index:     index,
		store:     store,
		logw:      logw,
		inflight:  make(map[string]bool),
	}
}

// Start begins a background ingestion and returns the paper id
// immediately. The id is derived from the identifier unless the caller
// supplies one. Progress is observable through Status from the moment
// Start returns.
func (m *Manager) Start(ctx context.Context, identifier, paperID string) (string, error) {
	paperID, err := m.resolveID(identifier, paperID)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	if m.inflight[paperID] {
		m.mu.Unlock()
		return paperID, nil
	}
	m.inflight[paperID] = true
	m.mu.Unlock()

	if err := m.store.SetIngestState(ctx, paperID, types.IngestPending, 0, ""); err != nil {
		m.release(paperID)
		return "", err
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.release(paperID)

		runCtx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()
		m.run(runCtx, paperID, identifier)
	}()
	return paperID, nil
}

// Ingest runs the pipeline synchronously and returns the final status.
func (m *Manager) Ingest(ctx context.Context, identifier, paperID string) (types.IngestStatus, error) {
	paperID, err := m.resolveID(identifier, paperID)
	if err != nil {
		return types.IngestStatus{}, err
	}

	m.mu.Lock()
	if m.inflight[paperID] {
		m.mu.Unlock()
		return m.store.IngestStatus(ctx, paperID)
	}
	m.inflight[paperID] = true
	m.mu.Unlock()
	defer m.release(paperID)

	if err := m.store.SetIngestState(ctx, paperID, types.IngestPending, 0, ""); err != nil {
		return types.IngestStatus{}, err
	}
	m.run(ctx, paperID, identifier)
	return m.store.IngestStatus(ctx, paperID)
}

// Status reports a paper's ingestion record.
func (m *Manager) Status(ctx context.Context, paperID string) (types.IngestStatus, error) {
	return m.store.IngestStatus(ctx, paperID)
}

// Wait blocks until all background runs finish. Used on shutdown and in
// tests.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) resolveID(identifier, paperID string) (string, error) {
	if identifier == "" {
		return "", fmt.Errorf("%w: identifier is required", types.ErrValidation)
	}
	if paperID != "" {
		return paperID, nil
	}
	idType, normalized := Classify(identifier)
	if idType == TypeUnknown {
		return "", fmt.Errorf("%w: unrecognized identifier %q", types.ErrValidation, identifier)
	}
	return Slug(idType, normalized), nil
}

func (m *Manager) release(paperID string) {
	m.mu.Lock()
	delete(m.inflight, paperID)
	m.mu.Unlock()
}

// run executes the pipeline stages, recording the terminal state. Any
// stage failure marks the ingestion failed with the cause; it never
// panics the caller. The terminal write is detached from the run
// context: a timeout or cancelled caller is exactly when the failed
// state must still land, or the paper would look like it is processing
// forever.
func (m *Manager) run(ctx context.Context, paperID, identifier string) {
	count, err := m.process(ctx, paperID, identifier)

	stateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stateWriteTimeout)
	defer cancel()
	if err != nil {
		fmt.Fprintf(m.logw, "ingest %s: failed: %v\n", paperID, err)
		if werr := m.store.SetIngestState(stateCtx, paperID, types.IngestFailed, 0, err.Error()); werr != nil {
			fmt.Fprintf(m.logw, "ingest %s: recording failure: %v\n", paperID, werr)
		}
		return
	}
	fmt.Fprintf(m.logw, "ingest %s: completed, %d chunks\n", paperID, count)
	if werr := m.store.SetIngestState(stateCtx, paperID, types.IngestCompleted, count, ""); werr != nil {
		fmt.Fprintf(m.logw, "ingest %s: recording completion: %v\n", paperID, werr)
	}
}

func (m *Manager) process(ctx context.Context, paperID, identifier string) (int, error) {
	if err := m.store.SetIngestState(ctx, paperID, types.IngestProcessing, 0, ""); err != nil {
		return 0, err
	}

	fmt.Fprintf(m.logw, "ingest %s: fetching %s\n", paperID, identifier)
	fetched, err := m.fetcher.Fetch(ctx, identifier)
	if err != nil {
		return 0, fmt.Errorf("fetching: %w", err)
	}

	fmt.Fprintf(m.logw, "ingest %s: extracting (%d bytes)\n", paperID, len(fetched.PDF))
	doc, err := m.extractor.Extract(ctx, fetched.PDF, fetched.Filename)
	if err != nil {
		return 0, fmt.Errorf("extracting: %w", err)
	}

	chunks := extract.ChunkDocument(paperID, doc)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: document produced no chunks", types.ErrValidation)
	}

	paper := doc.Paper
	paper.ID = paperID
	if paper.SourceURL == "" {
		paper.SourceURL = fetched.SourceURL
	}
	if err := m.store.UpsertPaper(ctx, paper); err != nil {
		return 0, fmt.Errorf("storing paper: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	fmt.Fprintf(m.logw, "ingest %s: embedding %d chunks\n", paperID, len(chunks))
	vectors, err := m.provider.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("%w: embedding returned %d vectors for %d chunks",
			types.ErrUpstreamUnavailable, len(vectors), len(chunks))
	}

	// Rows first: a chunk without a vector is unsearchable but
	// consistent, while a vector without its chunk row would break
	// provenance lookups.
	if err := m.store.AddChunks(ctx, paperID, chunks); err != nil {
		return 0, fmt.Errorf("storing chunks: %w", err)
	}

	points := make([]vecindex.Point, len(chunks))
	for i, c := range chunks {
		points[i] = vecindex.Point{ChunkID: c.ChunkID, Vector: vectors[i], Chunk: c}
	}
	if err := m.index.Upsert(ctx, points); err != nil {
		return 0, fmt.Errorf("indexing: %w", err)
	}

	return len(chunks), nil
}
