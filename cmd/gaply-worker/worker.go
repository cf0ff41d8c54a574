// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gaply/gaply-worker/internal/chunkstore"
	"github.com/gaply/gaply-worker/internal/embed"
	"github.com/gaply/gaply-worker/internal/extract"
	"github.com/gaply/gaply-worker/internal/gapfind"
	"github.com/gaply/gaply-worker/internal/ingest"
	"github.com/gaply/gaply-worker/internal/retrieval"
	"github.com/gaply/gaply-worker/internal/summary"
	"github.com/gaply/gaply-worker/internal/vecindex"
	"github.com/gaply/gaply-worker/pkg/types"
)

// worker bundles the wired pipeline for the CLI and the HTTP server.
type worker struct {
	cfg       types.WorkerConfig
	store     *chunkstore.Store
	index     vecindex.Index
	provider  *embed.Client
	extractor *extract.GROBID
	manager   *ingest.Manager
	retrieval *retrieval.Service
	summary   *summary.Assembler
	gapfind   *gapfind.Finder
}

// buildWorker constructs every component from configuration. With
// warmup set, it blocks until the embedding model answers a probe, so
// CLI subcommands fail fast instead of returning model-unready errors.
func buildWorker(ctx context.Context, warmup bool) (*worker, error) {
	cfg := workerConfig()

	provider, err := embed.NewClient(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	index, err := vecindex.New(cfg.VectorIndex)
	if err != nil {
		return nil, err
	}
	if err := index.Init(ctx, provider.Dimension()); err != nil {
		return nil, fmt.Errorf("initializing vector index: %w", err)
	}

	store, err := chunkstore.NewStore(cfg.Store, index)
	if err != nil {
		return nil, err
	}

	extractor, err := extract.NewGROBID(cfg.Extractor)
	if err != nil {
		store.Close()
		return nil, err
	}

	if warmup {
		if err := provider.Warmup(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("warming up embedding model: %w", err)
		}
	}

	fetcher := ingest.NewHTTPFetcher(cfg.Extractor.HTTPConfig)
	w := &worker{
		cfg:       cfg,
		store:     store,
		index:     index,
		provider:  provider,
		extractor: extractor,
		manager:   ingest.NewManager(fetcher, extractor, provider, index, store, os.Stderr),
		retrieval: retrieval.NewService(provider, index, cfg.Retrieval),
		summary:   summary.NewAssembler(provider, store, cfg.Summary),
		gapfind:   gapfind.NewFinder(provider, index, store, cfg.Gap),
	}
	return w, nil
}

func (w *worker) close() {
	w.manager.Wait()
	w.store.Close()
}
