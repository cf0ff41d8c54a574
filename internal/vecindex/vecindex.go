// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vecindex stores chunk embeddings and answers nearest-neighbor
// queries by cosine distance. Two backends exist: a Qdrant REST client
// and an in-memory brute-force index.
package vecindex

import (
	"context"
	"fmt"

	"github.com/gaply/gaply-worker/pkg/types"
)

// Point is one stored vector with its chunk metadata payload.
type Point struct {
	ChunkID string
	Vector  []float64
	Chunk   types.Chunk
}

// Filter restricts query candidates before ranking. Zero values mean no
// restriction.
type Filter struct {
	PaperID string
	Section types.Section
}

// Index is the vector index contract. Results are ordered by ascending
// cosine distance (1 - cosine similarity); ties are broken by lower
// paragraph index, then lower sentence index, for reproducible output.
type Index interface {
	// Init prepares the backing collection for vectors of the given
	// dimension. Idempotent.
	Init(ctx context.Context, dimension int) error

	// Upsert writes points keyed by chunk id; re-upserting an id
	// overwrites, never duplicates.
	Upsert(ctx context.Context, points []Point) error

	// Query returns up to k nearest stored vectors. k must be positive;
	// when fewer than k candidates exist all available are returned.
	Query(ctx context.Context, vector []float64, k int, filter Filter) ([]types.SearchResult, error)

	// DeleteByPaper removes every vector belonging to the paper.
	DeleteByPaper(ctx context.Context, paperID string) error

	// Healthy probes the backing store with a lightweight existence check.
	Healthy(ctx context.Context) bool
}

// New builds the configured index backend.
func New(cfg types.VectorIndexConfig) (Index, error) {
	switch cfg.Type {
	case "", "qdrant":
		return NewQdrant(cfg), nil
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: unknown vector index type %q", types.ErrValidation, cfg.Type)
	}
}

func validateQuery(vector []float64, k int) error {
	if k <= 0 {
		return fmt.Errorf("%w: k must be positive, got %d", types.ErrValidation, k)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty query vector", types.ErrValidation)
	}
	return nil
}
