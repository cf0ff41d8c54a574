// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieval answers similarity queries over ingested chunks.
// The index is over-fetched so that near-duplicate suppression can
// still return k distinct results.
package retrieval

import (
	"context"
	"fmt"

	"github.com/gaply/gaply-worker/internal/embed"
	"github.com/gaply/gaply-worker/internal/vecindex"
	"github.com/gaply/gaply-worker/pkg/types"
)

const (
	// DefaultDedupThreshold is the cosine distance below which two
	// results are considered the same content.
	DefaultDedupThreshold = 0.02

	defaultMaxResults = 50

	// overfetchFactor widens the index query to survive dedup losses.
	overfetchFactor = 3
)

// Service runs embedding-based retrieval.
type Service struct {
	provider  embed.Provider
	index     vecindex.Index
	threshold float64
	maxK      int
}

// NewService builds a retrieval service. Zero config fields fall back to
// defaults.
func NewService(provider embed.Provider, index vecindex.Index, cfg types.RetrievalConfig) *Service {
	threshold := cfg.DedupThreshold
	if threshold == 0 {
		threshold = DefaultDedupThreshold
	}
	maxK := cfg.MaxResults
	if maxK == 0 {
		maxK = defaultMaxResults
	}
	return &Service{provider: provider, index: index, threshold: threshold, maxK: maxK}
}

// Retrieve embeds the query and returns up to k distinct results ordered
// by ascending cosine distance. Results closer than the dedup threshold
// to an already accepted result are suppressed. Fails fast with
// ErrModelUnready before the embedding model is warmed up.
func (s *Service) Retrieve(ctx context.Context, query string, k int, filter vecindex.Filter) ([]types.SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", types.ErrValidation)
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", types.ErrValidation, k)
	}
	if k > s.maxK {
		return nil, fmt.Errorf("%w: k exceeds maximum %d", types.ErrValidation, s.maxK)
	}
	if !s.provider.Ready() {
		return nil, fmt.Errorf("%w: embedding model is not warmed up", types.ErrModelUnready)
	}

	vectors, err := s.provider.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: embedding returned %d vectors for one query",
			types.ErrUpstreamUnavailable, len(vectors))
	}

	candidates, err := s.index.Query(ctx, vectors[0], k*overfetchFactor, filter)
	if err != nil {
		return nil, err
	}

	return s.dedup(candidates, k), nil
}

// dedup walks candidates in rank order, dropping any result whose stored
// vector is closer than the threshold to one already accepted.
func (s *Service) dedup(candidates []types.SearchResult, k int) []types.SearchResult {
	accepted := make([]types.SearchResult, 0, k)
	for _, cand := range candidates {
		if len(accepted) == k {
			break
		}
		if s.nearDuplicate(cand, accepted) {
			continue
		}
		accepted = append(accepted, cand)
	}
	return accepted
}

func (s *Service) nearDuplicate(cand types.SearchResult, accepted []types.SearchResult) bool {
	if len(cand.Vector) == 0 {
		return false
	}
	for _, a := range accepted {
		if len(a.Vector) == 0 {
			continue
		}
		dist, err := embed.CosineDistance(cand.Vector, a.Vector)
		if err != nil {
			continue
		}
		if dist < s.threshold {
			return true
		}
	}
	return false
}
