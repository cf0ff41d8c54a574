// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embed maps text to fixed-dimension vectors via an
// OpenAI-compatible embeddings endpoint and provides the cosine
// similarity used throughout retrieval.
package embed

import (
	"context"
	"fmt"
	"math"

	"github.com/gaply/gaply-worker/pkg/types"
)

// Provider converts text into fixed-dimension numeric vectors. For a
// given model version the mapping is deterministic: identical text always
// yields an identical vector.
type Provider interface {
	// Embed returns one vector per input text, same length and order as
	// the input. Embedding no texts returns an empty slice and no error.
	Embed(ctx context.Context, texts []string) ([][]float64, error)

	// Dimension is the process-wide vector length fixed by the model.
	Dimension() int

	// Ready reports whether the underlying model is loaded. When false,
	// callers fail fast with ErrModelUnready rather than substituting
	// fabricated vectors.
	Ready() bool
}

// CosineSimilarity returns dot(a,b) / (|a|*|b|), in [-1, 1]. It returns
// an error for mismatched dimensions or a zero-norm input; it never
// reports a silent 0 for undefined similarity.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: vector dimensions differ (%d vs %d)", types.ErrValidation, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("%w: cosine similarity undefined for zero-norm vector", types.ErrValidation)
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))

	// Clamp rounding drift so callers can rely on the [-1, 1] range.
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return sim, nil
}

// CosineDistance returns 1 - cosine similarity; lower is more similar.
func CosineDistance(a, b []float64) (float64, error) {
	sim, err := CosineSimilarity(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - sim, nil
}
