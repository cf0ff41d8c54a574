// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vecindex

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gaply/gaply-worker/internal/embed"
	"github.com/gaply/gaply-worker/pkg/types"
)

// Memory is a brute-force in-memory index. It serves single-process
// deployments and tests; reads run concurrently under an RWMutex.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	points    map[string]Point
}

// NewMemory returns an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{points: make(map[string]Point)}
}

// Init fixes the vector dimension. Re-initializing with the same
// dimension is a no-op; changing it is rejected while points exist.
func (m *Memory) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", types.ErrValidation, dimension)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dimension != 0 && m.dimension != dimension && len(m.points) > 0 {
		return fmt.Errorf("%w: index already holds %d-dimensional vectors", types.ErrValidation, m.dimension)
	}
	m.dimension = dimension
	return nil
}

// Upsert stores points keyed by chunk id, overwriting existing entries.
func (m *Memory) Upsert(_ context.Context, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dimension == 0 {
		return fmt.Errorf("%w: index not initialized", types.ErrValidation)
	}
	for _, p := range points {
		if len(p.Vector) != m.dimension {
			return fmt.Errorf("%w: vector for %s has dimension %d, index expects %d",
				types.ErrValidation, p.ChunkID, len(p.Vector), m.dimension)
		}
	}
	for _, p := range points {
		m.points[p.ChunkID] = p
	}
	return nil
}

// Query ranks all candidates passing the filter by cosine distance.
func (m *Memory) Query(_ context.Context, vector []float64, k int, filter Filter) ([]types.SearchResult, error) {
	if err := validateQuery(vector, k); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]types.SearchResult, 0, len(m.points))
	for _, p := range m.points {
		if filter.PaperID != "" && p.Chunk.PaperID != filter.PaperID {
			continue
		}
		if filter.Section != "" && p.Chunk.Section != filter.Section {
			continue
		}
		dist, err := embed.CosineDistance(vector, p.Vector)
		if err != nil {
			return nil, err
		}
		results = append(results, resultFromPoint(p, dist))
	}

	sortResults(results)
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// DeleteByPaper removes every point whose payload matches the paper id.
func (m *Memory) DeleteByPaper(_ context.Context, paperID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.points {
		if p.Chunk.PaperID == paperID {
			delete(m.points, id)
		}
	}
	return nil
}

// Healthy always reports true: the store is the process itself.
func (m *Memory) Healthy(_ context.Context) bool { return true }

// Len reports the number of stored points.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points)
}

func resultFromPoint(p Point, distance float64) types.SearchResult {
	c := p.Chunk
	return types.SearchResult{
		ChunkID:        c.ChunkID,
		PaperID:        c.PaperID,
		Text:           c.Text,
		Section:        c.Section,
		Page:           c.Page,
		ParagraphIndex: c.ParagraphIndex,
		SentenceIndex:  c.SentenceIndex,
		DOI:            c.DOI,
		Title:          c.Title,
		Distance:       distance,
		Vector:         p.Vector,
	}
}

// sortResults orders by ascending distance, breaking exact ties by
// paragraph index then sentence index.
func sortResults(results []types.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		if results[i].ParagraphIndex != results[j].ParagraphIndex {
			return results[i].ParagraphIndex < results[j].ParagraphIndex
		}
		return results[i].SentenceIndex < results[j].SentenceIndex
	})
}
