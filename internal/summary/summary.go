// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summary builds extractive summaries from stored chunks. Every
// statement is a verbatim quote from the paper with provenance attached;
// nothing is generated, so a summary can always be audited against its
// source.
package summary

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gaply/gaply-worker/internal/embed"
	"github.com/gaply/gaply-worker/pkg/types"
)

// Scope selects which part of the paper to summarize.
type Scope string

const (
	ScopeFull     Scope = "full"
	ScopeAbstract Scope = "abstract"
)

// Granularity selects the shape of the summary items.
type Granularity string

const (
	GranularitySentence  Granularity = "sentence"
	GranularityParagraph Granularity = "paragraph"
	GranularityBullets   Granularity = "bullets"
)

const (
	defaultMaxItems   = 20
	defaultMaxBullets = 10
	defaultMaxChunks  = 200
)

// Store is the subset of the chunk store the assembler reads.
type Store interface {
	GetPaper(ctx context.Context, paperID string) (types.Paper, error)
	ChunksByPaper(ctx context.Context, paperID string) ([]types.Chunk, error)
}

// Assembler selects the most representative sentences of a paper by
// ranking chunk embeddings against their centroid.
type Assembler struct {
	provider   embed.Provider
	store      Store
	maxItems   int
	maxBullets int
	maxChunks  int
}

// NewAssembler builds an assembler. Zero config fields fall back to
// defaults.
func NewAssembler(provider embed.Provider, store Store, cfg types.SummaryConfig) *Assembler {
	maxItems := cfg.MaxItems
	if maxItems == 0 {
		maxItems = defaultMaxItems
	}
	maxBullets := cfg.MaxBullets
	if maxBullets == 0 {
		maxBullets = defaultMaxBullets
	}
	maxChunks := cfg.MaxChunks
	if maxChunks == 0 {
		maxChunks = defaultMaxChunks
	}
	return &Assembler{provider: provider, store: store, maxItems: maxItems, maxBullets: maxBullets, maxChunks: maxChunks}
}

// Summarize returns summary items for the paper. Sentence and paragraph
// granularity emit in document order; bullets emit by descending
// relevance. Every item carries at least one provenance entry; a
// statement that cannot be traced to a chunk is never produced.
func (a *Assembler) Summarize(ctx context.Context, paperID string, scope Scope, granularity Granularity) ([]types.SummaryItem, error) {
	if paperID == "" {
		return nil, fmt.Errorf("%w: paper id is required", types.ErrValidation)
	}
	switch scope {
	case ScopeFull, ScopeAbstract:
	default:
		return nil, fmt.Errorf("%w: unknown scope %q", types.ErrValidation, scope)
	}
	switch granularity {
	case GranularitySentence, GranularityParagraph, GranularityBullets:
	default:
		return nil, fmt.Errorf("%w: unknown granularity %q", types.ErrValidation, granularity)
	}
	if !a.provider.Ready() {
		return nil, fmt.Errorf("%w: embedding model is not warmed up", types.ErrModelUnready)
	}

	if _, err := a.store.GetPaper(ctx, paperID); err != nil {
		return nil, err
	}

	chunks, err := a.store.ChunksByPaper(ctx, paperID)
	if err != nil {
		return nil, err
	}
	if scope == ScopeAbstract {
		chunks = filterSection(chunks, types.SectionAbstract)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: paper %s has no %s content", types.ErrNotFound, paperID, scope)
	}
	if len(chunks) > a.maxChunks {
		chunks = chunks[:a.maxChunks]
	}

	limit := a.maxItems
	if granularity == GranularityBullets {
		limit = a.maxBullets
	}
	ranked, err := a.rankByCentroid(ctx, chunks, limit)
	if err != nil {
		return nil, err
	}

	if granularity == GranularityBullets {
		return itemsOf(relevanceOrder(ranked)), nil
	}
	selected := documentOrder(ranked)
	if granularity == GranularityParagraph {
		return groupByParagraph(selected), nil
	}
	return itemsOf(selected), nil
}

// rankedChunk pairs a chunk with its position in the document so the
// relevance ordering can be undone for document-order output.
type rankedChunk struct {
	chunk types.Chunk
	pos   int
}

// rankByCentroid ranks chunks by cosine similarity to the centroid of
// their embeddings and keeps the top n, most representative first. Ties
// fall back to document position.
func (a *Assembler) rankByCentroid(ctx context.Context, chunks []types.Chunk, n int) ([]rankedChunk, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := a.provider.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: embedding returned %d vectors for %d chunks",
			types.ErrUpstreamUnavailable, len(vectors), len(chunks))
	}

	centroid := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		for i, x := range v {
			centroid[i] += x
		}
	}
	for i := range centroid {
		centroid[i] /= float64(len(vectors))
	}

	scores := make([]float64, len(chunks))
	for i, v := range vectors {
		sim, err := embed.CosineSimilarity(centroid, v)
		if err != nil {
			return nil, err
		}
		scores[i] = sim
	}
	ranked := make([]rankedChunk, len(chunks))
	for i, c := range chunks {
		ranked[i] = rankedChunk{chunk: c, pos: i}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if scores[ranked[i].pos] != scores[ranked[j].pos] {
			return scores[ranked[i].pos] > scores[ranked[j].pos]
		}
		return ranked[i].pos < ranked[j].pos
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// documentOrder restores the original chunk order of a ranked selection.
func documentOrder(ranked []rankedChunk) []types.Chunk {
	sorted := append([]rankedChunk(nil), ranked...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].pos < sorted[j].pos })
	chunks := make([]types.Chunk, len(sorted))
	for i, r := range sorted {
		chunks[i] = r.chunk
	}
	return chunks
}

// relevanceOrder keeps the ranking as-is, dropping the positions.
func relevanceOrder(ranked []rankedChunk) []types.Chunk {
	chunks := make([]types.Chunk, len(ranked))
	for i, r := range ranked {
		chunks[i] = r.chunk
	}
	return chunks
}

func itemsOf(selected []types.Chunk) []types.SummaryItem {
	items := make([]types.SummaryItem, len(selected))
	for i, c := range selected {
		items[i] = types.SummaryItem{Text: c.Text, Provenance: []types.Provenance{provenanceOf(c)}}
	}
	return items
}

// groupByParagraph merges selected sentences from the same paragraph
// into one item whose provenance lists every contributing chunk.
func groupByParagraph(chunks []types.Chunk) []types.SummaryItem {
	var items []types.SummaryItem
	for _, c := range chunks {
		if n := len(items); n > 0 &&
			items[n-1].Provenance[0].Page == c.Page &&
			items[n-1].Provenance[0].ParagraphIndex == c.ParagraphIndex &&
			samePaper(items[n-1].Provenance[0].ChunkID, c.ChunkID) {
			items[n-1].Text = items[n-1].Text + " " + c.Text
			items[n-1].Provenance = append(items[n-1].Provenance, provenanceOf(c))
			continue
		}
		items = append(items, types.SummaryItem{
			Text:       c.Text,
			Provenance: []types.Provenance{provenanceOf(c)},
		})
	}
	return items
}

func samePaper(chunkID, otherID string) bool {
	a, _, _ := strings.Cut(chunkID, ":")
	b, _, _ := strings.Cut(otherID, ":")
	return a == b
}

func provenanceOf(c types.Chunk) types.Provenance {
	return types.Provenance{
		ChunkID:        c.ChunkID,
		DOI:            c.DOI,
		Page:           c.Page,
		ParagraphIndex: c.ParagraphIndex,
		SentenceIndex:  c.SentenceIndex,
		Quote:          c.Text,
	}
}

func filterSection(chunks []types.Chunk, section types.Section) []types.Chunk {
	var out []types.Chunk
	for _, c := range chunks {
		if c.Section == section {
			out = append(out, c)
		}
	}
	return out
}
