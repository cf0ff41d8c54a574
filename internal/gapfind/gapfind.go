// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gapfind probes a set of ingested papers for aspects of a topic
// they fail to cover. Each aspect becomes an embedding query; when no
// paper comes close, the aspect is reported as a candidate gap backed by
// the nearest evidence found.
package gapfind

import (
	"context"
	"fmt"
	"math"

	"github.com/gaply/gaply-worker/internal/embed"
	"github.com/gaply/gaply-worker/internal/vecindex"
	"github.com/gaply/gaply-worker/pkg/types"
)

// DefaultCoverageThreshold is the cosine distance beyond which an aspect
// counts as uncovered.
const DefaultCoverageThreshold = 0.35

// perPaperK bounds how many chunks per paper feed each probe.
const perPaperK = 3

// aspects are the probe templates applied to the topic. Ordered, so gap
// ids are stable for a given corpus and topic.
var aspects = []struct {
	name     string
	template string
}{
	{"evaluation", "evaluation methodology and benchmarks for %s"},
	{"limitations", "limitations and failure modes of %s"},
	{"datasets", "datasets and data collection for %s"},
	{"reproducibility", "reproducibility and open implementations of %s"},
	{"scalability", "scalability and efficiency of %s"},
	{"deployment", "real-world deployment and applications of %s"},
}

// Store is the subset of the chunk store used to resolve evidence.
type Store interface {
	GetPaper(ctx context.Context, paperID string) (types.Paper, error)
}

// Finder locates candidate research gaps.
type Finder struct {
	provider  embed.Provider
	index     vecindex.Index
	store     Store
	threshold float64
}

// NewFinder builds a finder. A zero threshold falls back to the default.
func NewFinder(provider embed.Provider, index vecindex.Index, store Store, cfg types.GapConfig) *Finder {
	threshold := cfg.CoverageThreshold
	if threshold == 0 {
		threshold = DefaultCoverageThreshold
	}
	return &Finder{provider: provider, index: index, store: store, threshold: threshold}
}

// FindGaps probes every aspect of the topic against the given papers and
// returns the aspects none of them cover. Gap statements and rationale
// quote only retrieved material. Papers that were never ingested are a
// validation error.
func (f *Finder) FindGaps(ctx context.Context, paperIDs []string, topic string) ([]types.Gap, error) {
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", types.ErrValidation)
	}
	if len(paperIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one paper id is required", types.ErrValidation)
	}
	if !f.provider.Ready() {
		return nil, fmt.Errorf("%w: embedding model is not warmed up", types.ErrModelUnready)
	}

	papers := make(map[string]types.Paper, len(paperIDs))
	for _, id := range paperIDs {
		paper, err := f.store.GetPaper(ctx, id)
		if err != nil {
			return nil, err
		}
		papers[id] = paper
	}

	probes := make([]string, len(aspects))
	for i, a := range aspects {
		probes[i] = fmt.Sprintf(a.template, topic)
	}
	vectors, err := f.provider.Embed(ctx, probes)
	if err != nil {
		return nil, fmt.Errorf("embedding probes: %w", err)
	}
	if len(vectors) != len(probes) {
		return nil, fmt.Errorf("%w: embedding returned %d vectors for %d probes",
			types.ErrUpstreamUnavailable, len(vectors), len(probes))
	}

	var gaps []types.Gap
	for i, a := range aspects {
		gap, covered, err := f.probe(ctx, a.name, topic, vectors[i], paperIDs, papers)
		if err != nil {
			return nil, err
		}
		if !covered {
			gaps = append(gaps, gap)
		}
	}
	return gaps, nil
}

// probe queries each paper for the aspect vector and decides coverage
// from the closest hit across the whole set.
func (f *Finder) probe(ctx context.Context, aspect, topic string, vector []float64, paperIDs []string, papers map[string]types.Paper) (types.Gap, bool, error) {
	best := make(map[string]types.SearchResult, len(paperIDs))
	minDistance := math.Inf(1)

	for _, paperID := range paperIDs {
		hits, err := f.index.Query(ctx, vector, perPaperK, vecindex.Filter{PaperID: paperID})
		if err != nil {
			return types.Gap{}, false, err
		}
		if len(hits) == 0 {
			continue
		}
		best[paperID] = hits[0]
		if hits[0].Distance < minDistance {
			minDistance = hits[0].Distance
		}
	}

	if minDistance < f.threshold {
		return types.Gap{}, true, nil
	}

	// With no retrievable content there is no measured distance; report
	// the orthogonal distance instead of an infinity.
	score := minDistance
	if len(best) == 0 {
		score = 1.0
	}

	gap := types.Gap{
		ID: "gap-" + aspect,
		Statement: fmt.Sprintf("None of the analyzed papers substantially covers %s of %q.",
			aspectPhrase(aspect), topic),
		Score: score,
	}

	// Evidence: each paper's nearest attempt at the aspect, so the
	// reader can verify how far off the corpus is.
	for _, paperID := range paperIDs {
		hit, ok := best[paperID]
		paper := papers[paperID]
		gap.Evidence = append(gap.Evidence, types.Evidence{
			PaperID: paperID,
			Title:   paper.Title,
			DOI:     paper.DOI,
		})
		if ok && gap.Rationale == "" && hit.Distance == minDistance {
			gap.Rationale = fmt.Sprintf("Nearest coverage (distance %.2f) is %q from paper %s, page %d.",
				hit.Distance, hit.Text, paperID, hit.Page)
		}
	}
	if gap.Rationale == "" {
		gap.Rationale = "No retrievable content in the analyzed papers relates to this aspect."
	}
	return gap, false, nil
}

func aspectPhrase(aspect string) string {
	switch aspect {
	case "evaluation":
		return "evaluation methodology"
	case "limitations":
		return "limitations and failure modes"
	case "datasets":
		return "datasets and data collection"
	case "reproducibility":
		return "reproducibility"
	case "scalability":
		return "scalability"
	case "deployment":
		return "real-world deployment"
	default:
		return aspect
	}
}
