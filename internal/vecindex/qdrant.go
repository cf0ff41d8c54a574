// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vecindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gaply/gaply-worker/internal/httputil"
	"github.com/gaply/gaply-worker/pkg/types"
)

const defaultCollection = "gaply_papers"

// Qdrant is a REST client for a Qdrant collection configured with cosine
// distance. Qdrant reports similarity scores for cosine collections; the
// client converts them to cosine distance (1 - score) so every backend
// speaks the same metric.
type Qdrant struct {
	baseURL    string
	apiKey     string
	collection string
	userAgent  string
	maxRetries int
	client     *http.Client
}

// NewQdrant builds a client from config; the collection is created on
// Init if missing.
func NewQdrant(cfg types.VectorIndexConfig) *Qdrant {
	baseURL := cfg.URL
	if baseURL == "" {
		baseURL = "http://localhost:6333"
	}
	collection := cfg.Collection
	if collection == "" {
		collection = defaultCollection
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Qdrant{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		collection: collection,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		client:     &http.Client{Timeout: timeout},
	}
}

// pointID derives a stable Qdrant point id from a chunk id. Qdrant only
// accepts uuid or integer ids, so the chunk id is name-hashed; the real
// chunk id travels in the payload.
func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String()
}

// Init creates the collection with cosine distance if it does not exist.
func (q *Qdrant) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", types.ErrValidation, dimension)
	}

	status, err := q.do(ctx, http.MethodGet, q.collectionURL(), nil, nil)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{"size": dimension, "distance": "Cosine"},
	}
	status, err = q.do(ctx, http.MethodPut, q.collectionURL(), body, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("%w: creating qdrant collection %s: HTTP %d", types.ErrUpstreamUnavailable, q.collection, status)
	}
	return nil
}

// Upsert writes points with chunk metadata payloads.
func (q *Qdrant) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	qpoints := make([]map[string]any, len(points))
	for i, p := range points {
		c := p.Chunk
		qpoints[i] = map[string]any{
			"id":     pointID(p.ChunkID),
			"vector": p.Vector,
			"payload": map[string]any{
				"chunk_id":        c.ChunkID,
				"paper_id":        c.PaperID,
				"text":            c.Text,
				"section":         string(c.Section),
				"page":            c.Page,
				"paragraph_index": c.ParagraphIndex,
				"sentence_index":  c.SentenceIndex,
				"doi":             c.DOI,
				"title":           c.Title,
			},
		}
	}

	status, err := q.do(ctx, http.MethodPut, q.collectionURL()+"/points?wait=true", map[string]any{"points": qpoints}, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("%w: qdrant upsert: HTTP %d", types.ErrUpstreamUnavailable, status)
	}
	return nil
}

type qdrantHit struct {
	Score   float64        `json:"score"`
	Vector  []float64      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// Query searches the collection, restricting candidates with a payload
// filter before ranking.
func (q *Qdrant) Query(ctx context.Context, vector []float64, k int, filter Filter) ([]types.SearchResult, error) {
	if err := validateQuery(vector, k); err != nil {
		return nil, err
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
		"with_vector":  true,
	}
	if f := payloadFilter(filter); f != nil {
		req["filter"] = f
	}

	var resp struct {
		Result []qdrantHit `json:"result"`
	}
	status, err := q.do(ctx, http.MethodPost, q.collectionURL()+"/points/search", req, &resp)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, fmt.Errorf("%w: qdrant search: HTTP %d", types.ErrUpstreamUnavailable, status)
	}

	results := make([]types.SearchResult, 0, len(resp.Result))
	for _, hit := range resp.Result {
		r := types.SearchResult{
			Distance: 1 - hit.Score,
			Vector:   hit.Vector,
		}
		if v, ok := hit.Payload["chunk_id"].(string); ok {
			r.ChunkID = v
		}
		if v, ok := hit.Payload["paper_id"].(string); ok {
			r.PaperID = v
		}
		if v, ok := hit.Payload["text"].(string); ok {
			r.Text = v
		}
		if v, ok := hit.Payload["section"].(string); ok {
			r.Section = types.Section(v)
		}
		if v, ok := hit.Payload["page"].(float64); ok {
			r.Page = int(v)
		}
		if v, ok := hit.Payload["paragraph_index"].(float64); ok {
			r.ParagraphIndex = int(v)
		}
		if v, ok := hit.Payload["sentence_index"].(float64); ok {
			r.SentenceIndex = int(v)
		}
		if v, ok := hit.Payload["doi"].(string); ok {
			r.DOI = v
		}
		if v, ok := hit.Payload["title"].(string); ok {
			r.Title = v
		}
		results = append(results, r)
	}

	// Qdrant orders by score; re-sort for the position tie-break.
	sortResults(results)
	return results, nil
}

// DeleteByPaper removes all points whose payload matches the paper id.
func (q *Qdrant) DeleteByPaper(ctx context.Context, paperID string) error {
	req := map[string]any{"filter": payloadFilter(Filter{PaperID: paperID})}
	status, err := q.do(ctx, http.MethodPost, q.collectionURL()+"/points/delete?wait=true", req, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("%w: qdrant delete for paper %s: HTTP %d", types.ErrUpstreamUnavailable, paperID, status)
	}
	return nil
}

// Healthy probes the collection metadata endpoint.
func (q *Qdrant) Healthy(ctx context.Context) bool {
	status, err := q.do(ctx, http.MethodGet, q.collectionURL(), nil, nil)
	return err == nil && status == http.StatusOK
}

func payloadFilter(filter Filter) map[string]any {
	var must []map[string]any
	if filter.PaperID != "" {
		must = append(must, map[string]any{
			"key":   "paper_id",
			"match": map[string]any{"value": filter.PaperID},
		})
	}
	if filter.Section != "" {
		must = append(must, map[string]any{
			"key":   "section",
			"match": map[string]any{"value": string(filter.Section)},
		})
	}
	if must == nil {
		return nil
	}
	return map[string]any{"must": must}
}

// do issues a JSON request with retry and decodes the response into out
// when provided. Transport failures map to ErrUpstreamUnavailable.
func (q *Qdrant) do(ctx context.Context, method, url string, body, out any) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encoding qdrant request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, fmt.Errorf("creating qdrant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.userAgent != "" {
		req.Header.Set("User-Agent", q.userAgent)
	}
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := httputil.DoWithRetry(ctx, q.client, req, q.maxRetries)
	if err != nil {
		return 0, fmt.Errorf("%w: qdrant at %s: %v", types.ErrUpstreamUnavailable, q.baseURL, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("parsing qdrant response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (q *Qdrant) collectionURL() string {
	return q.baseURL + "/collections/" + q.collection
}
