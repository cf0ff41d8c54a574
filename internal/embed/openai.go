// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gaply/gaply-worker/internal/httputil"
	"github.com/gaply/gaply-worker/pkg/types"
)

const (
	defaultBatchSize = 32
	defaultDimension = 384
	defaultModel     = "all-MiniLM-L6-v2"
)

// Client calls an OpenAI-compatible /embeddings endpoint. It reports
// Ready only after a successful warmup probe confirms the model is
// loaded and produces vectors of the configured dimension.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	userAgent  string
	dimension  int
	batchSize  int
	maxRetries int
	client     *http.Client
	ready      atomic.Bool
}

// NewClient builds a client from config. Call Warmup before serving
// traffic; until it succeeds Embed fails with ErrModelUnready.
func NewClient(cfg types.EmbeddingConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: embedding base_url is required", types.ErrValidation)
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = defaultDimension
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      model,
		userAgent:  cfg.UserAgent,
		dimension:  dimension,
		batchSize:  batchSize,
		maxRetries: cfg.MaxRetries,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

// Dimension returns the configured vector length.
func (c *Client) Dimension() int { return c.dimension }

// Ready reports whether the warmup probe has succeeded.
func (c *Client) Ready() bool { return c.ready.Load() }

// Warmup embeds a probe text to verify the endpoint is reachable and the
// model produces vectors of the configured dimension.
func (c *Client) Warmup(ctx context.Context) error {
	if _, err := c.embedBatch(ctx, []string{"warmup probe"}); err != nil {
		return err
	}
	c.ready.Store(true)
	return nil
}

// Embed returns one vector per text, preserving input order. Batches
// larger than the configured batch size are split across requests.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if !c.ready.Load() {
		return nil, types.ErrModelUnready
	}
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("encoding embeddings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating embeddings request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := httputil.DoWithRetry(ctx, c.client, req, c.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("%w: embeddings endpoint: %v", types.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: embeddings endpoint returned HTTP %d", types.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var er embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("parsing embeddings response: %w", err)
	}
	if len(er.Data) != len(texts) {
		return nil, fmt.Errorf("%w: embeddings endpoint returned %d vectors for %d texts",
			types.ErrUpstreamUnavailable, len(er.Data), len(texts))
	}

	// The endpoint may return entries out of order; place by index.
	vectors := make([][]float64, len(texts))
	for _, d := range er.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("%w: embeddings response index %d out of range", types.ErrUpstreamUnavailable, d.Index)
		}
		if len(d.Embedding) != c.dimension {
			return nil, fmt.Errorf("%w: embedding dimension %d, expected %d",
				types.ErrUpstreamUnavailable, len(d.Embedding), c.dimension)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("%w: embeddings response missing vector for input %d", types.ErrUpstreamUnavailable, i)
		}
	}
	return vectors, nil
}
