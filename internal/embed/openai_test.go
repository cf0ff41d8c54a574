// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaply/gaply-worker/pkg/types"
)

// embeddingServer returns a test server that produces a deterministic
// 4-dimensional vector per input text.
func embeddingServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type entry struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		resp := struct {
			Data []entry `json:"data"`
		}{}
		for i, text := range req.Input {
			var h float64
			for _, c := range text {
				h += float64(c)
			}
			resp.Data = append(resp.Data, entry{
				Index:     i,
				Embedding: []float64{h, float64(len(text)), 1, h / 2},
			})
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(types.EmbeddingConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second},
		BaseURL:    baseURL,
		Dimension:  4,
		BatchSize:  2,
	})
	require.NoError(t, err)
	return c
}

func TestClientNotReadyBeforeWarmup(t *testing.T) {
	ts := embeddingServer(t)
	defer ts.Close()

	c := testClient(t, ts.URL)
	assert.False(t, c.Ready())

	_, err := c.Embed(context.Background(), []string{"hello"})
	assert.ErrorIs(t, err, types.ErrModelUnready)
}

func TestClientWarmupThenEmbed(t *testing.T) {
	ts := embeddingServer(t)
	defer ts.Close()

	c := testClient(t, ts.URL)
	require.NoError(t, c.Warmup(context.Background()))
	assert.True(t, c.Ready())

	vectors, err := c.Embed(context.Background(), []string{"alpha", "beta", "gamma"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for _, v := range vectors {
		assert.Len(t, v, 4)
	}
}

func TestClientEmbedDeterministic(t *testing.T) {
	ts := embeddingServer(t)
	defer ts.Close()

	c := testClient(t, ts.URL)
	require.NoError(t, c.Warmup(context.Background()))

	first, err := c.Embed(context.Background(), []string{"determinism check"})
	require.NoError(t, err)
	second, err := c.Embed(context.Background(), []string{"determinism check"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestClientEmbedEmptyInput(t *testing.T) {
	ts := embeddingServer(t)
	defer ts.Close()

	c := testClient(t, ts.URL)
	require.NoError(t, c.Warmup(context.Background()))

	vectors, err := c.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestClientEmbedBatching(t *testing.T) {
	var requests int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.LessOrEqual(t, len(req.Input), 2)

		resp := embeddingResponse{}
		for i := range req.Input {
			resp.Data = append(resp.Data, struct {
				Index     int       `json:"index"`
				Embedding []float64 `json:"embedding"`
			}{Index: i, Embedding: []float64{1, 2, 3, 4}})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	c := testClient(t, ts.URL)
	require.NoError(t, c.Warmup(context.Background()))

	requests = 0
	vectors, err := c.Embed(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	assert.Len(t, vectors, 5)
	// Batch size 2 splits five texts into three requests.
	assert.Equal(t, 3, requests)
}

func TestClientRejectsWrongDimension(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"index": 0, "embedding": []float64{1, 2}}},
		})
	}))
	defer ts.Close()

	c := testClient(t, ts.URL)
	err := c.Warmup(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrUpstreamUnavailable))
	assert.False(t, c.Ready())
}

func TestClientUpstreamFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c, err := NewClient(types.EmbeddingConfig{
		HTTPConfig: types.HTTPConfig{Timeout: time.Second, MaxRetries: 1},
		BaseURL:    ts.URL,
		Dimension:  4,
	})
	require.NoError(t, err)

	err = c.Warmup(context.Background())
	assert.ErrorIs(t, err, types.ErrUpstreamUnavailable)
	assert.False(t, c.Ready())
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(types.EmbeddingConfig{})
	assert.ErrorIs(t, err, types.ErrValidation)
}
