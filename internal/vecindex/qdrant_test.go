// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vecindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaply/gaply-worker/pkg/types"
)

func qdrantConfig(url string) types.VectorIndexConfig {
	return types.VectorIndexConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 2 * time.Second, MaxRetries: 1},
		Type:       "qdrant",
		URL:        url,
		Collection: "test_papers",
	}
}

func TestQdrantInitCreatesMissingCollection(t *testing.T) {
	var created bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPut:
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			vectors := body["vectors"].(map[string]any)
			assert.Equal(t, float64(384), vectors["size"])
			assert.Equal(t, "Cosine", vectors["distance"])
			created = true
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer ts.Close()

	q := NewQdrant(qdrantConfig(ts.URL))
	require.NoError(t, q.Init(context.Background(), 384))
	assert.True(t, created)
}

func TestQdrantInitExistingCollection(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	q := NewQdrant(qdrantConfig(ts.URL))
	require.NoError(t, q.Init(context.Background(), 384))
}

func TestQdrantUpsertPayload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		assert.Contains(t, r.URL.Path, "/collections/test_papers/points")

		var body struct {
			Points []struct {
				ID      string         `json:"id"`
				Vector  []float64      `json:"vector"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Points, 1)

		p := body.Points[0]
		// Point ids are uuids derived from the chunk id.
		assert.Len(t, strings.Split(p.ID, "-"), 5)
		assert.Equal(t, "p1:1:0:0", p.Payload["chunk_id"])
		assert.Equal(t, "p1", p.Payload["paper_id"])
		assert.Equal(t, "body", p.Payload["section"])
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	q := NewQdrant(qdrantConfig(ts.URL))
	err := q.Upsert(context.Background(), []Point{
		chunkPoint("p1:1:0:0", "p1", []float64{1, 0, 0}, 0, 0),
	})
	require.NoError(t, err)
}

func TestQdrantPointIDStable(t *testing.T) {
	assert.Equal(t, pointID("p1:1:0:0"), pointID("p1:1:0:0"))
	assert.NotEqual(t, pointID("p1:1:0:0"), pointID("p1:1:0:1"))
}

func TestQdrantQuery(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(2), req["limit"])
		assert.Equal(t, true, req["with_vector"])

		// Paper filter must be present as a pre-ranking condition.
		filter := req["filter"].(map[string]any)
		must := filter["must"].([]any)
		cond := must[0].(map[string]any)
		assert.Equal(t, "paper_id", cond["key"])

		json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{
					"score":  0.95,
					"vector": []float64{1, 0, 0},
					"payload": map[string]any{
						"chunk_id": "p1:1:0:0", "paper_id": "p1", "text": "Intro sentence.",
						"section": "body", "page": 1, "paragraph_index": 0, "sentence_index": 0,
					},
				},
				{
					"score":  0.80,
					"vector": []float64{0, 1, 0},
					"payload": map[string]any{
						"chunk_id": "p1:1:1:0", "paper_id": "p1", "text": "Method sentence.",
						"section": "body", "page": 1, "paragraph_index": 1, "sentence_index": 0,
					},
				},
			},
		})
	}))
	defer ts.Close()

	q := NewQdrant(qdrantConfig(ts.URL))
	results, err := q.Query(context.Background(), []float64{1, 0, 0}, 2, Filter{PaperID: "p1"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "p1:1:0:0", results[0].ChunkID)
	assert.InDelta(t, 0.05, results[0].Distance, 1e-9)
	assert.InDelta(t, 0.20, results[1].Distance, 1e-9)
	assert.Equal(t, []float64{1, 0, 0}, results[0].Vector)
}

func TestQdrantQueryValidation(t *testing.T) {
	q := NewQdrant(qdrantConfig("http://localhost:1"))
	_, err := q.Query(context.Background(), []float64{1}, 0, Filter{})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestQdrantDeleteByPaper(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/points/delete")
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		filter := req["filter"].(map[string]any)
		must := filter["must"].([]any)
		cond := must[0].(map[string]any)
		match := cond["match"].(map[string]any)
		assert.Equal(t, "paper-a", match["value"])
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	q := NewQdrant(qdrantConfig(ts.URL))
	require.NoError(t, q.DeleteByPaper(context.Background(), "paper-a"))
}

func TestQdrantHealthy(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	q := NewQdrant(qdrantConfig(ts.URL))
	assert.True(t, q.Healthy(context.Background()))

	ts.Close()
	assert.False(t, q.Healthy(context.Background()))
}

func TestQdrantUnreachable(t *testing.T) {
	q := NewQdrant(qdrantConfig("http://127.0.0.1:1"))
	err := q.Upsert(context.Background(), []Point{chunkPoint("c1", "p1", []float64{1}, 0, 0)})
	assert.ErrorIs(t, err, types.ErrUpstreamUnavailable)
}
