// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make
// network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxRetries is the number of retry attempts on transient failures
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "gaply-worker/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ExtractorConfig holds settings for the GROBID document structure
// extractor.
type ExtractorConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the GROBID service endpoint (default http://localhost:8070).
	BaseURL string `json:"base_url" yaml:"base_url"`
}

// EmbeddingConfig holds settings for the embedding provider.
type EmbeddingConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is an OpenAI-compatible embeddings endpoint.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Model is the embedding model identifier (e.g. "all-MiniLM-L6-v2").
	Model string `json:"model" yaml:"model"`

	// APIKey authenticates against the embeddings endpoint. Usually
	// loaded from .secrets/embedding-api-key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Dimension is the expected vector dimension (default 384). Every
	// stored vector has this length; responses with any other length are
	// rejected.
	Dimension int `json:"dimension" yaml:"dimension"`

	// BatchSize caps how many texts are embedded per request (default 32).
	BatchSize int `json:"batch_size" yaml:"batch_size"`
}

// VectorIndexConfig selects and configures the vector index backend.
type VectorIndexConfig struct {
	HTTPConfig `yaml:",inline"`

	// Type selects the backend: "qdrant" or "memory".
	Type string `json:"type" yaml:"type"`

	// URL is the Qdrant endpoint (default http://localhost:6333).
	URL string `json:"url" yaml:"url"`

	// APIKey is an optional Qdrant API key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Collection is the Qdrant collection name (default "gaply_papers").
	Collection string `json:"collection" yaml:"collection"`
}

// StoreConfig holds settings for the SQLite chunk store.
type StoreConfig struct {
	// DataDir is the base directory for worker data; the database lives
	// at DataDir/index/worker.db.
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// RetrievalConfig holds settings for the retrieval service.
type RetrievalConfig struct {
	// MaxResults is the default maximum number of results (default 10).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// DedupThreshold is the cosine distance below which two results are
	// treated as near-duplicates and only the first is kept (default 0.02).
	DedupThreshold float64 `json:"dedup_threshold" yaml:"dedup_threshold"`
}

// SummaryConfig holds settings for the summary assembler.
type SummaryConfig struct {
	// MaxItems caps how many chunks are selected for sentence and
	// paragraph granularity summaries (default 20).
	MaxItems int `json:"max_items" yaml:"max_items"`

	// MaxBullets caps item count for bullet-granularity summaries
	// (default 10).
	MaxBullets int `json:"max_bullets" yaml:"max_bullets"`

	// MaxChunks caps how many chunks are considered per summary
	// (default 200).
	MaxChunks int `json:"max_chunks" yaml:"max_chunks"`
}

// GapConfig holds settings for the gap finder.
type GapConfig struct {
	// CoverageThreshold is the cosine distance beyond which no paper is
	// considered to cover a probed aspect (default 0.35).
	CoverageThreshold float64 `json:"coverage_threshold" yaml:"coverage_threshold"`
}

// ServerConfig holds settings for the HTTP API server.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr"`
}

// WorkerConfig groups all component configurations.
type WorkerConfig struct {
	Server      ServerConfig      `json:"server" yaml:"server"`
	Extractor   ExtractorConfig   `json:"extractor" yaml:"extractor"`
	Embedding   EmbeddingConfig   `json:"embedding" yaml:"embedding"`
	VectorIndex VectorIndexConfig `json:"vector_index" yaml:"vector_index"`
	Store       StoreConfig       `json:"store" yaml:"store"`
	Retrieval   RetrievalConfig   `json:"retrieval" yaml:"retrieval"`
	Summary     SummaryConfig     `json:"summary" yaml:"summary"`
	Gap         GapConfig         `json:"gap" yaml:"gap"`
}
