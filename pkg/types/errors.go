// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Sentinel errors classifying worker failures. Components wrap these with
// fmt.Errorf("...: %w", ...) and the HTTP boundary maps them to response
// codes with errors.Is.
var (
	// ErrValidation marks bad input shape or values, rejected before any
	// core logic runs.
	ErrValidation = errors.New("validation error")

	// ErrUpstreamUnavailable marks an unreachable collaborator (structure
	// extractor, vector backend, embedding endpoint) after retries.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrNotFound marks a referenced paper or chunk that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInconsistent marks a detected partial deletion or partial
	// ingestion. It is reported, never silently swallowed.
	ErrInconsistent = errors.New("inconsistent state")

	// ErrModelUnready marks the embedding provider before its model is
	// loaded. Callers fail fast instead of substituting fabricated vectors.
	ErrModelUnready = errors.New("embedding model not ready")
)
