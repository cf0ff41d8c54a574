// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// IngestState tracks a paper's background ingestion lifecycle.
type IngestState string

const (
	IngestPending    IngestState = "pending"
	IngestProcessing IngestState = "processing"
	IngestCompleted  IngestState = "completed"
	IngestFailed     IngestState = "failed"
)

// IngestStatus is the observable outcome record for a paper's ingestion.
// A paper stuck mid-ingestion is visible as failed, never silently
// indistinguishable from "not yet started".
type IngestStatus struct {
	PaperID string `json:"paper_id" yaml:"paper_id"`

	State IngestState `json:"state" yaml:"state"`

	// ChunkCount is the number of chunks written, set on completion.
	ChunkCount int `json:"chunk_count" yaml:"chunk_count"`

	// Error records the terminal failure message for failed ingestions.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	StartedAt time.Time `json:"started_at" yaml:"started_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}
