// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Section labels the document region a chunk belongs to.
type Section string

const (
	SectionAbstract Section = "abstract"
	SectionBody     Section = "body"
)

// Chunk is the smallest retrievable unit of paper text, a single sentence
// with positional provenance. Chunks are immutable once created, owned by
// the chunk store, and destroyed only by explicit per-paper deletion.
type Chunk struct {
	// ChunkID is a stable identifier derived from the chunk's position
	// (paper:page:paragraph:sentence), so re-ingesting a paper overwrites
	// rather than duplicates.
	ChunkID string `json:"chunk_id" yaml:"chunk_id"`

	// PaperID identifies the paper aggregate this chunk belongs to.
	PaperID string `json:"paper_id" yaml:"paper_id"`

	// Text is the sentence text.
	Text string `json:"text" yaml:"text"`

	// Section is the document region: abstract or body.
	Section Section `json:"section" yaml:"section"`

	// Page is the 1-based page number where the sentence appears.
	Page int `json:"page" yaml:"page"`

	// ParagraphIndex is the 0-based paragraph position within the paper.
	ParagraphIndex int `json:"paragraph_index" yaml:"paragraph_index"`

	// SentenceIndex is the 0-based sentence position within the paragraph.
	SentenceIndex int `json:"sentence_index" yaml:"sentence_index"`

	// DOI is the source paper's DOI, empty when unknown.
	DOI string `json:"doi" yaml:"doi"`

	// Title is the source paper's title.
	Title string `json:"title" yaml:"title"`
}

// SearchResult is a retrieval hit: a chunk's metadata plus its cosine
// distance to the query. Transient, never persisted.
type SearchResult struct {
	ChunkID        string  `json:"chunk_id"`
	PaperID        string  `json:"paper_id"`
	Text           string  `json:"text"`
	Section        Section `json:"section"`
	Page           int     `json:"page"`
	ParagraphIndex int     `json:"paragraph_index"`
	SentenceIndex  int     `json:"sentence_index"`
	DOI            string  `json:"doi"`
	Title          string  `json:"title"`

	// Distance is the cosine distance (1 - cosine similarity); lower is
	// more similar.
	Distance float64 `json:"distance"`

	// Vector carries the stored embedding through the retrieval pipeline
	// for near-duplicate suppression. Not part of the response schema.
	Vector []float64 `json:"-"`
}

// Provenance links a summary statement back to its originating chunk:
// identifier, location, and verbatim quote.
type Provenance struct {
	ChunkID        string `json:"chunk_id" yaml:"chunk_id"`
	DOI            string `json:"doi" yaml:"doi"`
	Page           int    `json:"page" yaml:"page"`
	ParagraphIndex int    `json:"paragraph_index" yaml:"paragraph_index"`
	SentenceIndex  int    `json:"sentence_index" yaml:"sentence_index"`
	Quote          string `json:"quote" yaml:"quote"`
}

// SummaryItem is one statement of an evidence-backed summary. Every item
// carries at least one Provenance entry; an item with no traceable source
// is a contract violation and is never emitted. Request-scoped, not
// persisted.
type SummaryItem struct {
	Text       string       `json:"text" yaml:"text"`
	Provenance []Provenance `json:"provenance" yaml:"provenance"`
}

// Evidence identifies a paper supporting a gap statement.
type Evidence struct {
	PaperID string `json:"paper_id"`
	Title   string `json:"title"`
	DOI     string `json:"doi"`
}

// Gap is a candidate research gap with its supporting evidence. The
// statement and rationale are built only from retrieved material.
type Gap struct {
	ID        string     `json:"id"`
	Statement string     `json:"statement"`
	Score     float64    `json:"score"`
	Evidence  []Evidence `json:"evidence"`
	Rationale string     `json:"rationale"`
}
