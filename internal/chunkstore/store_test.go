// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package chunkstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gaply/gaply-worker/pkg/types"
)

// stubDeleter stands in for the vector index in deletion cascades.
type stubDeleter struct {
	deleted []string
	err     error
}

func (d *stubDeleter) DeleteByPaper(_ context.Context, paperID string) error {
	if d.err != nil {
		return d.err
	}
	d.deleted = append(d.deleted, paperID)
	return nil
}

func newTestStore(t *testing.T) (*Store, *stubDeleter) {
	t.Helper()
	deleter := &stubDeleter{}
	store, err := NewStore(types.StoreConfig{DataDir: t.TempDir()}, deleter)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, deleter
}

func testChunks(paperID string, n int) []types.Chunk {
	chunks := make([]types.Chunk, n)
	for i := range chunks {
		chunks[i] = types.Chunk{
			ChunkID:        fmt.Sprintf("%s:1:%d:0", paperID, i),
			PaperID:        paperID,
			Text:           fmt.Sprintf("Sentence number %d.", i),
			Section:        types.SectionBody,
			Page:           1,
			ParagraphIndex: i,
			SentenceIndex:  0,
		}
	}
	return chunks
}

func TestAddAndGetChunk(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	chunks := testChunks("p1", 3)
	if err := store.AddChunks(ctx, "p1", chunks); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetChunk(ctx, chunks[1].ChunkID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != chunks[1].Text {
		t.Errorf("Text = %q, want %q", got.Text, chunks[1].Text)
	}
	if got.Section != types.SectionBody {
		t.Errorf("Section = %q, want body", got.Section)
	}
	if got.ParagraphIndex != 1 {
		t.Errorf("ParagraphIndex = %d, want 1", got.ParagraphIndex)
	}
}

func TestGetChunkNotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.GetChunk(context.Background(), "nope:1:0:0")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestAddChunksValidation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		paperID string
		chunks  []types.Chunk
	}{
		{"empty set", "p1", nil},
		{"missing paper id", "", testChunks("p1", 1)},
		{"missing text", "p1", []types.Chunk{{ChunkID: "p1:1:0:0", PaperID: "p1", Page: 1}}},
		{"wrong paper", "p1", testChunks("p2", 1)},
		{"invalid page", "p1", []types.Chunk{{ChunkID: "p1:0:0:0", PaperID: "p1", Text: "x", Page: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.AddChunks(ctx, tt.paperID, tt.chunks)
			if !errors.Is(err, types.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestAddChunksIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	chunks := testChunks("p1", 2)
	if err := store.AddChunks(ctx, "p1", chunks); err != nil {
		t.Fatal(err)
	}

	// Re-ingestion with the same deterministic ids must not duplicate.
	chunks[0].Text = "Revised sentence."
	if err := store.AddChunks(ctx, "p1", chunks); err != nil {
		t.Fatal(err)
	}

	n, err := store.CountChunks(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("CountChunks = %d after re-add, want 2", n)
	}

	got, err := store.GetChunk(ctx, chunks[0].ChunkID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "Revised sentence." {
		t.Errorf("Text = %q, want the replaced text", got.Text)
	}
}

func TestChunksByPaperOrder(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// Insert out of document order.
	chunks := []types.Chunk{
		{ChunkID: "p1:2:0:0", PaperID: "p1", Text: "c", Section: types.SectionBody, Page: 2, ParagraphIndex: 0, SentenceIndex: 0},
		{ChunkID: "p1:1:0:1", PaperID: "p1", Text: "b", Section: types.SectionBody, Page: 1, ParagraphIndex: 0, SentenceIndex: 1},
		{ChunkID: "p1:1:0:0", PaperID: "p1", Text: "a", Section: types.SectionBody, Page: 1, ParagraphIndex: 0, SentenceIndex: 0},
	}
	if err := store.AddChunks(ctx, "p1", chunks); err != nil {
		t.Fatal(err)
	}

	got, err := store.ChunksByPaper(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "c"}
	for i, text := range want {
		if got[i].Text != text {
			t.Errorf("chunk[%d].Text = %q, want %q", i, got[i].Text, text)
		}
	}
}

func TestPaperRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	paper := types.Paper{
		ID:      "p1",
		DOI:     "10.1000/xyz",
		Title:   "Attention Is All You Need",
		Authors: []string{"Vaswani", "Shazeer"},
		Abstract: "We propose a new simple network architecture, " +
			"the Transformer.",
		Date:      time.Date(2017, 6, 12, 0, 0, 0, 0, time.UTC),
		SourceURL: "https://arxiv.org/abs/1706.03762",
	}
	if err := store.UpsertPaper(ctx, paper); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetPaper(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != paper.Title || got.DOI != paper.DOI {
		t.Errorf("got %+v, want %+v", got, paper)
	}
	if len(got.Authors) != 2 || got.Authors[0] != "Vaswani" {
		t.Errorf("Authors = %v", got.Authors)
	}
	if !got.Date.Equal(paper.Date) {
		t.Errorf("Date = %v, want %v", got.Date, paper.Date)
	}

	// Upsert overwrites.
	paper.Title = "Updated title"
	if err := store.UpsertPaper(ctx, paper); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetPaper(ctx, "p1")
	if got.Title != "Updated title" {
		t.Errorf("Title = %q after upsert", got.Title)
	}

	papers, err := store.ListPapers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(papers) != 1 {
		t.Errorf("ListPapers returned %d papers, want 1", len(papers))
	}
}

func TestGetPaperNotFound(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.GetPaper(context.Background(), "missing")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDeletePaperCascade(t *testing.T) {
	store, deleter := newTestStore(t)
	ctx := context.Background()

	if err := store.AddChunks(ctx, "p1", testChunks("p1", 2)); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertPaper(ctx, types.Paper{ID: "p1", Title: "t"}); err != nil {
		t.Fatal(err)
	}
	if err := store.SetIngestState(ctx, "p1", types.IngestCompleted, 2, ""); err != nil {
		t.Fatal(err)
	}

	if err := store.DeletePaper(ctx, "p1"); err != nil {
		t.Fatal(err)
	}

	if len(deleter.deleted) != 1 || deleter.deleted[0] != "p1" {
		t.Errorf("vector deletion not invoked: %v", deleter.deleted)
	}
	if n, _ := store.CountChunks(ctx, "p1"); n != 0 {
		t.Errorf("chunks remain after deletion: %d", n)
	}
	if _, err := store.GetPaper(ctx, "p1"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("paper remains after deletion: %v", err)
	}
	if _, err := store.IngestStatus(ctx, "p1"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("ingestion record remains after deletion: %v", err)
	}
}

func TestDeletePaperNotFound(t *testing.T) {
	store, _ := newTestStore(t)
	err := store.DeletePaper(context.Background(), "missing")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestDeletePaperVectorFailureLeavesRows(t *testing.T) {
	store, deleter := newTestStore(t)
	ctx := context.Background()

	if err := store.AddChunks(ctx, "p1", testChunks("p1", 2)); err != nil {
		t.Fatal(err)
	}
	deleter.err = types.ErrUpstreamUnavailable

	err := store.DeletePaper(ctx, "p1")
	if !errors.Is(err, types.ErrUpstreamUnavailable) {
		t.Fatalf("error = %v, want ErrUpstreamUnavailable", err)
	}

	// Nothing was removed, so a retry can succeed.
	if n, _ := store.CountChunks(ctx, "p1"); n != 2 {
		t.Errorf("chunks = %d after failed deletion, want 2", n)
	}
}

func TestIngestStateTransitions(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.SetIngestState(ctx, "p1", types.IngestPending, 0, ""); err != nil {
		t.Fatal(err)
	}
	if err := store.SetIngestState(ctx, "p1", types.IngestProcessing, 0, ""); err != nil {
		t.Fatal(err)
	}
	if err := store.SetIngestState(ctx, "p1", types.IngestCompleted, 42, ""); err != nil {
		t.Fatal(err)
	}

	st, err := store.IngestStatus(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if st.State != types.IngestCompleted {
		t.Errorf("State = %q, want completed", st.State)
	}
	if st.ChunkCount != 42 {
		t.Errorf("ChunkCount = %d, want 42", st.ChunkCount)
	}
	if st.Error != "" {
		t.Errorf("Error = %q, want empty", st.Error)
	}
}

func TestIngestStateFailure(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.SetIngestState(ctx, "p1", types.IngestFailed, 0, "grobid unreachable"); err != nil {
		t.Fatal(err)
	}

	st, err := store.IngestStatus(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if st.State != types.IngestFailed || st.Error != "grobid unreachable" {
		t.Errorf("status = %+v", st)
	}
}

func TestIngestStatusNotFound(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.IngestStatus(context.Background(), "never-started")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestExportYAML(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.AddChunks(ctx, "p1", testChunks("p1", 2)); err != nil {
		t.Fatal(err)
	}

	var buf strings.Builder
	if err := store.ExportYAML(ctx, "p1", &buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "chunk_id: p1:1:0:0") {
		t.Errorf("export missing chunk id:\n%s", out)
	}
	if !strings.Contains(out, "section: body") {
		t.Errorf("export missing section:\n%s", out)
	}

	if err := store.ExportYAML(ctx, "missing", &buf); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
