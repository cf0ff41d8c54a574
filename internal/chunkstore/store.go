// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package chunkstore persists paper chunks, paper metadata, and
// ingestion status in SQLite. It owns chunk lifecycle: chunks are
// immutable once written and removed only by explicit per-paper
// deletion, which cascades to the vector index.
package chunkstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/gaply/gaply-worker/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "worker.db"
)

// Deleter removes a paper's vectors from the vector index. Satisfied by
// vecindex.Index; declared here so the store depends only on the one
// operation the deletion cascade needs.
type Deleter interface {
	DeleteByPaper(ctx context.Context, paperID string) error
}

// Store manages the worker's SQLite database.
type Store struct {
	db      *sql.DB
	deleter Deleter
}

// NewStore opens or creates the database at dataDir/index/worker.db and
// creates the schema if it does not exist.
func NewStore(cfg types.StoreConfig, deleter Deleter) (*Store, error) {
	dbDir := filepath.Join(cfg.DataDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, deleter: deleter}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			doi TEXT,
			title TEXT,
			authors TEXT,
			abstract TEXT,
			date TEXT,
			source_url TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			chunk_id TEXT PRIMARY KEY,
			paper_id TEXT NOT NULL,
			text TEXT NOT NULL,
			section TEXT NOT NULL,
			page INTEGER NOT NULL,
			paragraph_index INTEGER NOT NULL,
			sentence_index INTEGER NOT NULL,
			doi TEXT,
			title TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_paper_id ON chunks(paper_id)`,
		`CREATE TABLE IF NOT EXISTS ingestions (
			paper_id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			chunk_count INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			started_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// AddChunks writes a paper's chunks in one transaction. Inserts are
// keyed by chunk_id with INSERT OR REPLACE, so re-ingesting a paper with
// the same id scheme overwrites rather than duplicates. Empty input is
// rejected.
func (s *Store) AddChunks(ctx context.Context, paperID string, chunks []types.Chunk) error {
	if paperID == "" {
		return fmt.Errorf("%w: paper id is required", types.ErrValidation)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("%w: no chunks to add for paper %s", types.ErrValidation, paperID)
	}
	for _, c := range chunks {
		if c.ChunkID == "" || c.Text == "" {
			return fmt.Errorf("%w: chunk missing id or text", types.ErrValidation)
		}
		if c.PaperID != paperID {
			return fmt.Errorf("%w: chunk %s belongs to paper %s, not %s",
				types.ErrValidation, c.ChunkID, c.PaperID, paperID)
		}
		if c.Page < 1 || c.ParagraphIndex < 0 || c.SentenceIndex < 0 {
			return fmt.Errorf("%w: chunk %s has invalid position", types.ErrValidation, c.ChunkID)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO chunks
			(chunk_id, paper_id, text, section, page, paragraph_index, sentence_index, doi, title)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		_, err := stmt.ExecContext(ctx,
			c.ChunkID, c.PaperID, c.Text, string(c.Section),
			c.Page, c.ParagraphIndex, c.SentenceIndex, c.DOI, c.Title,
		)
		if err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ChunkID, err)
		}
	}

	return tx.Commit()
}

// GetChunk returns a chunk by id, or ErrNotFound.
func (s *Store) GetChunk(ctx context.Context, chunkID string) (types.Chunk, error) {
	var c types.Chunk
	var section string
	err := s.db.QueryRowContext(ctx,
		`SELECT chunk_id, paper_id, text, section, page, paragraph_index, sentence_index, doi, title
		 FROM chunks WHERE chunk_id = ?`, chunkID,
	).Scan(&c.ChunkID, &c.PaperID, &c.Text, &section, &c.Page, &c.ParagraphIndex, &c.SentenceIndex, &c.DOI, &c.Title)

	if errors.Is(err, sql.ErrNoRows) {
		return types.Chunk{}, fmt.Errorf("%w: chunk %s", types.ErrNotFound, chunkID)
	}
	if err != nil {
		return types.Chunk{}, fmt.Errorf("looking up chunk: %w", err)
	}
	c.Section = types.Section(section)
	return c, nil
}

// ChunksByPaper returns a paper's chunks in document order.
func (s *Store) ChunksByPaper(ctx context.Context, paperID string) ([]types.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_id, paper_id, text, section, page, paragraph_index, sentence_index, doi, title
		 FROM chunks WHERE paper_id = ?
		 ORDER BY page, paragraph_index, sentence_index`, paperID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []types.Chunk
	for rows.Next() {
		var c types.Chunk
		var section string
		if err := rows.Scan(&c.ChunkID, &c.PaperID, &c.Text, &section,
			&c.Page, &c.ParagraphIndex, &c.SentenceIndex, &c.DOI, &c.Title); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		c.Section = types.Section(section)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// CountChunks returns the number of stored chunks for a paper.
func (s *Store) CountChunks(ctx context.Context, paperID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM chunks WHERE paper_id = ?`, paperID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// UpsertPaper writes or updates a paper metadata record.
func (s *Store) UpsertPaper(ctx context.Context, paper types.Paper) error {
	if paper.ID == "" {
		return fmt.Errorf("%w: paper id is required", types.ErrValidation)
	}
	authorsJSON, _ := json.Marshal(paper.Authors)
	dateStr := ""
	if !paper.Date.IsZero() {
		dateStr = paper.Date.Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO papers (id, doi, title, authors, abstract, date, source_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			doi=excluded.doi, title=excluded.title, authors=excluded.authors,
			abstract=excluded.abstract, date=excluded.date, source_url=excluded.source_url`,
		paper.ID, paper.DOI, paper.Title, string(authorsJSON), paper.Abstract, dateStr, paper.SourceURL,
	)
	if err != nil {
		return fmt.Errorf("upserting paper: %w", err)
	}
	return nil
}

// GetPaper returns a paper metadata record, or ErrNotFound.
func (s *Store) GetPaper(ctx context.Context, paperID string) (types.Paper, error) {
	var p types.Paper
	var authorsJSON, dateStr sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, doi, title, authors, abstract, date, source_url FROM papers WHERE id = ?`, paperID,
	).Scan(&p.ID, &p.DOI, &p.Title, &authorsJSON, &p.Abstract, &dateStr, &p.SourceURL)

	if errors.Is(err, sql.ErrNoRows) {
		return types.Paper{}, fmt.Errorf("%w: paper %s", types.ErrNotFound, paperID)
	}
	if err != nil {
		return types.Paper{}, fmt.Errorf("looking up paper: %w", err)
	}

	if authorsJSON.Valid {
		json.Unmarshal([]byte(authorsJSON.String), &p.Authors)
	}
	if dateStr.Valid && dateStr.String != "" {
		if t, parseErr := time.Parse(time.RFC3339, dateStr.String); parseErr == nil {
			p.Date = t
		}
	}
	return p, nil
}

// ListPapers returns all paper metadata records ordered by id.
func (s *Store) ListPapers(ctx context.Context) ([]types.Paper, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doi, title, authors, abstract, date, source_url FROM papers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
	}
	defer rows.Close()

	var papers []types.Paper
	for rows.Next() {
		var p types.Paper
		var authorsJSON, dateStr sql.NullString
		if err := rows.Scan(&p.ID, &p.DOI, &p.Title, &authorsJSON, &p.Abstract, &dateStr, &p.SourceURL); err != nil {
			return nil, fmt.Errorf("scanning paper row: %w", err)
		}
		if authorsJSON.Valid {
			json.Unmarshal([]byte(authorsJSON.String), &p.Authors)
		}
		if dateStr.Valid && dateStr.String != "" {
			if t, parseErr := time.Parse(time.RFC3339, dateStr.String); parseErr == nil {
				p.Date = t
			}
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

// DeletePaper removes a paper: vectors first, then rows. If the vector
// deletion fails nothing is removed and the typed upstream error is
// returned. If the row deletion fails after vectors are gone, the
// paper's ingestion record is marked failed with the inconsistency and
// ErrInconsistent is returned; the condition is never silently
// swallowed.
func (s *Store) DeletePaper(ctx context.Context, paperID string) error {
	n, err := s.CountChunks(ctx, paperID)
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.GetPaper(ctx, paperID); err != nil {
			return err
		}
	}

	if err := s.deleter.DeleteByPaper(ctx, paperID); err != nil {
		return fmt.Errorf("deleting vectors for paper %s: %w", paperID, err)
	}

	if err := s.deleteRows(ctx, paperID); err != nil {
		s.SetIngestState(ctx, paperID, types.IngestFailed, 0,
			fmt.Sprintf("partial deletion: vectors removed but chunks remain: %v", err))
		return fmt.Errorf("%w: vectors deleted but rows remain for paper %s: %v",
			types.ErrInconsistent, paperID, err)
	}
	return nil
}

func (s *Store) deleteRows(ctx context.Context, paperID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM chunks WHERE paper_id = ?`,
		`DELETE FROM papers WHERE id = ?`,
		`DELETE FROM ingestions WHERE paper_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, paperID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SetIngestState records a paper's ingestion state transition.
func (s *Store) SetIngestState(ctx context.Context, paperID string, state types.IngestState, chunkCount int, errMsg string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingestions (paper_id, state, chunk_count, error, started_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(paper_id) DO UPDATE SET
			state=excluded.state, chunk_count=excluded.chunk_count,
			error=excluded.error, updated_at=excluded.updated_at`,
		paperID, string(state), chunkCount, errMsg, now, now,
	)
	if err != nil {
		return fmt.Errorf("recording ingest state: %w", err)
	}
	return nil
}

// IngestStatus returns a paper's ingestion record, or ErrNotFound when
// ingestion was never started.
func (s *Store) IngestStatus(ctx context.Context, paperID string) (types.IngestStatus, error) {
	var st types.IngestStatus
	var state, startedAt, updatedAt string
	var errMsg sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT paper_id, state, chunk_count, error, started_at, updated_at
		 FROM ingestions WHERE paper_id = ?`, paperID,
	).Scan(&st.PaperID, &state, &st.ChunkCount, &errMsg, &startedAt, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return types.IngestStatus{}, fmt.Errorf("%w: no ingestion for paper %s", types.ErrNotFound, paperID)
	}
	if err != nil {
		return types.IngestStatus{}, fmt.Errorf("looking up ingestion: %w", err)
	}

	st.State = types.IngestState(state)
	if errMsg.Valid {
		st.Error = errMsg.String
	}
	if t, parseErr := time.Parse(time.RFC3339Nano, startedAt); parseErr == nil {
		st.StartedAt = t
	}
	if t, parseErr := time.Parse(time.RFC3339Nano, updatedAt); parseErr == nil {
		st.UpdatedAt = t
	}
	return st, nil
}

// ExportYAML writes a paper's chunks as YAML, for inspection and
// downstream tooling.
func (s *Store) ExportYAML(ctx context.Context, paperID string, w io.Writer) error {
	chunks, err := s.ChunksByPaper(ctx, paperID)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("%w: paper %s", types.ErrNotFound, paperID)
	}
	data, err := yaml.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("encoding chunks: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}
