// Package sqlite provides a SQLite-backed document store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/recallhq/recall/pkg/store"
)

// Store implements store.Store on a SQLite database. The dbPath can be a
// file path or ":memory:" for an in-memory database.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	url          TEXT NOT NULL,
	title        TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	raw_text     TEXT NOT NULL,
	indexed_at   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS chunks (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	start_offset INTEGER NOT NULL,
	end_offset   INTEGER NOT NULL,
	text        TEXT NOT NULL,
	embedding   BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id, start_offset);
`

// NewStore opens (or creates) the document store at dbPath.
func NewStore(dbPath string, logger *zap.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("sqlite document store initialized",
		zap.String("db_path", dbPath),
	)

	return &Store{db: db, logger: logger}, nil
}

// Replace atomically swaps the stored version of doc and all of its chunks.
func (s *Store) Replace(ctx context.Context, doc store.Document, chunks []store.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Delete-then-insert inside one transaction; chunk rows cascade.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE id = ?`, doc.ID,
	); err != nil {
		return fmt.Errorf("deleting previous document %s: %w", doc.ID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents(id, url, title, content_hash, raw_text, indexed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.URL, doc.Title, doc.ContentHash, doc.RawText, doc.IndexedAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("inserting document %s: %w", doc.ID, err)
	}

	for _, c := range chunks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks(id, document_id, start_offset, end_offset, text, embedding)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, c.DocumentID, c.Start, c.End, c.Text, store.MarshalEmbedding(c.Embedding),
		); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("replaced document",
		zap.String("document_id", doc.ID),
		zap.Int("chunks", len(chunks)),
	)

	return nil
}

// Get retrieves a document by its id.
func (s *Store) Get(ctx context.Context, id string) (store.Document, error) {
	var doc store.Document
	var indexedAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, url, title, content_hash, raw_text, indexed_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.URL, &doc.Title, &doc.ContentHash, &doc.RawText, &indexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Document{}, store.ErrNotFound{ID: id}
	}
	if err != nil {
		return store.Document{}, fmt.Errorf("querying document %s: %w", id, err)
	}

	doc.IndexedAt = time.Unix(0, indexedAt)
	return doc, nil
}

// GetChunk retrieves a single chunk by its id.
func (s *Store) GetChunk(ctx context.Context, id string) (store.Chunk, error) {
	var c store.Chunk
	var blob []byte

	err := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, start_offset, end_offset, text, embedding
		 FROM chunks WHERE id = ?`, id,
	).Scan(&c.ID, &c.DocumentID, &c.Start, &c.End, &c.Text, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Chunk{}, store.ErrNotFound{ID: id}
	}
	if err != nil {
		return store.Chunk{}, fmt.Errorf("querying chunk %s: %w", id, err)
	}

	if c.Embedding, err = store.UnmarshalEmbedding(blob); err != nil {
		return store.Chunk{}, fmt.Errorf("decoding embedding for chunk %s: %w", id, err)
	}

	return c, nil
}

// Chunks returns the ordered chunk set of one document.
func (s *Store) Chunks(ctx context.Context, docID string) ([]store.Chunk, error) {
	return s.queryChunks(ctx,
		`SELECT id, document_id, start_offset, end_offset, text, embedding
		 FROM chunks WHERE document_id = ? ORDER BY start_offset`, docID)
}

// AllChunks returns every stored chunk.
func (s *Store) AllChunks(ctx context.Context) ([]store.Chunk, error) {
	return s.queryChunks(ctx,
		`SELECT id, document_id, start_offset, end_offset, text, embedding
		 FROM chunks ORDER BY document_id, start_offset`)
}

func (s *Store) queryChunks(ctx context.Context, query string, args ...any) ([]store.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []store.Chunk
	for rows.Next() {
		var c store.Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Start, &c.End, &c.Text, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if c.Embedding, err = store.UnmarshalEmbedding(blob); err != nil {
			return nil, fmt.Errorf("decoding embedding for chunk %s: %w", c.ID, err)
		}
		chunks = append(chunks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// Touch refreshes a document's IndexedAt without changing content.
func (s *Store) Touch(ctx context.Context, id string, t time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET indexed_at = ? WHERE id = ?`, t.UnixNano(), id,
	)
	if err != nil {
		return fmt.Errorf("touching document %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touching document %s: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound{ID: id}
	}

	return nil
}

// Delete removes a document and all of its chunks.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound{ID: id}
	}

	return nil
}

// Counts reports the number of stored documents and chunks.
func (s *Store) Counts(ctx context.Context) (int, int, error) {
	var docs, chunks int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&docs); err != nil {
		return 0, 0, fmt.Errorf("counting documents: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&chunks); err != nil {
		return 0, 0, fmt.Errorf("counting chunks: %w", err)
	}
	return docs, chunks, nil
}

// LastIndexedAt returns the most recent IndexedAt across all documents.
func (s *Store) LastIndexedAt(ctx context.Context) (time.Time, error) {
	var latest sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(indexed_at) FROM documents`).Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("querying last indexed time: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return time.Unix(0, latest.Int64), nil
}

// Close releases resources held by the store.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ store.Store = (*Store)(nil)
