// Package sqlitevec provides a SQLite-backed vector index using sqlite-vec.
// Embeddings persist across restarts and KNN queries run against the vec0
// virtual table, so search cost does not grow with a full table scan in Go.
package sqlitevec

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/recallhq/recall/pkg/store"
	"github.com/recallhq/recall/pkg/vector"
)

// Index implements vector.Index on SQLite with the sqlite-vec extension.
type Index struct {
	db         *sql.DB
	dimensions uint
	logger     *zap.Logger
}

// Config holds configuration for the sqlite-vec index.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the embedding vector dimension. Required.
	Dimensions uint
}

// NewIndex creates a sqlite-vec backed vector index.
func NewIndex(c Config, logger *zap.Logger) (*Index, error) {
	// enable connections to have the sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec not available: %v", vector.ErrConnection, err)
	}

	// vec0 virtual tables use integer rowids, so chunk ids map through a
	// side table that also carries the tie-break timestamp.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			chunk_id TEXT NOT NULL UNIQUE,
			indexed_at INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunk mapping table: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d] distance_metric=cosine)`,
		c.Dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	logger.Info("sqlite-vec index initialized",
		zap.String("db_path", c.DBPath),
		zap.Uint("dimensions", c.Dimensions),
		zap.String("vec_version", vecVersion),
	)

	return &Index{db: db, dimensions: c.Dimensions, logger: logger}, nil
}

// Upsert stores entries, replacing any existing entry with the same chunk id.
func (x *Index) Upsert(ctx context.Context, entries []vector.Entry) error {
	return x.Replace(ctx, nil, entries)
}

// Remove deletes entries by chunk id. Absent ids are a no-op.
func (x *Index) Remove(ctx context.Context, chunkIDs []string) error {
	return x.Replace(ctx, chunkIDs, nil)
}

// Replace removes and inserts inside one transaction, so concurrent readers
// see either the old or the new entry set for the affected document.
func (x *Index) Replace(ctx context.Context, removeIDs []string, add []vector.Entry) error {
	if len(removeIDs) == 0 && len(add) == 0 {
		return nil
	}

	for _, e := range add {
		if uint(len(e.Embedding)) != x.dimensions {
			return vector.ErrDimensionMismatch
		}
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := removeInTx(ctx, tx, removeIDs); err != nil {
		return err
	}

	for _, e := range add {
		emb := make([]float32, len(e.Embedding))
		copy(emb, e.Embedding)
		blob := store.MarshalEmbedding(vector.Normalize(emb))

		var existing int64
		err := tx.QueryRowContext(ctx,
			`SELECT rowid FROM vec_chunks WHERE chunk_id = ?`, e.ChunkID,
		).Scan(&existing)

		switch err {
		case nil:
			if _, err := tx.ExecContext(ctx,
				`UPDATE vec_chunks SET indexed_at = ? WHERE rowid = ?`,
				e.IndexedAt.UnixNano(), existing,
			); err != nil {
				return fmt.Errorf("updating entry %s: %w", e.ChunkID, err)
			}

			// vec0 does not support UPDATE
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM vec_embeddings WHERE rowid = ?`, existing,
			); err != nil {
				return fmt.Errorf("deleting old embedding for %s: %w", e.ChunkID, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				existing, blob,
			); err != nil {
				return fmt.Errorf("re-inserting embedding for %s: %w", e.ChunkID, err)
			}
		case sql.ErrNoRows:
			result, err := tx.ExecContext(ctx,
				`INSERT INTO vec_chunks(chunk_id, indexed_at) VALUES (?, ?)`,
				e.ChunkID, e.IndexedAt.UnixNano(),
			)
			if err != nil {
				return fmt.Errorf("inserting entry %s: %w", e.ChunkID, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting rowid for %s: %w", e.ChunkID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
				rowID, blob,
			); err != nil {
				return fmt.Errorf("inserting embedding for %s: %w", e.ChunkID, err)
			}
		default:
			return fmt.Errorf("checking for existing entry %s: %w", e.ChunkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	x.logger.Debug("replaced index entries",
		zap.Int("removed", len(removeIDs)),
		zap.Int("added", len(add)),
	)

	return nil
}

func removeInTx(ctx context.Context, tx *sql.Tx, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	placeholders := make([]string, len(chunkIDs))
	args := make([]any, len(chunkIDs))
	for i, id := range chunkIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	inClause := strings.Join(placeholders, ",")

	rows, err := tx.QueryContext(ctx,
		fmt.Sprintf(`SELECT rowid FROM vec_chunks WHERE chunk_id IN (%s)`, inClause),
		args...,
	)
	if err != nil {
		return fmt.Errorf("querying rowids for removal: %w", err)
	}

	var rowIDs []int64
	for rows.Next() {
		var rowID int64
		if err := rows.Scan(&rowID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning rowid: %w", err)
		}
		rowIDs = append(rowIDs, rowID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rowids: %w", err)
	}

	for _, rowID := range rowIDs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM vec_embeddings WHERE rowid = ?`, rowID,
		); err != nil {
			return fmt.Errorf("deleting embedding rowid %d: %w", rowID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM vec_chunks WHERE chunk_id IN (%s)`, inClause),
		args...,
	); err != nil {
		return fmt.Errorf("deleting entries: %w", err)
	}

	return nil
}

// Search returns up to k entries nearest the query embedding via a KNN MATCH.
func (x *Index) Search(ctx context.Context, embedding []float32, k int) ([]vector.Result, error) {
	if k <= 0 {
		return nil, nil
	}
	if uint(len(embedding)) != x.dimensions {
		return nil, vector.ErrDimensionMismatch
	}

	query := make([]float32, len(embedding))
	copy(query, embedding)
	blob := store.MarshalEmbedding(vector.Normalize(query))

	rows, err := x.db.QueryContext(ctx, `
		SELECT
			c.chunk_id,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_chunks c ON c.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance, c.indexed_at DESC, c.chunk_id
	`, blob, k)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []vector.Result
	for rows.Next() {
		var chunkID string
		var distance float64
		if err := rows.Scan(&chunkID, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		// Cosine distance back to similarity.
		results = append(results, vector.Result{
			ChunkID: chunkID,
			Score:   float32(1.0 - distance),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	return results, nil
}

// Clear drops every entry.
func (x *Index) Clear(ctx context.Context) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_embeddings`); err != nil {
		return fmt.Errorf("clearing embeddings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_chunks`); err != nil {
		return fmt.Errorf("clearing entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Count reports the number of live entries.
func (x *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vec_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}

// Close releases resources held by the index.
func (x *Index) Close() error {
	return x.db.Close()
}

var _ vector.Index = (*Index)(nil)
