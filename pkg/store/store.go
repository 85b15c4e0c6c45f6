// Package store provides interfaces and types for durable document storage.
//
// A Document is one indexed web page: its metadata, the normalized text
// captured at ingestion time, and the timestamp of the last (re)index. Chunks
// are contiguous slices of the document text, each carrying the embedding that
// backs the vector index. Persisting chunk embeddings here lets the index be
// rebuilt locally after corruption without calling the embedding provider.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Document is a single indexed page.
type Document struct {
	// ID is the stable identifier derived from the normalized URL.
	ID string

	// URL is the page address as submitted by the client.
	URL string

	// Title is the page title at capture time.
	Title string

	// ContentHash is the fingerprint of the normalized text. At most one
	// live document per (URL, ContentHash); an identical re-ingest only
	// refreshes IndexedAt.
	ContentHash string

	// RawText is the normalized page text chunk spans index into.
	RawText string

	// IndexedAt is when this document version was last (re)indexed.
	IndexedAt time.Time
}

// Chunk is a contiguous slice of a document's RawText with its embedding.
// Spans within one document are non-overlapping and ordered.
type Chunk struct {
	// ID is DocumentID plus the chunk ordinal, see ChunkID.
	ID string

	// DocumentID is a non-owning back-reference to the parent document.
	DocumentID string

	// Start and End are [start, end) character offsets into the parent
	// document's RawText.
	Start int
	End   int

	// Text is RawText[Start:End].
	Text string

	// Embedding is the vector representation of Text, unit-normalized.
	Embedding []float32
}

// Store persists documents and their chunks. Implementations must make a Get
// issued after Replace observe the new version (single-writer view).
type Store interface {
	// Replace atomically swaps the stored version of doc (if any) and all
	// of its chunks for the given new set.
	Replace(ctx context.Context, doc Document, chunks []Chunk) error

	// Get retrieves a document by its id.
	Get(ctx context.Context, id string) (Document, error)

	// GetChunk retrieves a single chunk by its id.
	GetChunk(ctx context.Context, id string) (Chunk, error)

	// Chunks returns the ordered chunk set of one document. An unknown
	// document yields an empty set, not an error.
	Chunks(ctx context.Context, docID string) ([]Chunk, error)

	// AllChunks returns every stored chunk. Used to rebuild the vector
	// index from persisted embeddings.
	AllChunks(ctx context.Context) ([]Chunk, error)

	// Touch refreshes a document's IndexedAt without changing content.
	Touch(ctx context.Context, id string, t time.Time) error

	// Delete removes a document and all of its chunks.
	Delete(ctx context.Context, id string) error

	// Counts reports the number of stored documents and chunks.
	Counts(ctx context.Context) (docs int, chunks int, err error)

	// LastIndexedAt returns the most recent IndexedAt across all documents,
	// or the zero time for an empty store.
	LastIndexedAt(ctx context.Context) (time.Time, error)

	// Close releases resources held by the store.
	Close() error
}

// ErrNotFound is returned when a document or chunk doesn't exist in the store.
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	if e.ID == "" {
		return "not found"
	}

	return "not found: " + e.ID
}

// DocumentID derives the stable document id from a URL. The URL is lightly
// normalized first (scheme and host lowercased, fragment and trailing slash
// dropped) so cosmetic variants of the same address map to one document.
func DocumentID(url string) string {
	sum := sha256.Sum256([]byte(NormalizeURL(url)))
	return hex.EncodeToString(sum[:])
}

// ChunkID builds a chunk id from its document id and ordinal.
func ChunkID(docID string, ordinal int) string {
	return fmt.Sprintf("%s#%d", docID, ordinal)
}

// ContentHash fingerprints normalized text for change detection and dedup.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// NormalizeURL canonicalizes a URL for identity purposes.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)

	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}

	// Lowercase scheme and host, leave the path alone.
	if i := strings.Index(u, "://"); i >= 0 {
		rest := u[i+3:]
		if j := strings.IndexByte(rest, '/'); j >= 0 {
			u = strings.ToLower(u[:i+3]+rest[:j]) + rest[j:]
		} else {
			u = strings.ToLower(u)
		}
	}

	return strings.TrimSuffix(u, "/")
}
