// Package vector provides interfaces and implementations for nearest-neighbor
// search over chunk embeddings.
package vector

import (
	"context"
	"math"
	"time"
)

// Entry associates a chunk id with its embedding. IndexedAt carries the owning
// document's index time so backends can break similarity ties in favor of
// fresher content.
type Entry struct {
	// ChunkID identifies the chunk this embedding represents.
	ChunkID string

	// Embedding is the vector representation, unit-normalized on insert.
	Embedding []float32

	// IndexedAt is the owning document's IndexedAt timestamp.
	IndexedAt time.Time
}

// Result is a single nearest-neighbor hit.
type Result struct {
	// ChunkID identifies the matched chunk.
	ChunkID string

	// Score is cosine similarity, higher is more similar.
	Score float32
}

// Index handles storage and retrieval of chunk embeddings. Insert and remove
// must not require rebuilding the structure, and searches may run
// concurrently with each other.
type Index interface {
	// Upsert stores entries, replacing any existing entry with the same
	// chunk id.
	Upsert(ctx context.Context, entries []Entry) error

	// Remove deletes entries by chunk id. Absent ids are a no-op.
	Remove(ctx context.Context, chunkIDs []string) error

	// Replace removes and inserts in a single critical section so a
	// concurrent search sees either the full old set or the full new set
	// for the affected document, never a partial mix.
	Replace(ctx context.Context, removeIDs []string, add []Entry) error

	// Search returns up to k entries nearest the query embedding, best
	// first. Ties on score go to the most recently indexed entry.
	Search(ctx context.Context, embedding []float32, k int) ([]Result, error)

	// Count reports the number of live entries.
	Count(ctx context.Context) (int, error)

	// Clear drops every entry. Used when the index is rebuilt from the
	// document store.
	Clear(ctx context.Context) error

	// Close releases any resources held by the index.
	Close() error
}

// Normalize scales v to unit length in place and returns it. Keeping every
// stored and query vector unit-length makes the dot product equal cosine
// similarity and keeps scores comparable across embedding provider versions.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}

// Dot returns the dot product of two vectors of equal length. For unit
// vectors this is their cosine similarity.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
