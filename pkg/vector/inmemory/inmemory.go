// Package inmemory provides a flat in-process vector index. Entries live in a
// slot array scored by brute-force dot product; at browsing-history scale
// (thousands to low tens of thousands of chunks) a scored scan stays well
// under a millisecond and needs no rebuild on insert or remove.
package inmemory

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/recallhq/recall/pkg/vector"
)

// Index implements vector.Index with a mutex-guarded slot array. Searches
// take the read lock and may run concurrently; mutation takes the write lock,
// so a Replace is atomic with respect to every search.
type Index struct {
	mu        sync.RWMutex
	entries   []vector.Entry
	free      []int          // recycled slots
	byID      map[string]int // chunk id -> slot
	dimension int
	logger    *zap.Logger
}

// NewIndex creates an empty index for embeddings of the given dimension.
func NewIndex(dimension int, logger *zap.Logger) *Index {
	return &Index{
		byID:      make(map[string]int),
		dimension: dimension,
		logger:    logger,
	}
}

// Upsert stores entries, replacing any existing entry with the same chunk id.
func (x *Index) Upsert(ctx context.Context, entries []vector.Entry) error {
	return x.Replace(ctx, nil, entries)
}

// Remove deletes entries by chunk id. Absent ids are a no-op.
func (x *Index) Remove(ctx context.Context, chunkIDs []string) error {
	return x.Replace(ctx, chunkIDs, nil)
}

// Replace removes and inserts under one write lock.
func (x *Index) Replace(_ context.Context, removeIDs []string, add []vector.Entry) error {
	for _, e := range add {
		if len(e.Embedding) != x.dimension {
			return vector.ErrDimensionMismatch
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	for _, id := range removeIDs {
		slot, ok := x.byID[id]
		if !ok {
			continue
		}
		x.entries[slot] = vector.Entry{}
		x.free = append(x.free, slot)
		delete(x.byID, id)
	}

	for _, e := range add {
		emb := make([]float32, len(e.Embedding))
		copy(emb, e.Embedding)
		e.Embedding = vector.Normalize(emb)

		if slot, ok := x.byID[e.ChunkID]; ok {
			x.entries[slot] = e
			continue
		}

		if n := len(x.free); n > 0 {
			slot := x.free[n-1]
			x.free = x.free[:n-1]
			x.entries[slot] = e
			x.byID[e.ChunkID] = slot
			continue
		}

		x.entries = append(x.entries, e)
		x.byID[e.ChunkID] = len(x.entries) - 1
	}

	x.logger.Debug("replaced index entries",
		zap.Int("removed", len(removeIDs)),
		zap.Int("added", len(add)),
	)

	return nil
}

// Search returns up to k entries nearest the query embedding.
func (x *Index) Search(_ context.Context, embedding []float32, k int) ([]vector.Result, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(embedding) != x.dimension {
		return nil, vector.ErrDimensionMismatch
	}

	query := make([]float32, len(embedding))
	copy(query, embedding)
	vector.Normalize(query)

	x.mu.RLock()
	defer x.mu.RUnlock()

	type scored struct {
		entry vector.Entry
		score float32
	}

	hits := make([]scored, 0, len(x.byID))
	for _, slot := range x.byID {
		e := x.entries[slot]
		hits = append(hits, scored{entry: e, score: vector.Dot(query, e.Embedding)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		// Equal similarity: favor the fresher document, then keep
		// ordering deterministic by id.
		if !hits[i].entry.IndexedAt.Equal(hits[j].entry.IndexedAt) {
			return hits[i].entry.IndexedAt.After(hits[j].entry.IndexedAt)
		}
		return hits[i].entry.ChunkID < hits[j].entry.ChunkID
	})

	if k < len(hits) {
		hits = hits[:k]
	}

	results := make([]vector.Result, len(hits))
	for i, h := range hits {
		results[i] = vector.Result{ChunkID: h.entry.ChunkID, Score: h.score}
	}

	return results, nil
}

// Clear drops every entry.
func (x *Index) Clear(_ context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries = nil
	x.free = nil
	x.byID = make(map[string]int)
	return nil
}

// Count reports the number of live entries.
func (x *Index) Count(_ context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byID), nil
}

// Close releases resources. In-memory entries are simply dropped.
func (x *Index) Close() error {
	return nil
}

var _ vector.Index = (*Index)(nil)
