// Package inmemory provides a map-backed document store for tests and
// ephemeral runs. Nothing survives process restart.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/recallhq/recall/pkg/store"
)

// Store implements store.Store entirely in memory.
type Store struct {
	mu     sync.RWMutex
	docs   map[string]store.Document
	chunks map[string][]store.Chunk // keyed by document id, ordered by Start
}

// NewStore creates an empty in-memory document store.
func NewStore() *Store {
	return &Store{
		docs:   make(map[string]store.Document),
		chunks: make(map[string][]store.Chunk),
	}
}

func (s *Store) Replace(_ context.Context, doc store.Document, chunks []store.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]store.Chunk, len(chunks))
	copy(cp, chunks)
	sort.Slice(cp, func(i, j int) bool { return cp[i].Start < cp[j].Start })

	s.docs[doc.ID] = doc
	s.chunks[doc.ID] = cp
	return nil
}

func (s *Store) Get(_ context.Context, id string) (store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return store.Document{}, store.ErrNotFound{ID: id}
	}
	return doc, nil
}

func (s *Store) GetChunk(_ context.Context, id string) (store.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, set := range s.chunks {
		for _, c := range set {
			if c.ID == id {
				return c, nil
			}
		}
	}
	return store.Chunk{}, store.ErrNotFound{ID: id}
}

func (s *Store) Chunks(_ context.Context, docID string) ([]store.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.chunks[docID]
	out := make([]store.Chunk, len(set))
	copy(out, set)
	return out, nil
}

func (s *Store) AllChunks(_ context.Context) ([]store.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Chunk
	for _, set := range s.chunks {
		out = append(out, set...)
	}
	return out, nil
}

func (s *Store) Touch(_ context.Context, id string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return store.ErrNotFound{ID: id}
	}
	doc.IndexedAt = t
	s.docs[id] = doc
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return store.ErrNotFound{ID: id}
	}
	delete(s.docs, id)
	delete(s.chunks, id)
	return nil
}

func (s *Store) Counts(_ context.Context) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks := 0
	for _, set := range s.chunks {
		chunks += len(set)
	}
	return len(s.docs), chunks, nil
}

func (s *Store) LastIndexedAt(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	for _, doc := range s.docs {
		if doc.IndexedAt.After(latest) {
			latest = doc.IndexedAt
		}
	}
	return latest, nil
}

func (s *Store) Close() error {
	return nil
}

var _ store.Store = (*Store)(nil)
