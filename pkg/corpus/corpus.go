// Package corpus is the service layer over the document store, the vector
// index, and the ingestion and query machinery. It owns the privacy filter
// and the startup consistency check between store and index.
package corpus

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/recallhq/recall/pkg/ingest"
	"github.com/recallhq/recall/pkg/private"
	"github.com/recallhq/recall/pkg/query"
	"github.com/recallhq/recall/pkg/store"
	"github.com/recallhq/recall/pkg/vector"
)

// rebuildBatch bounds how many entries go into the index per call during a
// rebuild, keeping individual transactions small.
const rebuildBatch = 256

// Stats summarizes the indexed corpus.
type Stats struct {
	TotalPages  int       `json:"total_pages"`
	TotalChunks int       `json:"total_chunks"`
	LastUpdated time.Time `json:"last_updated"`
	Dimensions  int       `json:"dimensions"`
}

// Service exposes the corpus operations the API serves.
type Service struct {
	store      store.Store
	index      vector.Index
	pipeline   *ingest.Pipeline
	engine     *query.Engine
	filter     *private.Filter
	log        *zap.Logger
	dimensions int
}

// NewService wires a corpus service from its parts.
func NewService(st store.Store, idx vector.Index, pipe *ingest.Pipeline, eng *query.Engine, filter *private.Filter, dimensions int, log *zap.Logger) *Service {
	return &Service{
		store:      st,
		index:      idx,
		pipeline:   pipe,
		engine:     eng,
		filter:     filter,
		log:        log,
		dimensions: dimensions,
	}
}

// Reconcile verifies that the vector index agrees with the document store and
// rebuilds the index from persisted chunk embeddings when it doesn't. Called
// once at startup, before the service takes traffic.
func (s *Service) Reconcile(ctx context.Context) error {
	_, chunks, err := s.store.Counts(ctx)
	if err != nil {
		return fmt.Errorf("counting stored chunks: %w", err)
	}
	indexed, err := s.index.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting indexed entries: %w", err)
	}
	if chunks == indexed {
		return nil
	}

	s.log.Warn("vector index out of sync with store, rebuilding",
		zap.Int("stored_chunks", chunks),
		zap.Int("indexed_entries", indexed))
	return s.rebuild(ctx)
}

// rebuild repopulates the index from the embeddings persisted alongside each
// chunk. No embedding provider calls are made.
func (s *Service) rebuild(ctx context.Context) error {
	if err := s.index.Clear(ctx); err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}

	all, err := s.store.AllChunks(ctx)
	if err != nil {
		return fmt.Errorf("loading chunks: %w", err)
	}

	indexedAt := make(map[string]time.Time)
	entries := make([]vector.Entry, 0, rebuildBatch)
	flush := func() error {
		if len(entries) == 0 {
			return nil
		}
		if err := s.index.Upsert(ctx, entries); err != nil {
			return fmt.Errorf("restoring index entries: %w", err)
		}
		entries = entries[:0]
		return nil
	}

	for _, chunk := range all {
		at, ok := indexedAt[chunk.DocumentID]
		if !ok {
			doc, err := s.store.Get(ctx, chunk.DocumentID)
			if err != nil {
				return fmt.Errorf("loading document %s: %w", chunk.DocumentID, err)
			}
			at = doc.IndexedAt
			indexedAt[chunk.DocumentID] = at
		}

		entries = append(entries, vector.Entry{
			ChunkID:   chunk.ID,
			Embedding: chunk.Embedding,
			IndexedAt: at,
		})
		if len(entries) == rebuildBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	s.log.Info("vector index rebuilt", zap.Int("entries", len(all)))
	return nil
}

// Ingest indexes one page. Private pages are acknowledged but never stored.
func (s *Service) Ingest(ctx context.Context, page ingest.Page) (ingest.Result, error) {
	if !s.filter.Indexable(page.URL) {
		s.log.Debug("page excluded by privacy filter", zap.String("url", page.URL))
		return ingest.Result{Status: ingest.StatusSkipped}, nil
	}
	return s.pipeline.Ingest(ctx, page)
}

// Remove evicts one page from the corpus.
func (s *Service) Remove(ctx context.Context, url string) error {
	return s.pipeline.Remove(ctx, url)
}

// Search answers a natural-language query over the corpus.
func (s *Service) Search(ctx context.Context, q string, limit int) (*query.Response, error) {
	return s.engine.Search(ctx, q, limit)
}

// Stats reports corpus size and freshness.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	docs, chunks, err := s.store.Counts(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("counting documents: %w", err)
	}
	last, err := s.store.LastIndexedAt(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("reading last index time: %w", err)
	}
	return Stats{
		TotalPages:  docs,
		TotalChunks: chunks,
		LastUpdated: last,
		Dimensions:  s.dimensions,
	}, nil
}

// Close releases the store and the index.
func (s *Service) Close() error {
	if err := s.index.Close(); err != nil {
		s.log.Warn("closing index", zap.Error(err))
	}
	return s.store.Close()
}
