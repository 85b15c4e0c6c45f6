// Package ingest turns visited pages into stored, embedded, searchable
// chunks. The pipeline is synchronous and fail-closed: a page either ends up
// fully indexed or the caller gets an error and the previous state survives.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/recallhq/recall/pkg/embeddings"
	"github.com/recallhq/recall/pkg/store"
	"github.com/recallhq/recall/pkg/vector"
)

// ErrInvalidContent is returned when a page has no indexable text.
var ErrInvalidContent = errors.New("page content is empty")

// Page is the raw capture sent by the extension.
type Page struct {
	URL     string
	Title   string
	Content string
}

// Status describes how an ingestion request was resolved.
type Status string

const (
	// StatusIndexed means the page was chunked, embedded, and stored.
	StatusIndexed Status = "indexed"
	// StatusUnchanged means the content hash matched the stored document,
	// so only its freshness timestamp was touched.
	StatusUnchanged Status = "unchanged"
	// StatusSkipped means the page was excluded before reaching the
	// pipeline, e.g. by the privacy filter.
	StatusSkipped Status = "skipped"
)

// Result reports the outcome of one ingestion.
type Result struct {
	Status     Status
	DocumentID string
	Chunks     int
}

// Pipeline ingests pages into a document store and a vector index.
type Pipeline struct {
	store    store.Store
	index    vector.Index
	embedder embeddings.Embedder
	log      *zap.Logger

	chunkWords int
	now        func() time.Time

	mu    sync.Mutex
	locks map[string]*docLock
}

type docLock struct {
	sync.Mutex
	refs int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithChunkWords overrides the target words per chunk.
func WithChunkWords(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.chunkWords = n
		}
	}
}

// WithClock overrides the pipeline clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(st store.Store, idx vector.Index, emb embeddings.Embedder, log *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:      st,
		index:      idx,
		embedder:   emb,
		log:        log,
		chunkWords: DefaultChunkWords,
		now:        time.Now,
		locks:      make(map[string]*docLock),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest processes one page. Re-sending identical content is a cheap no-op
// that only refreshes the document's IndexedAt. Changed content atomically
// replaces the document's chunks and vectors; a failure along the way leaves
// the previous version intact in both the store and the index.
func (p *Pipeline) Ingest(ctx context.Context, page Page) (Result, error) {
	normalized := Normalize(page.Content)
	if normalized == "" {
		return Result{}, ErrInvalidContent
	}

	docID := store.DocumentID(page.URL)
	hash := store.ContentHash(normalized)

	res, done, err := p.touchUnchanged(ctx, docID, page.URL, hash)
	if done || err != nil {
		return res, err
	}

	pieces := SplitWords(normalized, p.chunkWords)
	texts := make([]string, len(pieces))
	for i, piece := range pieces {
		texts[i] = piece.Text
	}

	// The provider call runs before the document lock is taken, so a slow
	// embedder never stalls other writers on the same page.
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return Result{}, fmt.Errorf("embedding %d chunks: %w", len(texts), err)
	}
	if len(vectors) != len(pieces) {
		return Result{}, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(pieces))
	}

	unlock := p.lockDoc(docID)
	defer unlock()

	now := p.now()

	existing, err := p.store.Get(ctx, docID)
	found := false
	switch {
	case err == nil:
		found = true
		// Another writer may have stored identical content while this one
		// was embedding.
		if existing.ContentHash == hash {
			if err := p.store.Touch(ctx, docID, now); err != nil {
				return Result{}, fmt.Errorf("refreshing document: %w", err)
			}
			p.log.Debug("page unchanged", zap.String("doc_id", docID), zap.String("url", page.URL))
			return Result{Status: StatusUnchanged, DocumentID: docID}, nil
		}
	case errors.As(err, &store.ErrNotFound{}):
	default:
		return Result{}, fmt.Errorf("loading document: %w", err)
	}

	chunks := make([]store.Chunk, len(pieces))
	entries := make([]vector.Entry, len(pieces))
	for i, piece := range pieces {
		vector.Normalize(vectors[i])
		id := store.ChunkID(docID, i)
		chunks[i] = store.Chunk{
			ID:         id,
			DocumentID: docID,
			Start:      piece.Start,
			End:        piece.End,
			Text:       piece.Text,
			Embedding:  vectors[i],
		}
		entries[i] = vector.Entry{ChunkID: id, Embedding: vectors[i], IndexedAt: now}
	}

	var oldChunks []store.Chunk
	var oldIDs []string
	if found {
		oldChunks, err = p.store.Chunks(ctx, docID)
		if err != nil {
			return Result{}, fmt.Errorf("loading previous chunks: %w", err)
		}
		oldIDs = make([]string, len(oldChunks))
		for i, c := range oldChunks {
			oldIDs[i] = c.ID
		}
	}

	doc := store.Document{
		ID:          docID,
		URL:         store.NormalizeURL(page.URL),
		Title:       page.Title,
		ContentHash: hash,
		RawText:     normalized,
		IndexedAt:   now,
	}
	if err := p.store.Replace(ctx, doc, chunks); err != nil {
		return Result{}, fmt.Errorf("persisting document: %w", err)
	}
	if err := p.index.Replace(ctx, oldIDs, entries); err != nil {
		// The store already committed the new version but the index still
		// holds the old vectors. Put the previous version back so both
		// keep telling the same story.
		p.restore(ctx, docID, found, existing, oldChunks)
		return Result{}, fmt.Errorf("indexing document: %w", err)
	}

	p.log.Info("page indexed",
		zap.String("doc_id", docID),
		zap.String("url", page.URL),
		zap.Int("chunks", len(chunks)),
		zap.Bool("reindexed", found))
	return Result{Status: StatusIndexed, DocumentID: docID, Chunks: len(chunks)}, nil
}

// touchUnchanged resolves the cheap path: when the stored document already
// carries this content hash, its freshness timestamp is refreshed and no
// embedding happens. done reports whether the ingestion is finished.
func (p *Pipeline) touchUnchanged(ctx context.Context, docID, url, hash string) (Result, bool, error) {
	unlock := p.lockDoc(docID)
	defer unlock()

	existing, err := p.store.Get(ctx, docID)
	if err != nil {
		if errors.As(err, &store.ErrNotFound{}) {
			return Result{}, false, nil
		}
		return Result{}, true, fmt.Errorf("loading document: %w", err)
	}
	if existing.ContentHash != hash {
		return Result{}, false, nil
	}

	if err := p.store.Touch(ctx, docID, p.now()); err != nil {
		return Result{}, true, fmt.Errorf("refreshing document: %w", err)
	}
	p.log.Debug("page unchanged", zap.String("doc_id", docID), zap.String("url", url))
	return Result{Status: StatusUnchanged, DocumentID: docID}, true, nil
}

// restore undoes a store.Replace whose matching index write failed: the
// previous document and chunks go back in, or the document is deleted again
// when it was new. Best effort; a failure here is logged and the next
// startup reconciliation rebuilds the index from the store.
func (p *Pipeline) restore(ctx context.Context, docID string, found bool, prev store.Document, prevChunks []store.Chunk) {
	var err error
	if found {
		err = p.store.Replace(ctx, prev, prevChunks)
	} else {
		err = p.store.Delete(ctx, docID)
	}
	if err != nil {
		p.log.Error("restoring previous document version after index failure",
			zap.String("doc_id", docID), zap.Error(err))
	}
}

// Remove evicts a page from both the store and the index. Removing an
// unknown URL is a no-op.
func (p *Pipeline) Remove(ctx context.Context, url string) error {
	docID := store.DocumentID(url)

	unlock := p.lockDoc(docID)
	defer unlock()

	chunks, err := p.store.Chunks(ctx, docID)
	if err != nil {
		return fmt.Errorf("loading chunks: %w", err)
	}
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}

	if err := p.store.Delete(ctx, docID); err != nil && !errors.As(err, &store.ErrNotFound{}) {
		return fmt.Errorf("deleting document: %w", err)
	}
	if err := p.index.Remove(ctx, ids); err != nil {
		return fmt.Errorf("removing vectors: %w", err)
	}

	p.log.Info("page removed", zap.String("doc_id", docID), zap.String("url", url))
	return nil
}

// lockDoc serializes ingestion per document while letting distinct documents
// proceed concurrently.
func (p *Pipeline) lockDoc(docID string) func() {
	p.mu.Lock()
	l, ok := p.locks[docID]
	if !ok {
		l = &docLock{}
		p.locks[docID] = l
	}
	l.refs++
	p.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, docID)
		}
		p.mu.Unlock()
	}
}
