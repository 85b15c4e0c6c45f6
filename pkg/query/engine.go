// Package query answers natural-language questions about previously visited
// pages. A query is embedded, matched against the vector index, re-ranked
// with a mild recency boost, and each hit carries an exact highlight span
// reconciled against the document's current text.
package query

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recallhq/recall/pkg/embeddings"
	"github.com/recallhq/recall/pkg/highlight"
	"github.com/recallhq/recall/pkg/llm"
	"github.com/recallhq/recall/pkg/store"
	"github.com/recallhq/recall/pkg/vector"
)

const (
	// DefaultLimit is the number of hits returned when the caller doesn't
	// ask for a specific count.
	DefaultLimit = 10
	// DefaultRecencyWeight caps how much freshness can move a hit's score.
	DefaultRecencyWeight = 0.1
	// DefaultRecencyHalfLife is the age at which the freshness boost halves.
	DefaultRecencyHalfLife = 7 * 24 * time.Hour

	// overfetchFactor widens the index search so hits whose chunks have
	// since been evicted can be dropped without starving the result set.
	overfetchFactor = 2
)

// Hit is one retrieved passage. Start and End are the passage's offsets into
// the document's normalized text; Highlight, when present, uses the same
// coordinate space.
type Hit struct {
	DocumentID string          `json:"document_id"`
	ChunkID    string          `json:"chunk_id"`
	URL        string          `json:"url"`
	Title      string          `json:"title"`
	Score      float32         `json:"score"`
	Text       string          `json:"text"`
	Start      int             `json:"start"`
	End        int             `json:"end"`
	Highlight  *highlight.Span `json:"highlight,omitempty"`
}

// Response is the full answer to one search.
type Response struct {
	Hits   []Hit  `json:"hits"`
	Answer string `json:"answer,omitempty"`
}

// Engine runs searches over the corpus.
type Engine struct {
	store       store.Store
	index       vector.Index
	embedder    embeddings.Embedder
	synthesizer llm.Synthesizer
	reconciler  *highlight.Reconciler
	log         *zap.Logger

	limit    int
	recencyW float64
	halfLife time.Duration
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLimit sets the default number of hits.
func WithLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.limit = n
		}
	}
}

// WithRecency tunes the freshness re-rank. A weight of zero disables it.
func WithRecency(weight float64, halfLife time.Duration) Option {
	return func(e *Engine) {
		if weight >= 0 && weight <= 1 {
			e.recencyW = weight
		}
		if halfLife > 0 {
			e.halfLife = halfLife
		}
	}
}

// WithSynthesizer enables answer synthesis on top of retrieval.
func WithSynthesizer(s llm.Synthesizer) Option {
	return func(e *Engine) { e.synthesizer = s }
}

// WithClock overrides the engine clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a query engine.
func NewEngine(st store.Store, idx vector.Index, emb embeddings.Embedder, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:      st,
		index:      idx,
		embedder:   emb,
		reconciler: highlight.NewReconciler(),
		log:        log,
		limit:      DefaultLimit,
		recencyW:   DefaultRecencyWeight,
		halfLife:   DefaultRecencyHalfLife,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search retrieves the passages most relevant to the query. limit <= 0 uses
// the engine default. Synthesis failures degrade to plain retrieval.
func (e *Engine) Search(ctx context.Context, query string, limit int) (*Response, error) {
	if limit <= 0 {
		limit = e.limit
	}
	qid := uuid.New().String()
	log := e.log.With(zap.String("query_id", qid))

	emb, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	vector.Normalize(emb)

	results, err := e.index.Search(ctx, emb, limit*overfetchFactor)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	hits := e.resolve(ctx, log, query, results, limit)
	resp := &Response{Hits: hits}

	if e.synthesizer != nil && len(hits) > 0 {
		answer, err := e.synthesizer.Synthesize(ctx, query, hits[0].Text)
		if err != nil {
			log.Warn("answer synthesis failed, returning retrieval only", zap.Error(err))
		} else {
			resp.Answer = answer
		}
	}

	log.Info("search complete",
		zap.String("query", query),
		zap.Int("candidates", len(results)),
		zap.Int("hits", len(hits)))
	return resp, nil
}

// resolve turns raw index results into hits: loads chunks and documents,
// applies the recency re-rank, and attaches highlight spans. Results whose
// chunk or document has been evicted since indexing are skipped.
func (e *Engine) resolve(ctx context.Context, log *zap.Logger, query string, results []vector.Result, limit int) []Hit {
	now := e.now()
	docs := make(map[string]store.Document)
	hits := make([]Hit, 0, len(results))

	for _, res := range results {
		chunk, err := e.store.GetChunk(ctx, res.ChunkID)
		if err != nil {
			if !errors.As(err, &store.ErrNotFound{}) {
				log.Warn("loading chunk", zap.String("chunk_id", res.ChunkID), zap.Error(err))
			}
			continue
		}

		doc, ok := docs[chunk.DocumentID]
		if !ok {
			doc, err = e.store.Get(ctx, chunk.DocumentID)
			if err != nil {
				if !errors.As(err, &store.ErrNotFound{}) {
					log.Warn("loading document", zap.String("doc_id", chunk.DocumentID), zap.Error(err))
				}
				continue
			}
			docs[chunk.DocumentID] = doc
		}

		hits = append(hits, Hit{
			DocumentID: doc.ID,
			ChunkID:    chunk.ID,
			URL:        doc.URL,
			Title:      doc.Title,
			Score:      e.rescore(res.Score, now.Sub(doc.IndexedAt)),
			Text:       chunk.Text,
			Start:      chunk.Start,
			End:        chunk.End,
			Highlight:  e.highlight(query, chunk, doc),
		})
	}

	sortHits(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// rescore blends similarity with an exponentially decaying freshness boost.
// The boost is bounded by the recency weight, so similarity always dominates.
func (e *Engine) rescore(similarity float32, age time.Duration) float32 {
	if e.recencyW == 0 {
		return similarity
	}
	if age < 0 {
		age = 0
	}
	freshness := math.Exp(-age.Seconds() * math.Ln2 / e.halfLife.Seconds())
	return float32((1-e.recencyW)*float64(similarity) + e.recencyW*freshness)
}

// highlight locates the query's best matching words inside the chunk and
// reconciles the resulting document-relative span against the document's
// current text. A chunk with no word overlap highlights the whole chunk.
// Reconciliation runs in document coordinates throughout: the expected
// location must point at the owning chunk's occurrence, not an earlier copy
// of the same words elsewhere in the document.
func (e *Engine) highlight(query string, chunk store.Chunk, doc store.Document) *highlight.Span {
	local, ok := bestMatch(chunk.Text, query)
	span := highlight.Span{Start: chunk.Start + local.Start, End: chunk.Start + local.End}
	if !ok {
		span = highlight.Span{Start: chunk.Start, End: chunk.End}
	}

	reconciled, ok := e.reconciler.Reconcile(doc.RawText, span, doc.RawText)
	if !ok {
		return nil
	}
	return &reconciled
}

// sortHits orders by score descending, stable across equal scores.
func sortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
}
