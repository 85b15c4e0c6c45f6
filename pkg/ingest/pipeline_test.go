package ingest_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/recallhq/recall/pkg/embeddings"
	"github.com/recallhq/recall/pkg/ingest"
	"github.com/recallhq/recall/pkg/store"
	storemem "github.com/recallhq/recall/pkg/store/inmemory"
	testutils "github.com/recallhq/recall/pkg/utils/test"
	"github.com/recallhq/recall/pkg/vector"
	vecmem "github.com/recallhq/recall/pkg/vector/inmemory"
)

// flakyIndex fails Replace on demand while delegating everything else.
type flakyIndex struct {
	vector.Index
	failReplace bool
}

func (f *flakyIndex) Replace(ctx context.Context, removeIDs []string, add []vector.Entry) error {
	if f.failReplace {
		return errors.New("disk full")
	}
	return f.Index.Replace(ctx, removeIDs, add)
}

// hookedEmbedder runs a callback once, before the first batch is embedded.
type hookedEmbedder struct {
	embeddings.Embedder
	once sync.Once
	hook func()
}

func (h *hookedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	h.once.Do(h.hook)
	return h.Embedder.EmbedBatch(ctx, texts)
}

var _ = Describe("Pipeline", func() {
	const dims = 4

	var (
		st   *storemem.Store
		idx  *vecmem.Index
		emb  *testutils.MockEmbedder
		pipe *ingest.Pipeline
		ctx  context.Context
		now  time.Time
	)

	BeforeEach(func() {
		st = storemem.NewStore()
		idx = vecmem.NewIndex(dims, zap.NewNop())
		emb = testutils.NewMockEmbedder(dims)
		now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		pipe = ingest.NewPipeline(st, idx, emb, zap.NewNop(),
			ingest.WithChunkWords(5),
			ingest.WithClock(func() time.Time { return now }),
		)
		ctx = context.Background()
	})

	page := ingest.Page{
		URL:     "https://example.com/article",
		Title:   "An Article",
		Content: "one two three four five six seven eight nine ten eleven twelve",
	}

	Describe("first ingestion", func() {
		It("stores the document, its chunks, and their vectors", func() {
			res, err := pipe.Ingest(ctx, page)
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Status).To(Equal(ingest.StatusIndexed))
			Expect(res.DocumentID).To(Equal(store.DocumentID(page.URL)))
			Expect(res.Chunks).To(Equal(3))

			doc, err := st.Get(ctx, res.DocumentID)
			Expect(err).ToNot(HaveOccurred())
			Expect(doc.Title).To(Equal(page.Title))
			Expect(doc.RawText).To(Equal(page.Content))
			Expect(doc.IndexedAt).To(Equal(now))

			chunks, err := st.Chunks(ctx, res.DocumentID)
			Expect(err).ToNot(HaveOccurred())
			Expect(chunks).To(HaveLen(3))
			Expect(chunks[0].ID).To(Equal(store.ChunkID(res.DocumentID, 0)))

			n, err := idx.Count(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(Equal(3))
		})

		It("normalizes content before hashing and chunking", func() {
			messy := page
			messy.Content = "  one   two\tthree \n\n four five six seven eight nine ten eleven twelve  "

			res, err := pipe.Ingest(ctx, messy)
			Expect(err).ToNot(HaveOccurred())

			doc, err := st.Get(ctx, res.DocumentID)
			Expect(err).ToNot(HaveOccurred())
			Expect(doc.RawText).To(Equal("one two three\nfour five six seven eight nine ten eleven twelve"))
		})

		It("rejects pages with no indexable text", func() {
			empty := page
			empty.Content = "   \n\t  "

			_, err := pipe.Ingest(ctx, empty)
			Expect(err).To(MatchError(ingest.ErrInvalidContent))
		})
	})

	Describe("re-ingesting identical content", func() {
		It("only refreshes the freshness timestamp", func() {
			first, err := pipe.Ingest(ctx, page)
			Expect(err).ToNot(HaveOccurred())
			callsAfterFirst := emb.Calls

			now = now.Add(time.Hour)
			second, err := pipe.Ingest(ctx, page)
			Expect(err).ToNot(HaveOccurred())
			Expect(second.Status).To(Equal(ingest.StatusUnchanged))
			Expect(second.DocumentID).To(Equal(first.DocumentID))
			Expect(emb.Calls).To(Equal(callsAfterFirst))

			doc, err := st.Get(ctx, first.DocumentID)
			Expect(err).ToNot(HaveOccurred())
			Expect(doc.IndexedAt).To(Equal(now))
		})

		It("treats cosmetic URL variants as the same document", func() {
			_, err := pipe.Ingest(ctx, page)
			Expect(err).ToNot(HaveOccurred())

			variant := page
			variant.URL = "HTTPS://EXAMPLE.COM/article#section-2"
			res, err := pipe.Ingest(ctx, variant)
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Status).To(Equal(ingest.StatusUnchanged))

			docs, _, err := st.Counts(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(docs).To(Equal(1))
		})
	})

	Describe("re-ingesting changed content", func() {
		It("swaps chunks and vectors atomically", func() {
			first, err := pipe.Ingest(ctx, page)
			Expect(err).ToNot(HaveOccurred())
			Expect(first.Chunks).To(Equal(3))

			changed := page
			changed.Content = "entirely new words here"
			second, err := pipe.Ingest(ctx, changed)
			Expect(err).ToNot(HaveOccurred())
			Expect(second.Status).To(Equal(ingest.StatusIndexed))
			Expect(second.Chunks).To(Equal(1))

			chunks, err := st.Chunks(ctx, first.DocumentID)
			Expect(err).ToNot(HaveOccurred())
			Expect(chunks).To(HaveLen(1))
			Expect(chunks[0].Text).To(Equal("entirely new words here"))

			n, err := idx.Count(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(Equal(1))
		})
	})

	Describe("re-ingesting while a swap is in flight", func() {
		It("searches see all-old or all-new vectors, never a mix", func() {
			oldPieces := ingest.SplitWords(page.Content, 5)
			for _, piece := range oldPieces {
				emb.Embeddings[piece.Text] = []float32{1, 0, 0, 0}
			}
			newContent := "fresh corpus text now served"
			emb.Embeddings[newContent] = []float32{0, 1, 0, 0}

			_, err := pipe.Ingest(ctx, page)
			Expect(err).ToNot(HaveOccurred())

			stop := make(chan struct{})
			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				defer close(done)
				for {
					select {
					case <-stop:
						return
					default:
					}
					results, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 10)
					Expect(err).ToNot(HaveOccurred())
					high := 0
					for _, r := range results {
						if r.Score > 0.5 {
							high++
						}
					}
					// Old version: three vectors near the query.
					// New version: one vector orthogonal to it.
					if high > 0 {
						Expect(high).To(Equal(3))
						Expect(results).To(HaveLen(3))
					} else {
						Expect(results).To(HaveLen(1))
					}
				}
			}()

			changed := page
			for i := 0; i < 25; i++ {
				changed.Content = newContent
				_, err := pipe.Ingest(ctx, changed)
				Expect(err).ToNot(HaveOccurred())
				changed.Content = page.Content
				_, err = pipe.Ingest(ctx, changed)
				Expect(err).ToNot(HaveOccurred())
			}
			close(stop)
			<-done
		})

		It("resolves a concurrent identical write as unchanged", func() {
			inner := ingest.NewPipeline(st, idx, emb, zap.NewNop(),
				ingest.WithChunkWords(5),
				ingest.WithClock(func() time.Time { return now }),
			)

			// The second writer lands the same content while the first is
			// still waiting on the embedding provider.
			hooked := &hookedEmbedder{Embedder: emb}
			hooked.hook = func() {
				_, err := inner.Ingest(ctx, page)
				Expect(err).ToNot(HaveOccurred())
			}
			outer := ingest.NewPipeline(st, idx, hooked, zap.NewNop(),
				ingest.WithChunkWords(5),
				ingest.WithClock(func() time.Time { return now }),
			)

			res, err := outer.Ingest(ctx, page)
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Status).To(Equal(ingest.StatusUnchanged))

			docs, chunks, err := st.Counts(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(docs).To(Equal(1))
			Expect(chunks).To(Equal(3))

			n, err := idx.Count(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(Equal(3))
		})
	})

	Describe("index failures", func() {
		It("restores the previous version when the vector swap fails", func() {
			first, err := pipe.Ingest(ctx, page)
			Expect(err).ToNot(HaveOccurred())

			flaky := &flakyIndex{Index: idx, failReplace: true}
			broken := ingest.NewPipeline(st, flaky, emb, zap.NewNop(),
				ingest.WithChunkWords(5),
				ingest.WithClock(func() time.Time { return now }),
			)

			changed := page
			changed.Content = "new words live here"
			_, err = broken.Ingest(ctx, changed)
			Expect(err).To(HaveOccurred())

			doc, err := st.Get(ctx, first.DocumentID)
			Expect(err).ToNot(HaveOccurred())
			Expect(doc.RawText).To(Equal(page.Content))

			chunks, err := st.Chunks(ctx, first.DocumentID)
			Expect(err).ToNot(HaveOccurred())
			Expect(chunks).To(HaveLen(3))

			n, err := idx.Count(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(Equal(3))
		})

		It("leaves no half-written document when the first index write fails", func() {
			flaky := &flakyIndex{Index: idx, failReplace: true}
			broken := ingest.NewPipeline(st, flaky, emb, zap.NewNop(),
				ingest.WithChunkWords(5),
				ingest.WithClock(func() time.Time { return now }),
			)

			_, err := broken.Ingest(ctx, page)
			Expect(err).To(HaveOccurred())

			_, err = st.Get(ctx, store.DocumentID(page.URL))
			Expect(err).To(MatchError(store.ErrNotFound{ID: store.DocumentID(page.URL)}))

			docs, chunks, err := st.Counts(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(docs).To(BeZero())
			Expect(chunks).To(BeZero())
		})
	})

	Describe("provider failures", func() {
		It("surfaces the error and leaves the previous version intact", func() {
			first, err := pipe.Ingest(ctx, page)
			Expect(err).ToNot(HaveOccurred())

			emb.Unavailable = true
			changed := page
			changed.Content = "different content now"
			_, err = pipe.Ingest(ctx, changed)
			Expect(err).To(MatchError(embeddings.ErrProviderUnavailable))

			doc, err := st.Get(ctx, first.DocumentID)
			Expect(err).ToNot(HaveOccurred())
			Expect(doc.RawText).To(Equal(page.Content))

			n, err := idx.Count(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(Equal(3))
		})
	})

	Describe("Remove", func() {
		It("evicts the document and its vectors", func() {
			res, err := pipe.Ingest(ctx, page)
			Expect(err).ToNot(HaveOccurred())

			Expect(pipe.Remove(ctx, page.URL)).To(Succeed())

			_, err = st.Get(ctx, res.DocumentID)
			Expect(err).To(HaveOccurred())

			n, err := idx.Count(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(BeZero())
		})

		It("ignores unknown URLs", func() {
			Expect(pipe.Remove(ctx, "https://never-seen.example.com/")).To(Succeed())
		})
	})
})
