package corpus_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/recallhq/recall/pkg/corpus"
	"github.com/recallhq/recall/pkg/ingest"
	"github.com/recallhq/recall/pkg/private"
	"github.com/recallhq/recall/pkg/query"
	storemem "github.com/recallhq/recall/pkg/store/inmemory"
	testutils "github.com/recallhq/recall/pkg/utils/test"
	vecmem "github.com/recallhq/recall/pkg/vector/inmemory"
)

var _ = Describe("Service", func() {
	const dims = 4

	var (
		st  *storemem.Store
		idx *vecmem.Index
		emb *testutils.MockEmbedder
		svc *corpus.Service
		ctx context.Context
	)

	BeforeEach(func() {
		st = storemem.NewStore()
		idx = vecmem.NewIndex(dims, zap.NewNop())
		emb = testutils.NewMockEmbedder(dims)
		log := zap.NewNop()
		pipe := ingest.NewPipeline(st, idx, emb, log)
		eng := query.NewEngine(st, idx, emb, log)
		svc = corpus.NewService(st, idx, pipe, eng, private.NewFilter(), dims, log)
		ctx = context.Background()
	})

	Describe("Ingest", func() {
		It("indexes an ordinary page", func() {
			res, err := svc.Ingest(ctx, ingest.Page{
				URL:     "https://example.com/article",
				Title:   "Article",
				Content: "some article content worth remembering",
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Status).To(Equal(ingest.StatusIndexed))
			Expect(res.Chunks).To(Equal(1))
		})

		It("acknowledges private pages without storing anything", func() {
			res, err := svc.Ingest(ctx, ingest.Page{
				URL:     "https://mail.google.com/mail/u/0/#inbox",
				Title:   "Inbox",
				Content: "sensitive mail content",
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Status).To(Equal(ingest.StatusSkipped))

			docs, chunks, err := st.Counts(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(docs).To(BeZero())
			Expect(chunks).To(BeZero())
			Expect(emb.Calls).To(BeZero())
		})
	})

	Describe("Search", func() {
		It("finds previously ingested pages", func() {
			text := "notes on raft consensus and leader election"
			emb.Embeddings[text] = []float32{1, 0, 0, 0}
			emb.Embeddings["leader election"] = []float32{1, 0, 0, 0}

			_, err := svc.Ingest(ctx, ingest.Page{
				URL:     "https://example.com/raft",
				Title:   "Raft",
				Content: text,
			})
			Expect(err).ToNot(HaveOccurred())

			resp, err := svc.Search(ctx, "leader election", 5)
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.Hits).To(HaveLen(1))
			Expect(resp.Hits[0].Title).To(Equal("Raft"))
		})
	})

	Describe("Remove", func() {
		It("evicts a page end to end", func() {
			_, err := svc.Ingest(ctx, ingest.Page{
				URL:     "https://example.com/gone",
				Title:   "Gone",
				Content: "content to be forgotten",
			})
			Expect(err).ToNot(HaveOccurred())

			Expect(svc.Remove(ctx, "https://example.com/gone")).To(Succeed())

			stats, err := svc.Stats(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(stats.TotalPages).To(BeZero())

			n, err := idx.Count(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(BeZero())
		})
	})

	Describe("Reconcile", func() {
		ingestPages := func() {
			for _, u := range []string{"a", "b", "c"} {
				_, err := svc.Ingest(ctx, ingest.Page{
					URL:     "https://example.com/" + u,
					Title:   u,
					Content: "distinct content for page " + u,
				})
				Expect(err).ToNot(HaveOccurred())
			}
		}

		It("leaves a consistent index alone", func() {
			ingestPages()
			before, err := idx.Count(ctx)
			Expect(err).ToNot(HaveOccurred())

			Expect(svc.Reconcile(ctx)).To(Succeed())

			after, err := idx.Count(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(after).To(Equal(before))
		})

		It("rebuilds a lost index from persisted embeddings", func() {
			text := "searchable content about container networking"
			emb.Embeddings[text] = []float32{1, 0, 0, 0}
			emb.Embeddings["container networking"] = []float32{1, 0, 0, 0}

			_, err := svc.Ingest(ctx, ingest.Page{
				URL:     "https://example.com/cni",
				Title:   "CNI",
				Content: text,
			})
			Expect(err).ToNot(HaveOccurred())
			ingestPages()

			// Simulate index loss without touching the store.
			Expect(idx.Clear(ctx)).To(Succeed())
			callsBefore := emb.Calls

			Expect(svc.Reconcile(ctx)).To(Succeed())

			n, err := idx.Count(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(Equal(4))
			// Rebuild reads persisted embeddings, never the provider.
			Expect(emb.Calls).To(Equal(callsBefore))

			resp, err := svc.Search(ctx, "container networking", 1)
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.Hits).To(HaveLen(1))
			Expect(resp.Hits[0].Title).To(Equal("CNI"))
		})
	})

	Describe("Stats", func() {
		It("reports corpus size, freshness, and dimensions", func() {
			stats, err := svc.Stats(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(stats.TotalPages).To(BeZero())
			Expect(stats.LastUpdated.IsZero()).To(BeTrue())
			Expect(stats.Dimensions).To(Equal(dims))

			_, err = svc.Ingest(ctx, ingest.Page{
				URL:     "https://example.com/one",
				Title:   "One",
				Content: "first page content",
			})
			Expect(err).ToNot(HaveOccurred())

			stats, err = svc.Stats(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(stats.TotalPages).To(Equal(1))
			Expect(stats.TotalChunks).To(Equal(1))
			Expect(stats.LastUpdated).To(BeTemporally("~", time.Now(), time.Minute))
		})
	})
})
