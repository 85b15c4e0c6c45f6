package inmemory_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/recallhq/recall/pkg/vector"
	"github.com/recallhq/recall/pkg/vector/inmemory"
)

var _ = Describe("In-Memory Vector Index", func() {
	var (
		idx *inmemory.Index
		ctx context.Context
	)

	BeforeEach(func() {
		idx = inmemory.NewIndex(3, zap.NewNop())
		ctx = context.Background()
	})

	entry := func(id string, at time.Time, v ...float32) vector.Entry {
		return vector.Entry{ChunkID: id, Embedding: v, IndexedAt: at}
	}

	Describe("Search", func() {
		It("ranks by cosine similarity, best first", func() {
			now := time.Now()
			Expect(idx.Upsert(ctx, []vector.Entry{
				entry("x", now, 1, 0, 0),
				entry("y", now, 0, 1, 0),
				entry("xy", now, 1, 1, 0),
			})).To(Succeed())

			results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
			Expect(err).ToNot(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ChunkID).To(Equal("x"))
			Expect(results[0].Score).To(BeNumerically("~", 1.0, 1e-5))
			Expect(results[1].ChunkID).To(Equal("xy"))
		})

		It("breaks score ties toward the fresher entry, then by chunk id", func() {
			old := time.Unix(1000, 0)
			fresh := time.Unix(2000, 0)
			Expect(idx.Upsert(ctx, []vector.Entry{
				entry("b-old", old, 1, 0, 0),
				entry("a-fresh", fresh, 1, 0, 0),
				entry("c-fresh", fresh, 1, 0, 0),
			})).To(Succeed())

			results, err := idx.Search(ctx, []float32{1, 0, 0}, 3)
			Expect(err).ToNot(HaveOccurred())
			Expect(results[0].ChunkID).To(Equal("a-fresh"))
			Expect(results[1].ChunkID).To(Equal("c-fresh"))
			Expect(results[2].ChunkID).To(Equal("b-old"))
		})

		It("normalizes stored and query vectors", func() {
			Expect(idx.Upsert(ctx, []vector.Entry{
				entry("long", time.Now(), 10, 0, 0),
			})).To(Succeed())

			results, err := idx.Search(ctx, []float32{0.001, 0, 0}, 1)
			Expect(err).ToNot(HaveOccurred())
			Expect(results[0].Score).To(BeNumerically("~", 1.0, 1e-5))
		})

		It("rejects query vectors of the wrong dimension", func() {
			_, err := idx.Search(ctx, []float32{1, 0}, 1)
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))
		})

		It("returns nothing for a non-positive k", func() {
			results, err := idx.Search(ctx, []float32{1, 0, 0}, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(results).To(BeEmpty())
		})
	})

	Describe("Upsert", func() {
		It("replaces an existing entry in place", func() {
			Expect(idx.Upsert(ctx, []vector.Entry{entry("a", time.Now(), 1, 0, 0)})).To(Succeed())
			Expect(idx.Upsert(ctx, []vector.Entry{entry("a", time.Now(), 0, 1, 0)})).To(Succeed())

			n, err := idx.Count(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(Equal(1))

			results, err := idx.Search(ctx, []float32{0, 1, 0}, 1)
			Expect(err).ToNot(HaveOccurred())
			Expect(results[0].Score).To(BeNumerically("~", 1.0, 1e-5))
		})

		It("rejects embeddings of the wrong dimension", func() {
			err := idx.Upsert(ctx, []vector.Entry{entry("a", time.Now(), 1, 0)})
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))
		})
	})

	Describe("Remove", func() {
		It("drops entries and ignores absent ids", func() {
			Expect(idx.Upsert(ctx, []vector.Entry{
				entry("a", time.Now(), 1, 0, 0),
				entry("b", time.Now(), 0, 1, 0),
			})).To(Succeed())

			Expect(idx.Remove(ctx, []string{"a", "never-existed"})).To(Succeed())

			n, err := idx.Count(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(Equal(1))

			results, err := idx.Search(ctx, []float32{1, 0, 0}, 5)
			Expect(err).ToNot(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ChunkID).To(Equal("b"))
		})

		It("recycles freed slots", func() {
			Expect(idx.Upsert(ctx, []vector.Entry{entry("a", time.Now(), 1, 0, 0)})).To(Succeed())
			Expect(idx.Remove(ctx, []string{"a"})).To(Succeed())
			Expect(idx.Upsert(ctx, []vector.Entry{entry("b", time.Now(), 0, 1, 0)})).To(Succeed())

			n, err := idx.Count(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(Equal(1))
		})
	})

	Describe("Replace", func() {
		It("swaps a document's entries in one step", func() {
			now := time.Now()
			Expect(idx.Upsert(ctx, []vector.Entry{
				entry("d#0", now, 1, 0, 0),
				entry("d#1", now, 0, 1, 0),
			})).To(Succeed())

			Expect(idx.Replace(ctx, []string{"d#0", "d#1"}, []vector.Entry{
				entry("d#0", now, 0, 0, 1),
			})).To(Succeed())

			n, err := idx.Count(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(Equal(1))

			results, err := idx.Search(ctx, []float32{0, 0, 1}, 5)
			Expect(err).ToNot(HaveOccurred())
			Expect(results[0].ChunkID).To(Equal("d#0"))
			Expect(results[0].Score).To(BeNumerically("~", 1.0, 1e-5))
		})
	})

	Describe("Clear", func() {
		It("empties the index", func() {
			Expect(idx.Upsert(ctx, []vector.Entry{entry("a", time.Now(), 1, 0, 0)})).To(Succeed())
			Expect(idx.Clear(ctx)).To(Succeed())

			n, err := idx.Count(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(BeZero())
		})
	})
})
