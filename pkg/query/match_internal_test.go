package query

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/recallhq/recall/pkg/highlight"
)

var _ = Describe("bestMatch", func() {
	It("spans from the first to the last matched word", func() {
		text := "The quick brown fox jumps over the lazy dog."

		span, ok := bestMatch(text, "fox jumping")
		Expect(ok).To(BeTrue())
		Expect(span).To(Equal(highlight.Span{Start: 16, End: 19}))
		Expect(text[span.Start:span.End]).To(Equal("fox"))
	})

	It("covers multiple matched words", func() {
		text := "The quick brown fox jumps over the lazy dog."

		span, ok := bestMatch(text, "lazy fox")
		Expect(ok).To(BeTrue())
		Expect(text[span.Start:span.End]).To(Equal("fox jumps over the lazy"))
	})

	It("matches case-insensitively and ignores punctuation", func() {
		text := "Compilers, interpreters, and linkers."

		span, ok := bestMatch(text, "INTERPRETERS")
		Expect(ok).To(BeTrue())
		Expect(text[span.Start:span.End]).To(Equal("interpreters"))
	})

	It("requires whole-word equality", func() {
		text := "The catalog lists catamarans."

		_, ok := bestMatch(text, "cat")
		Expect(ok).To(BeFalse())
	})

	It("drops short filler words from the query", func() {
		text := "a note of caution about caching"

		span, ok := bestMatch(text, "a bit of caching")
		Expect(ok).To(BeTrue())
		Expect(text[span.Start:span.End]).To(Equal("caching"))
	})

	It("keeps short words when the query has nothing longer", func() {
		text := "the io package wraps basic primitives"

		span, ok := bestMatch(text, "io")
		Expect(ok).To(BeTrue())
		Expect(text[span.Start:span.End]).To(Equal("io"))
	})

	It("reports no match when no query word occurs", func() {
		_, ok := bestMatch("entirely unrelated prose", "quantum chromodynamics")
		Expect(ok).To(BeFalse())
	})

	It("handles empty inputs", func() {
		_, ok := bestMatch("", "query")
		Expect(ok).To(BeFalse())

		_, ok = bestMatch("some text", "")
		Expect(ok).To(BeFalse())
	})
})
