package ingest_test

import (
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/recallhq/recall/pkg/ingest"
)

var _ = Describe("SplitWords", func() {
	words := func(n int) string {
		parts := make([]string, n)
		for i := range parts {
			parts[i] = fmt.Sprintf("w%d", i)
		}
		return strings.Join(parts, " ")
	}

	It("yields nothing for empty text", func() {
		Expect(ingest.SplitWords("", 10)).To(BeEmpty())
	})

	It("keeps short text in one piece", func() {
		pieces := ingest.SplitWords("just a few words", 10)
		Expect(pieces).To(HaveLen(1))
		Expect(pieces[0].Start).To(BeZero())
		Expect(pieces[0].End).To(Equal(len("just a few words")))
		Expect(pieces[0].Text).To(Equal("just a few words"))
	})

	It("cuts on word starts", func() {
		text := words(25)
		pieces := ingest.SplitWords(text, 10)
		Expect(pieces).To(HaveLen(3))

		for _, p := range pieces[1:] {
			// Every boundary lands on the first byte of a word.
			Expect(text[p.Start]).ToNot(Equal(byte(' ')))
			Expect(text[p.Start-1]).To(Equal(byte(' ')))
		}
	})

	It("reconstructs the text exactly from its pieces", func() {
		text := words(123)
		pieces := ingest.SplitWords(text, 7)

		var b strings.Builder
		prevEnd := 0
		for _, p := range pieces {
			Expect(p.Start).To(Equal(prevEnd))
			Expect(p.Text).To(Equal(text[p.Start:p.End]))
			b.WriteString(p.Text)
			prevEnd = p.End
		}
		Expect(b.String()).To(Equal(text))
	})

	It("defaults the chunk size when non-positive", func() {
		text := words(ingest.DefaultChunkWords + 5)
		pieces := ingest.SplitWords(text, 0)
		Expect(pieces).To(HaveLen(2))
	})
})
