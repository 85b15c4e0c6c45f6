package ingest_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/recallhq/recall/pkg/ingest"
)

var _ = Describe("Normalize", func() {
	It("collapses runs of spaces and tabs to one space", func() {
		Expect(ingest.Normalize("a  b\t\tc \t d")).To(Equal("a b c d"))
	})

	It("collapses blank-line runs to one newline", func() {
		Expect(ingest.Normalize("para one\n\n\n\npara two")).To(Equal("para one\npara two"))
	})

	It("treats trailing spaces before a newline as part of the break", func() {
		Expect(ingest.Normalize("line one   \n   line two")).To(Equal("line one\nline two"))
	})

	It("drops carriage returns", func() {
		Expect(ingest.Normalize("line one\r\nline two")).To(Equal("line one\nline two"))
	})

	It("trims leading and trailing whitespace", func() {
		Expect(ingest.Normalize("  \n\n  hello world \n ")).To(Equal("hello world"))
	})

	It("returns empty for whitespace-only input", func() {
		Expect(ingest.Normalize(" \t\n\r ")).To(Equal(""))
		Expect(ingest.Normalize("")).To(Equal(""))
	})

	It("is idempotent", func() {
		once := ingest.Normalize("  a \t b\n\n\nc  ")
		Expect(ingest.Normalize(once)).To(Equal(once))
	})

	It("preserves unicode content", func() {
		Expect(ingest.Normalize("héllo   wörld")).To(Equal("héllo wörld"))
	})
})
