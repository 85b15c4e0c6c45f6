package mcp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/recallhq/recall/api/mcp"
	"github.com/recallhq/recall/pkg/corpus"
	"github.com/recallhq/recall/pkg/ingest"
	"github.com/recallhq/recall/pkg/logger"
	"github.com/recallhq/recall/pkg/private"
	"github.com/recallhq/recall/pkg/query"
	storemem "github.com/recallhq/recall/pkg/store/inmemory"
	testutils "github.com/recallhq/recall/pkg/utils/test"
	vecmem "github.com/recallhq/recall/pkg/vector/inmemory"
)

var _ = Describe("MCP Server", func() {
	const dims = 4

	var svc *corpus.Service

	BeforeEach(func() {
		log := logger.Nop()
		st := storemem.NewStore()
		idx := vecmem.NewIndex(dims, log)
		emb := testutils.NewMockEmbedder(dims)
		pipe := ingest.NewPipeline(st, idx, emb, log)
		eng := query.NewEngine(st, idx, emb, log)
		svc = corpus.NewService(st, idx, pipe, eng, private.NewFilter(), dims, log)
	})

	Describe("NewServer", func() {
		It("returns an error when the corpus service is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Logger: logger.Nop(),
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("corpus service is required"))
		})

		It("returns an error when the logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Corpus: svc,
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("logger is required"))
		})

		It("creates a server with valid config", func() {
			server, err := mcp.NewServer(mcp.Config{
				Corpus: svc,
				Logger: logger.Nop(),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(server).NotTo(BeNil())
		})

		It("returns an HTTP handler", func() {
			server, err := mcp.NewServer(mcp.Config{
				Corpus: svc,
				Logger: logger.Nop(),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(server.Handler()).NotTo(BeNil())
		})
	})
})
