package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/recallhq/recall/pkg/embeddings"
	"github.com/recallhq/recall/pkg/embeddings/ollama"
)

var _ = Describe("Ollama Embedder", func() {
	var (
		server   *httptest.Server
		requests []map[string]any
		respond  func(w http.ResponseWriter)
	)

	BeforeEach(func() {
		requests = nil
		respond = func(w http.ResponseWriter) {
			json.NewEncoder(w).Encode(map[string]any{
				"embeddings": [][]float32{{0.1, 0.2, 0.3}},
			})
		}

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/api/embed"))
			Expect(r.Method).To(Equal(http.MethodPost))

			var body map[string]any
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			requests = append(requests, body)

			respond(w)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newEmbedder := func(model string) *ollama.Embedder {
		e, err := ollama.NewEmbedder(ollama.Config{BaseURL: server.URL, Model: model})
		Expect(err).ToNot(HaveOccurred())
		return e
	}

	It("embeds a single text", func() {
		e := newEmbedder("")
		defer e.Close()

		emb, err := e.Embed(context.Background(), "hello world")
		Expect(err).ToNot(HaveOccurred())
		Expect(emb).To(Equal([]float32{0.1, 0.2, 0.3}))

		Expect(requests).To(HaveLen(1))
		Expect(requests[0]["model"]).To(Equal(ollama.DefaultEmbeddingModel))
		Expect(requests[0]["input"]).To(Equal("hello world"))
	})

	It("sends the configured model", func() {
		e := newEmbedder("custom-model")
		defer e.Close()

		_, err := e.Embed(context.Background(), "hello")
		Expect(err).ToNot(HaveOccurred())
		Expect(requests[0]["model"]).To(Equal("custom-model"))
	})

	It("embeds a batch in input order", func() {
		respond = func(w http.ResponseWriter) {
			json.NewEncoder(w).Encode(map[string]any{
				"embeddings": [][]float32{{1, 0}, {0, 1}},
			})
		}
		e := newEmbedder("")
		defer e.Close()

		embs, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
		Expect(err).ToNot(HaveOccurred())
		Expect(embs).To(Equal([][]float32{{1, 0}, {0, 1}}))
		Expect(requests[0]["input"]).To(Equal([]any{"a", "b"}))
	})

	It("returns nothing for an empty batch without calling the provider", func() {
		e := newEmbedder("")
		defer e.Close()

		embs, err := e.EmbedBatch(context.Background(), nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(embs).To(BeNil())
		Expect(requests).To(BeEmpty())
	})

	It("flags non-OK responses as provider unavailable", func() {
		respond = func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusInternalServerError)
		}
		e := newEmbedder("")
		defer e.Close()

		_, err := e.Embed(context.Background(), "hello")
		Expect(err).To(MatchError(embeddings.ErrProviderUnavailable))
	})

	It("flags a count mismatch as provider unavailable", func() {
		respond = func(w http.ResponseWriter) {
			json.NewEncoder(w).Encode(map[string]any{
				"embeddings": [][]float32{{1, 0}},
			})
		}
		e := newEmbedder("")
		defer e.Close()

		_, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
		Expect(err).To(MatchError(embeddings.ErrProviderUnavailable))
	})

	It("flags an unreachable provider", func() {
		e, err := ollama.NewEmbedder(ollama.Config{BaseURL: "http://127.0.0.1:1"})
		Expect(err).ToNot(HaveOccurred())
		defer e.Close()

		_, err = e.Embed(context.Background(), "hello")
		Expect(err).To(MatchError(embeddings.ErrProviderUnavailable))
	})
})
