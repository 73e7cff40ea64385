package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chronicle/pkg/embeddings"
	"github.com/papercomputeco/chronicle/pkg/embeddings/ollama"
)

type embedCall struct {
	Model     string   `json:"model"`
	Input     []string `json:"input"`
	Truncate  bool     `json:"truncate"`
	KeepAlive string   `json:"keep_alive"`
}

func embedServer(vectors [][]float32, got *embedCall) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer GinkgoRecover()
		Expect(r.Method).To(Equal(http.MethodPost))
		Expect(r.URL.Path).To(Equal("/api/embed"))
		if got != nil {
			Expect(json.NewDecoder(r.Body).Decode(got)).To(Succeed())
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"model": "m", "embeddings": vectors})
	}))
	DeferCleanup(server.Close)
	return server
}

var _ = Describe("Embedder", func() {
	It("sends the model, input and keep-alive and returns the vector", func() {
		var got embedCall
		server := embedServer([][]float32{{0.1, 0.2}}, &got)

		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL + "/", KeepAlive: "10m"})
		Expect(err).NotTo(HaveOccurred())

		vec, err := e.Embed(context.Background(), "bounded worker pools")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(Equal([]float32{0.1, 0.2}))
		Expect(got).To(Equal(embedCall{
			Model:     ollama.DefaultEmbeddingModel,
			Input:     []string{"bounded worker pools"},
			Truncate:  true,
			KeepAlive: "10m",
		}))
	})

	It("embeds a batch in input order", func() {
		server := embedServer([][]float32{{1}, {2}, {3}}, nil)

		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
		Expect(err).NotTo(HaveOccurred())
		Expect(vecs).To(Equal([][]float32{{1}, {2}, {3}}))
	})

	It("rejects vectors of the wrong size", func() {
		server := embedServer([][]float32{{0.1, 0.2, 0.3}}, nil)

		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL, Dimensions: 768})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Embed(context.Background(), "hello")
		Expect(err).To(MatchError(embeddings.ErrDimensionMismatch))
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
		Expect(err.Error()).To(ContainSubstring("got 3, want 768"))
	})

	It("errors when the embedding count does not match the inputs", func() {
		server := embedServer([][]float32{}, nil)

		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Embed(context.Background(), "hello")
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
	})

	It("includes a bounded slice of the error body", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model not found"+strings.Repeat("x", 4096), http.StatusNotFound)
		}))
		DeferCleanup(server.Close)

		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL, Model: "all-minilm"})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.Embed(context.Background(), "hello")
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
		Expect(err.Error()).To(ContainSubstring("all-minilm returned 404: model not found"))
		Expect(len(err.Error())).To(BeNumerically("<", 1024))
	})

	It("rejects an empty batch without calling the server", func() {
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{})
		Expect(err).NotTo(HaveOccurred())

		_, err = e.EmbedBatch(context.Background(), nil)
		Expect(err).To(MatchError(embeddings.ErrEmbedding))
	})

	It("rejects targets that are not http URLs", func() {
		_, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: "localhost:11434"})
		Expect(err).To(MatchError(ContainSubstring("http(s) URL")))
	})
})
