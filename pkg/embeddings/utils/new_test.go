package embeddingutils_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chronicle/pkg/embeddings/ollama"
	"github.com/papercomputeco/chronicle/pkg/embeddings/placeholder"
	embeddingutils "github.com/papercomputeco/chronicle/pkg/embeddings/utils"
)

var _ = Describe("NewEmbedder", func() {
	It("defaults to the placeholder embedder", func() {
		e, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeAssignableToTypeOf(&placeholder.Embedder{}))
	})

	It("builds an ollama embedder", func() {
		e, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{ProviderType: "ollama"})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeAssignableToTypeOf(&ollama.Embedder{}))
	})

	It("matches provider names case-insensitively", func() {
		e, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{ProviderType: " Ollama "})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeAssignableToTypeOf(&ollama.Embedder{}))
	})

	It("rejects unknown providers and lists the supported ones", func() {
		_, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{ProviderType: "word2vec"})
		Expect(err).To(MatchError(ContainSubstring(`"word2vec"`)))
		Expect(err).To(MatchError(ContainSubstring("placeholder, ollama")))
	})
})
