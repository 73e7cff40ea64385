package placeholder_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chronicle/pkg/embeddings/placeholder"
)

var _ = Describe("Embedder", func() {
	It("returns a zero vector of the configured size", func() {
		vec, err := placeholder.NewEmbedder(8).Embed(context.Background(), "anything")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(HaveLen(8))
		Expect(vec).To(HaveEach(BeZero()))
	})

	It("defaults to 1536 dimensions", func() {
		vec, err := placeholder.NewEmbedder(0).Embed(context.Background(), "anything")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(HaveLen(placeholder.DefaultDimensions))
	})

	It("honors cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := placeholder.NewEmbedder(4).Embed(ctx, "x")
		Expect(err).To(MatchError(context.Canceled))
	})
})
