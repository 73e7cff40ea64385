// Package embeddingutils builds an embeddings.Embedder from configuration.
package embeddingutils

import (
	"fmt"
	"strings"
	"time"

	"github.com/papercomputeco/chronicle/pkg/embeddings"
	"github.com/papercomputeco/chronicle/pkg/embeddings/ollama"
	"github.com/papercomputeco/chronicle/pkg/embeddings/placeholder"
)

// Providers lists the accepted embedding.provider values.
var Providers = []string{"placeholder", "ollama"}

type NewEmbedderOpts struct {
	// ProviderType is one of Providers. Empty means placeholder.
	ProviderType string
	TargetURL    string
	Model        string
	Dimensions   uint

	// Timeout bounds each ollama request. Zero keeps the client default.
	Timeout time.Duration
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch provider := strings.ToLower(strings.TrimSpace(o.ProviderType)); provider {
	case "", "placeholder":
		return placeholder.NewEmbedder(o.Dimensions), nil
	case "ollama":
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
			Timeout:    o.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q (supported: %s)",
			o.ProviderType, strings.Join(Providers, ", "))
	}
}
