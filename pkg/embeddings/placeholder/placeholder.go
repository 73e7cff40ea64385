// Package placeholder implements an Embedder that returns a fixed zero vector.
// It keeps the index populated and queryable until a real embedding model is
// configured; every record gets the same vector, so ranking is meaningless.
package placeholder

import (
	"context"

	"github.com/papercomputeco/chronicle/pkg/embeddings"
)

// DefaultDimensions matches the default collection size.
const DefaultDimensions = 1536

// Embedder returns a zero vector of the configured size for any text.
type Embedder struct {
	dimensions uint
}

// NewEmbedder creates a placeholder embedder. Zero dimensions means DefaultDimensions.
func NewEmbedder(dimensions uint) *Embedder {
	if dimensions == 0 {
		dimensions = DefaultDimensions
	}
	return &Embedder{dimensions: dimensions}
}

func (e *Embedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return make([]float32, e.dimensions), nil
}

func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
