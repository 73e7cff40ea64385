// Package embeddings is the seam between record text and the vectors the
// index stores. The orchestrator and ingestion coordinator only see Embedder.
package embeddings

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrDimensionMismatch is returned when a provider yields vectors of a
	// different length than the index was created with.
	ErrDimensionMismatch = fmt.Errorf("%w: dimension mismatch", ErrEmbedding)
)

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}

// CheckDimensions returns ErrDimensionMismatch when want is set and vec has
// a different length.
func CheckDimensions(vec []float32, want uint) error {
	if want == 0 || uint(len(vec)) == want {
		return nil
	}
	return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), want)
}
