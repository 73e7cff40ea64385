package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/papercomputeco/chronicle/pkg/embeddings"
)

// MockEmbedder returns canned vectors and records every text it was asked to
// embed. It is safe for concurrent use.
type MockEmbedder struct {
	// Embeddings maps exact input text to the vector returned for it.
	Embeddings map[string][]float32

	// Fallback is returned for text with no entry in Embeddings.
	Fallback []float32

	// FailOn makes Embed fail for this exact text.
	FailOn string

	// Err, when set, is returned for every call.
	Err error

	mu    sync.Mutex
	texts []string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
		Fallback:   []float32{0.1, 0.2, 0.3},
	}
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", embeddings.ErrEmbedding, err)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("%w: mock failure for %q", embeddings.ErrEmbedding, text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}
	return append([]float32(nil), m.Fallback...), nil
}

// Calls returns how many times Embed was invoked.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.texts)
}

// Texts returns the inputs seen so far, in call order.
func (m *MockEmbedder) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

func (m *MockEmbedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*MockEmbedder)(nil)
