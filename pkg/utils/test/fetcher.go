package testutils

import (
	"context"
	"fmt"
	"sync"
)

// MockFetcher serves page text from a map. Unknown URLs fail as if the host
// were unreachable.
type MockFetcher struct {
	mu      sync.Mutex
	Pages   map[string]string
	fetched []string
}

func NewMockFetcher(pages map[string]string) *MockFetcher {
	return &MockFetcher{Pages: pages}
}

func (m *MockFetcher) Fetch(_ context.Context, rawURL string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fetched = append(m.fetched, rawURL)
	text, ok := m.Pages[rawURL]
	if !ok {
		return "", fmt.Errorf("fetching %s: connection refused", rawURL)
	}
	return text, nil
}

// Fetched returns every URL passed to Fetch.
func (m *MockFetcher) Fetched() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.fetched...)
}
