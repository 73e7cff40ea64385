package testutils

import (
	"context"
	"errors"
	"sync"
)

// ErrMockGeneration is returned by MockCaller when Fail is set.
var ErrMockGeneration = errors.New("mock generation failure")

// MockCaller records prompts and returns a canned completion. Use Call as an
// llm.CallFunc.
type MockCaller struct {
	mu      sync.Mutex
	prompts []string

	Response string
	Fail     bool
}

func NewMockCaller(response string) *MockCaller {
	return &MockCaller{Response: response}
}

func (m *MockCaller) Call(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)
	if m.Fail {
		return "", ErrMockGeneration
	}
	return m.Response, nil
}

// Calls returns the number of prompts received.
func (m *MockCaller) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.prompts)
}

// LastPrompt returns the most recent prompt, or "" when none was sent.
func (m *MockCaller) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}
