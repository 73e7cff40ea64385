// Package ollama embeds record text with a local Ollama server's /api/embed.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/chronicle/pkg/embeddings"
)

const (
	DefaultEmbeddingModel = "nomic-embed-text"
	DefaultBaseURL        = "http://localhost:11434"

	// maxErrorBody caps how much of a failed response ends up in the error.
	maxErrorBody = 512
)

// EmbedderConfig configures an Embedder. Zero values fall back to the
// package defaults.
type EmbedderConfig struct {
	BaseURL string
	Model   string

	// Dimensions, when set, is checked against every returned vector so a
	// model swap cannot silently write mismatched vectors to the index.
	Dimensions uint

	// KeepAlive is forwarded to Ollama to keep the model loaded between
	// requests, e.g. "10m". Empty uses the server default.
	KeepAlive string

	// Timeout bounds a request when the caller's context has no deadline.
	Timeout time.Duration
}

// Embedder calls Ollama's embedding endpoint.
type Embedder struct {
	endpoint   string
	model      string
	dimensions uint
	keepAlive  string
	httpClient *http.Client
}

type embedRequest struct {
	Model     string   `json:"model"`
	Input     []string `json:"input"`
	Truncate  bool     `json:"truncate"`
	KeepAlive string   `json:"keep_alive,omitempty"`
}

type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("ollama target must be an http(s) URL, got %q", cfg.BaseURL)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &Embedder{
		endpoint:   baseURL + "/api/embed",
		model:      model,
		dimensions: cfg.Dimensions,
		keepAlive:  cfg.KeepAlive,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Embed returns the embedding of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds every input in one request. The result is index-aligned
// with inputs.
func (e *Embedder) EmbedBatch(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no input", embeddings.ErrEmbedding)
	}

	body, err := json.Marshal(embedRequest{
		Model:     e.model,
		Input:     inputs,
		Truncate:  true,
		KeepAlive: e.keepAlive,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", embeddings.ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", embeddings.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: calling ollama: %v", embeddings.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: ollama %s returned %d: %s",
			embeddings.ErrEmbedding, e.model, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", embeddings.ErrEmbedding, err)
	}

	if len(out.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("%w: ollama returned %d embeddings for %d inputs",
			embeddings.ErrEmbedding, len(out.Embeddings), len(inputs))
	}
	for _, vec := range out.Embeddings {
		if err := embeddings.CheckDimensions(vec, e.dimensions); err != nil {
			return nil, fmt.Errorf("ollama model %s: %w", e.model, err)
		}
	}

	return out.Embeddings, nil
}

// Close is a no-op; the HTTP client holds no per-embedder resources.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
