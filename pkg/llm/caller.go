// Package llm provides single-shot prompt callers for generative model backends.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// ErrNoContent is returned when a backend answers successfully but with no text.
var ErrNoContent = errors.New("model returned no content")

// CallFunc sends a single prompt to a generative backend and returns its
// text completion. Implementations make exactly one request: no streaming and
// no retries.
type CallFunc func(ctx context.Context, prompt string) (string, error)

// CallerConfig holds configuration for creating a CallFunc.
type CallerConfig struct {
	Provider string // "gemini", "openai", "anthropic", or "ollama"
	Model    string // e.g. "gemini-2.0-flash", "gpt-4o-mini"
	APIKey   string // explicit API key (highest priority)
	BaseURL  string // override base URL

	// Timeout bounds each HTTP request. Defaults to 60s.
	Timeout time.Duration

	Logger *slog.Logger
}

// NewCaller creates a CallFunc based on the provided configuration.
// Resolution order for API key:
//  1. Explicit APIKey in config
//  2. Environment variables (GOOGLE_AI_API_KEY / OPENAI_API_KEY / ANTHROPIC_API_KEY)
//  3. Fall back to Ollama at localhost:11434
func NewCaller(cfg CallerConfig) (CallFunc, error) {
	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		provider = ProviderGemini
	}
	model := cfg.Model

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = resolveAPIKeyFromEnv(provider)
	}

	// If no key found and provider is not explicitly ollama, fall back to ollama
	if apiKey == "" && provider != ProviderOllama {
		logger.Warn("no API key found for generation provider, falling back to ollama",
			"provider", provider,
		)
		provider = ProviderOllama
		model = ""
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	switch provider {
	case ProviderGemini:
		if model == "" {
			model = "gemini-2.0-flash"
		}
		if baseURL == "" {
			baseURL = "https://generativelanguage.googleapis.com"
		}
		return newGeminiCaller(client, apiKey, model, baseURL), nil

	case ProviderOpenAI:
		if model == "" {
			model = "gpt-4o-mini"
		}
		if baseURL == "" {
			baseURL = "https://api.openai.com"
		}
		return newOpenAICaller(client, apiKey, model, baseURL), nil

	case ProviderAnthropic:
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		if baseURL == "" {
			baseURL = "https://api.anthropic.com"
		}
		return newAnthropicCaller(client, apiKey, model, baseURL), nil

	case ProviderOllama:
		if model == "" {
			model = "llama3.2"
		}
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return newOllamaCaller(client, model, baseURL), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func resolveAPIKeyFromEnv(provider string) string {
	switch provider {
	case ProviderGemini:
		return os.Getenv("GOOGLE_AI_API_KEY")
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	default:
		return ""
	}
}

// doJSON sends req and returns the body of a 200 response.
func doJSON(client *http.Client, req *http.Request, name string) ([]byte, error) {
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s API error (status %d): %s", name, resp.StatusCode, string(body))
	}

	return body, nil
}
