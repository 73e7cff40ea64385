package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxChars caps the text kept per link.
	DefaultMaxChars = 5000

	// DefaultTimeout bounds a single fetch.
	DefaultTimeout = 30 * time.Second

	maxFetchSize = 5 << 20
)

// ErrUnsupportedURL is returned for anything that is not an absolute http(s) URL.
var ErrUnsupportedURL = errors.New("unsupported url")

// skipped elements never contribute visible text.
var skipped = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
}

// HTTPFetcherConfig holds configuration for the HTTP fetcher.
type HTTPFetcherConfig struct {
	// MaxChars defaults to DefaultMaxChars.
	MaxChars int

	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration

	// RequestsPerSecond throttles outbound fetches across all callers.
	// Zero disables throttling.
	RequestsPerSecond float64

	UserAgent string
}

// HTTPFetcher fetches pages over HTTP and extracts their visible text.
type HTTPFetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	maxChars  int
	userAgent string
}

// NewHTTPFetcher creates a fetcher from cfg.
func NewHTTPFetcher(cfg HTTPFetcherConfig) *HTTPFetcher {
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "chronicle-ingest/1.0"
	}

	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		limiter:   limiter,
		maxChars:  maxChars,
		userAgent: userAgent,
	}
}

// Fetch downloads rawURL and returns its whitespace-collapsed visible text,
// truncated to MaxChars.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedURL, rawURL)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetching %s: %d %s", rawURL, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body := io.LimitReader(resp.Body, maxFetchSize)

	var text string
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "text/") && mediaType != "text/html" {
		raw, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", rawURL, err)
		}
		text = string(raw)
	} else {
		text, err = ExtractText(body)
		if err != nil {
			return "", fmt.Errorf("parsing %s: %w", rawURL, err)
		}
	}

	return truncate(collapseWhitespace(text), f.maxChars), nil
}

// ExtractText returns the visible text of an HTML document with script,
// style and similar elements removed. Whitespace is not normalized.
func ExtractText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return b.String(), nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate keeps at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var _ Fetcher = (*HTTPFetcher)(nil)
