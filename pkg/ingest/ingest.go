// Package ingest fetches the pages behind a record's source links and reduces
// them to plain text.
package ingest

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Separator joins the text of multiple fetched links.
const Separator = "\n\n"

// Fetcher turns a URL into plain text. Each call fails independently.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// FetchAll fetches every link concurrently, at most maxConcurrency at a time,
// and joins the successful results in link order. A failed link is logged and
// skipped; FetchAll itself never fails, so the result may be empty.
func FetchAll(ctx context.Context, f Fetcher, links []string, maxConcurrency int, logger *slog.Logger) string {
	if len(links) == 0 {
		return ""
	}

	results := make([]string, len(links))

	g, gctx := errgroup.WithContext(ctx)
	if maxConcurrency > 0 {
		g.SetLimit(maxConcurrency)
	}

	for i, link := range links {
		g.Go(func() error {
			text, err := f.Fetch(gctx, link)
			if err != nil {
				logger.Warn("failed to fetch source link", "url", link, "error", err)
				return nil
			}
			results[i] = text
			return nil
		})
	}

	// Workers never return errors, so the group cannot short-circuit.
	_ = g.Wait()

	parts := make([]string, 0, len(results))
	for _, r := range results {
		if r != "" {
			parts = append(parts, r)
		}
	}

	return strings.Join(parts, Separator)
}
