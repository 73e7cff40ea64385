// Package keyword implements the degraded search path: substring matching
// against the record store, used when the vector backend cannot serve a query.
package keyword

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/chronicle/pkg/record"
	"github.com/papercomputeco/chronicle/pkg/vector"
)

// DefaultLimit caps results when the caller passes limit <= 0.
const DefaultLimit = 10

// Searcher runs keyword searches against a record.Store.
type Searcher struct {
	store  record.Store
	logger *slog.Logger
}

// NewSearcher creates a Searcher over store.
func NewSearcher(store record.Store, logger *slog.Logger) *Searcher {
	return &Searcher{
		store:  store,
		logger: logger,
	}
}

// Search returns the owner's records whose title or body contains query
// (case-insensitive) or whose tags contain it exactly, newest first. Every hit
// scores 1.0 since there is no ranking signal.
func (s *Searcher) Search(ctx context.Context, query, ownerID string, limit int) ([]vector.Hit, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	recs, err := s.store.FindByOwner(ctx, ownerID, record.Filter{
		Query:     query,
		MatchTags: true,
		Limit:     limit,
	})
	if err != nil {
		if errors.Is(err, record.ErrStoreUnreachable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: keyword search: %v", record.ErrStoreUnreachable, err)
	}

	hits := make([]vector.Hit, 0, len(recs))
	for _, r := range recs {
		hits = append(hits, vector.Hit{
			ID:    r.ID,
			Score: 1.0,
			Payload: vector.Payload{
				OwnerID: r.OwnerID,
				Title:   r.Title,
				Body:    r.Body,
				Tags:    r.Tags,
			},
			Source: vector.SourceKeyword,
		})
	}

	s.logger.Debug("keyword search",
		"query", query,
		"results", len(hits),
	)

	return hits, nil
}
