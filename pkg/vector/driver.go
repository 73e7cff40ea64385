// Package vector provides interfaces and implementations for the similarity-search
// index that records are projected into.
package vector

import "context"

// DefaultCollectionName is the collection used when none is configured.
const DefaultCollectionName = "chronicles"

// Payload is the subset of a record carried alongside its vector.
type Payload struct {
	OwnerID string   `json:"owner_id"`
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	Tags    []string `json:"tags,omitempty"`
}

// Point is one entry in the index. ID always equals the ID of the record it
// was derived from.
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Source identifies which search path produced a Hit.
type Source string

const (
	SourceVector  Source = "vector"
	SourceKeyword Source = "keyword"
)

// Hit is a single search result. Vector backends and the keyword fallback both
// produce Hits so downstream code never needs to know which path ran.
type Hit struct {
	// ID is the record ID.
	ID string `json:"id"`

	// Score represents the similarity score (higher = more similar). Keyword
	// hits always score 1.0.
	Score float32 `json:"score"`

	Payload Payload `json:"payload"`
	Source  Source  `json:"source"`
}

// Driver is a thin typed client over a similarity-search backend.
type Driver interface {
	// EnsureCollection idempotently creates the backing collection with the
	// configured dimension and cosine distance.
	EnsureCollection(ctx context.Context) error

	// Upsert inserts or overwrites the point keyed by its ID.
	Upsert(ctx context.Context, p Point) error

	// Query returns up to limit nearest neighbours owned by ownerID, ordered by
	// descending similarity.
	Query(ctx context.Context, vec []float32, ownerID string, limit int) ([]Hit, error)

	// Delete removes the point. Deleting a missing point is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases any resources held by the driver.
	Close() error
}
