// Package record defines the user-owned Record and the Store interface that
// durably persists records. The store of record is authoritative: the vector
// index is derived from it and may lag behind.
package record

import (
	"context"
	"slices"
	"strings"
	"time"
)

// Record is a user-owned piece of content.
type Record struct {
	// ID is assigned by the Store on Insert.
	ID string `json:"id"`

	// OwnerID identifies the user that owns the record.
	OwnerID string `json:"owner_id"`

	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`

	// SourceLinks are the reference URLs the record was created with, in order.
	SourceLinks []string `json:"source_links"`

	// DerivedText is the plain text fetched from SourceLinks at creation time.
	DerivedText string `json:"derived_text"`

	CreatedAt time.Time `json:"created_at"`
}

// Filter narrows FindByOwner results.
//
// When Query is non-empty a record matches if Query is a case-insensitive
// substring of its title or body, or, with MatchTags set, exactly equals one
// of its tags. Results are always ordered newest first. Limit <= 0 means no cap.
type Filter struct {
	Query     string
	MatchTags bool
	Limit     int
}

// Match reports whether r satisfies the filter predicate (ignoring Limit).
func (f Filter) Match(r *Record) bool {
	if f.Query == "" {
		return true
	}

	q := strings.ToLower(f.Query)
	if strings.Contains(strings.ToLower(r.Title), q) || strings.Contains(strings.ToLower(r.Body), q) {
		return true
	}

	return f.MatchTags && slices.Contains(r.Tags, f.Query)
}

// Store is the durable store of record.
type Store interface {
	// Insert persists rec, assigning ID and CreatedAt when they are empty.
	// The returned record is the stored copy.
	Insert(ctx context.Context, rec *Record) (*Record, error)

	// FindByID returns the record or a NotFoundError.
	FindByID(ctx context.Context, id string) (*Record, error)

	// FindByOwner returns records owned by ownerID that satisfy f, newest first.
	FindByOwner(ctx context.Context, ownerID string, f Filter) ([]*Record, error)

	// DeleteByID removes the record. Deleting a missing record returns a NotFoundError.
	DeleteByID(ctx context.Context, id string) error

	// Close releases any resources held by the store.
	Close() error
}
