// Package inmemory provides a map-backed record.Store for tests and
// single-process deployments.
package inmemory

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/chronicle/pkg/record"
)

// Driver implements record.Store using an in-memory map.
type Driver struct {
	// mu guards records and order
	mu sync.RWMutex

	// records maps record ID to the stored copy
	records map[string]*record.Record

	// order holds record IDs in insertion order, used to break CreatedAt ties
	order []string

	// now is the clock used to stamp CreatedAt
	now func() time.Time
}

// NewDriver creates a new in-memory record store.
func NewDriver() *Driver {
	return &Driver{
		records: make(map[string]*record.Record),
		now:     time.Now,
	}
}

// Insert stores a copy of rec, assigning an ID and CreatedAt when missing.
func (d *Driver) Insert(_ context.Context, rec *record.Record) (*record.Record, error) {
	if rec == nil {
		return nil, errors.New("cannot store nil record")
	}

	stored := clone(rec)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = d.now().UTC()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.records[stored.ID]; !ok {
		d.order = append(d.order, stored.ID)
	}
	d.records[stored.ID] = stored

	return clone(stored), nil
}

// FindByID retrieves a record by its ID.
func (d *Driver) FindByID(_ context.Context, id string) (*record.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rec, ok := d.records[id]
	if !ok {
		return nil, record.NotFoundError{ID: id}
	}

	return clone(rec), nil
}

// FindByOwner returns the owner's records matching f, newest first.
func (d *Driver) FindByOwner(_ context.Context, ownerID string, f record.Filter) ([]*record.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	// Walk newest insertion first so the stable sort keeps that order on ties.
	result := make([]*record.Record, 0)
	for i := len(d.order) - 1; i >= 0; i-- {
		rec := d.records[d.order[i]]
		if rec.OwnerID != ownerID || !f.Match(rec) {
			continue
		}
		result = append(result, clone(rec))
	}

	slices.SortStableFunc(result, func(a, b *record.Record) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}

	return result, nil
}

// DeleteByID removes a record.
func (d *Driver) DeleteByID(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.records[id]; !ok {
		return record.NotFoundError{ID: id}
	}

	delete(d.records, id)
	d.order = slices.DeleteFunc(d.order, func(v string) bool { return v == id })

	return nil
}

// Count returns the number of records in the in-memory store.
func (d *Driver) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

// Close is a no-op for the in-memory store.
func (d *Driver) Close() error {
	return nil
}

func clone(r *record.Record) *record.Record {
	c := *r
	c.Tags = slices.Clone(r.Tags)
	c.SourceLinks = slices.Clone(r.SourceLinks)
	return &c
}

var _ record.Store = (*Driver)(nil)
