package testutils

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/papercomputeco/chronicle/pkg/vector"
)

// ErrMockBackend is the error injected by MockVectorDriver failure switches.
var ErrMockBackend = vector.Wrap(vector.ErrUnreachable, "mock", errors.New("connection refused"))

// MockVectorDriver is an in-memory vector driver with failure injection and
// call counters. It is safe for concurrent use.
type MockVectorDriver struct {
	mu     sync.Mutex
	points map[string]vector.Point

	// Results, when non-nil, is returned by Query instead of the stored points.
	Results []vector.Hit

	FailEnsure bool
	FailUpsert bool
	FailQuery  bool
	FailDelete bool

	EnsureCalls int
	UpsertCalls int
	QueryCalls  int
	DeleteCalls int

	// Deleted accumulates every ID passed to Delete.
	Deleted []string
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		points: make(map[string]vector.Point),
	}
}

func (m *MockVectorDriver) EnsureCollection(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EnsureCalls++
	if m.FailEnsure {
		return ErrMockBackend
	}
	return nil
}

func (m *MockVectorDriver) Upsert(_ context.Context, p vector.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpsertCalls++
	if m.FailUpsert {
		return ErrMockBackend
	}
	m.points[p.ID] = p
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, ownerID string, limit int) ([]vector.Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.QueryCalls++
	if m.FailQuery {
		return nil, ErrMockBackend
	}

	var hits []vector.Hit
	if m.Results != nil {
		hits = append(hits, m.Results...)
	} else {
		for _, p := range m.points {
			if p.Payload.OwnerID != ownerID {
				continue
			}
			hits = append(hits, vector.Hit{ID: p.ID, Score: 0.9, Payload: p.Payload, Source: vector.SourceVector})
		}
		sort.Slice(hits, func(i, j int) bool { return hits[i].ID < hits[j].ID })
	}

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *MockVectorDriver) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls++
	m.Deleted = append(m.Deleted, id)
	if m.FailDelete {
		return ErrMockBackend
	}
	delete(m.points, id)
	return nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}

// Point returns the stored point with the given ID.
func (m *MockVectorDriver) Point(id string) (vector.Point, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.points[id]
	return p, ok
}

// SetFailures toggles every failure switch at once.
func (m *MockVectorDriver) SetFailures(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FailEnsure, m.FailUpsert, m.FailQuery, m.FailDelete = fail, fail, fail, fail
}

// DeletedIDs returns a copy of the IDs passed to Delete so far.
func (m *MockVectorDriver) DeletedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.Deleted...)
}

var _ vector.Driver = (*MockVectorDriver)(nil)
