package vector

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Tracker wraps a Driver and records whether its backend is currently
// reachable. The flag is advisory: callers may still attempt operations while
// it reads false. Any failed operation flips it to false and any successful
// one flips it back to true.
//
// Tracker itself implements Driver, so it can be handed to anything that wants
// a plain driver while still keeping the flag current.
type Tracker struct {
	driver    Driver
	available atomic.Bool
	logger    *slog.Logger
}

// NewTracker wraps driver and eagerly probes it with EnsureCollection. A failed
// probe leaves the tracker unavailable; it never fails construction.
func NewTracker(ctx context.Context, driver Driver, logger *slog.Logger) *Tracker {
	t := &Tracker{
		driver: driver,
		logger: logger,
	}

	if err := driver.EnsureCollection(ctx); err != nil {
		logger.Warn("vector backend unavailable at startup, keyword fallback will be used",
			"error", err,
		)
		return t
	}

	t.available.Store(true)
	return t
}

// IsAvailable reports the last known state without touching the backend.
func (t *Tracker) IsAvailable() bool {
	return t.available.Load()
}

// CheckAvailability re-probes the backend and returns the new state.
func (t *Tracker) CheckAvailability(ctx context.Context) bool {
	return t.EnsureCollection(ctx) == nil
}

// EnsureCollection delegates to the wrapped driver and updates availability.
func (t *Tracker) EnsureCollection(ctx context.Context) error {
	err := t.driver.EnsureCollection(ctx)
	t.observe("ensure_collection", err)
	return err
}

// Upsert delegates to the wrapped driver and updates availability.
func (t *Tracker) Upsert(ctx context.Context, p Point) error {
	err := t.driver.Upsert(ctx, p)
	t.observe("upsert", err)
	return err
}

// Query delegates to the wrapped driver and updates availability.
func (t *Tracker) Query(ctx context.Context, vec []float32, ownerID string, limit int) ([]Hit, error) {
	hits, err := t.driver.Query(ctx, vec, ownerID, limit)
	t.observe("query", err)
	return hits, err
}

// Delete delegates to the wrapped driver and updates availability.
func (t *Tracker) Delete(ctx context.Context, id string) error {
	err := t.driver.Delete(ctx, id)
	t.observe("delete", err)
	return err
}

// Close closes the wrapped driver.
func (t *Tracker) Close() error {
	return t.driver.Close()
}

func (t *Tracker) observe(op string, err error) {
	up := err == nil
	if t.available.Swap(up) == up {
		return
	}

	if up {
		t.logger.Info("vector backend available", "op", op)
	} else {
		t.logger.Warn("vector backend marked unavailable", "op", op, "error", err)
	}
}

var _ Driver = (*Tracker)(nil)
