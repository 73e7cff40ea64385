// Package eventstream publishes record lifecycle events to an optional
// downstream stream. Publishing is always best-effort.
package eventstream

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNilRecordEvent indicates a nil record event payload was provided to a publisher.
	ErrNilRecordEvent = errors.New("nil record event")

	// ErrInvalidRecordEvent wraps every other payload validation failure.
	ErrInvalidRecordEvent = errors.New("invalid record event")
)

// Publisher publishes record events to an event stream backend.
type Publisher interface {
	PublishRecord(ctx context.Context, event *RecordEvent) error
	Close() error
}

// Validate checks the fields every consumer relies on. Publishers call it
// before doing any transport work.
func Validate(event *RecordEvent) error {
	switch {
	case event == nil:
		return ErrNilRecordEvent
	case event.SchemaVersion != SchemaVersionV1:
		return fmt.Errorf("%w: unsupported schema version %d", ErrInvalidRecordEvent, event.SchemaVersion)
	case event.EventType != EventTypeRecordCreated && event.EventType != EventTypeRecordDeleted:
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidRecordEvent, event.EventType)
	case event.EventID == "":
		return fmt.Errorf("%w: missing event id", ErrInvalidRecordEvent)
	case event.RecordID == "":
		return fmt.Errorf("%w: missing record id", ErrInvalidRecordEvent)
	case event.OwnerID == "":
		return fmt.Errorf("%w: missing owner id", ErrInvalidRecordEvent)
	}
	return nil
}
