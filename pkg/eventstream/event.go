package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeRecordCreated is emitted after a record is durably persisted.
	EventTypeRecordCreated = "chronicle.record.created"

	// EventTypeRecordDeleted is emitted after a record is removed from the store.
	EventTypeRecordDeleted = "chronicle.record.deleted"
)

// RecordEvent is a transport-neutral event payload for a record lifecycle change.
type RecordEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	RecordID      string    `json:"record_id"`
	OwnerID       string    `json:"owner_id"`

	// Indexed reports whether the vector index write succeeded alongside the store write.
	Indexed bool `json:"indexed"`

	Title string   `json:"title,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// NewRecordEvent stamps a new event with an ID and the current time.
func NewRecordEvent(eventType, recordID, ownerID string) *RecordEvent {
	return &RecordEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		RecordID:      recordID,
		OwnerID:       ownerID,
	}
}
