package eventstream_test

import (
	"encoding/json"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chronicle/pkg/eventstream"
)

var _ = Describe("Event", func() {
	It("stamps new events with an ID, schema version and time", func() {
		event := eventstream.NewRecordEvent(eventstream.EventTypeRecordCreated, "r1", "u1")
		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(strings.HasPrefix(event.EventID, "evt_")).To(BeTrue())
		Expect(event.EmittedAt).To(BeTemporally("~", time.Now(), time.Second))
		Expect(event.RecordID).To(Equal("r1"))
		Expect(event.OwnerID).To(Equal("u1"))
	})

	It("marshals RecordEvent with expected top-level keys", func() {
		payload, err := json.Marshal(eventstream.NewRecordEvent(eventstream.EventTypeRecordDeleted, "r1", "u1"))
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		for _, key := range []string{"schema_version", "event_type", "event_id", "emitted_at", "record_id", "owner_id", "indexed"} {
			Expect(got).To(HaveKey(key))
		}
		Expect(got["event_type"]).To(Equal("chronicle.record.deleted"))
	})

	It("provides ErrNilRecordEvent for nil payload validation", func() {
		Expect(eventstream.Validate(nil)).To(MatchError(eventstream.ErrNilRecordEvent))
	})
})

var _ = DescribeTable("Validate",
	func(mutate func(*eventstream.RecordEvent), want string) {
		event := eventstream.NewRecordEvent(eventstream.EventTypeRecordCreated, "r1", "u1")
		mutate(event)

		err := eventstream.Validate(event)
		if want == "" {
			Expect(err).NotTo(HaveOccurred())
			return
		}
		Expect(err).To(MatchError(eventstream.ErrInvalidRecordEvent))
		Expect(err.Error()).To(ContainSubstring(want))
	},
	Entry("valid", func(*eventstream.RecordEvent) {}, ""),
	Entry("schema version", func(e *eventstream.RecordEvent) { e.SchemaVersion = 2 }, "schema version 2"),
	Entry("event type", func(e *eventstream.RecordEvent) { e.EventType = "x" }, "unknown event type"),
	Entry("event id", func(e *eventstream.RecordEvent) { e.EventID = "" }, "missing event id"),
	Entry("record id", func(e *eventstream.RecordEvent) { e.RecordID = "" }, "missing record id"),
	Entry("owner id", func(e *eventstream.RecordEvent) { e.OwnerID = "" }, "missing owner id"),
)
