// Package nop provides the publisher used when no event stream is configured.
package nop

import (
	"context"
	"log/slog"

	"github.com/papercomputeco/chronicle/pkg/eventstream"
)

// Publisher validates events and logs them at debug level without sending
// them anywhere.
type Publisher struct {
	logger *slog.Logger
}

func NewPublisher(logger *slog.Logger) *Publisher {
	return &Publisher{logger: logger}
}

func (p *Publisher) PublishRecord(ctx context.Context, event *eventstream.RecordEvent) error {
	if err := eventstream.Validate(event); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "record event not published, no event stream configured",
		"event_type", event.EventType,
		"record_id", event.RecordID,
	)
	return nil
}

func (p *Publisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*Publisher)(nil)
