// Package kafka publishes record events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/papercomputeco/chronicle/pkg/eventstream"
)

// DefaultTopic is used when none is configured.
const DefaultTopic = "chronicle.records"

// Config holds configuration for the Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string

	// WriteTimeout defaults to 10s.
	WriteTimeout time.Duration
}

// Publisher writes each event as one message keyed by owner ID so a single
// owner's events stay ordered within a partition.
type Publisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka publisher. No connection is made until the
// first publish.
func NewPublisher(c Config, logger *slog.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}

	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	writeTimeout := c.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = 10 * time.Second
	}

	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(c.Brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			WriteTimeout:           writeTimeout,
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}, nil
}

// PublishRecord writes event synchronously.
func (p *Publisher) PublishRecord(ctx context.Context, event *eventstream.RecordEvent) error {
	msg, err := encodeMessage(event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing %s event: %w", event.EventType, err)
	}

	p.logger.Debug("published record event",
		"event_type", event.EventType,
		"record_id", event.RecordID,
	)
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func encodeMessage(event *eventstream.RecordEvent) (kafka.Message, error) {
	if err := eventstream.Validate(event); err != nil {
		return kafka.Message{}, err
	}

	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(event.OwnerID),
		Value: value,
		Time:  event.EmittedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_version", Value: []byte(fmt.Sprint(event.SchemaVersion))},
		},
	}, nil
}

var _ eventstream.Publisher = (*Publisher)(nil)
