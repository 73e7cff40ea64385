// Package records creates, lists and deletes records. It is shared by the
// REST API and the MCP server.
//
// The record store is the durability boundary. Once a record is stored the
// operation has succeeded, whatever happens to the vector index afterwards.
package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/papercomputeco/chronicle/pkg/embeddings"
	"github.com/papercomputeco/chronicle/pkg/eventstream"
	"github.com/papercomputeco/chronicle/pkg/ingest"
	"github.com/papercomputeco/chronicle/pkg/record"
	"github.com/papercomputeco/chronicle/pkg/vector"
)

const defaultMaxFetchConcurrency = 4

// CreateInput is caller input for a new record.
type CreateInput struct {
	Title       string   `json:"title" validate:"required"`
	Body        string   `json:"body" validate:"required"`
	Tags        []string `json:"tags" validate:"omitempty,dive,required"`
	SourceLinks []string `json:"source_links" validate:"omitempty,dive,http_url"`
}

// Config wires a Coordinator.
type Config struct {
	Store record.Store

	// Vector and Embedder are optional. Without them records are stored but
	// never indexed.
	Vector   vector.Driver
	Embedder embeddings.Embedder

	Fetcher             ingest.Fetcher
	MaxFetchConcurrency int

	// Publisher is optional.
	Publisher eventstream.Publisher

	// IndexTimeout bounds embedding plus the index write. Zero means no bound
	// beyond the caller's context.
	IndexTimeout time.Duration

	Logger *slog.Logger
}

// Coordinator runs record writes against the store and, best-effort, the index.
type Coordinator struct {
	config   Config
	validate *validator.Validate
	logger   *slog.Logger
}

// NewCoordinator creates a Coordinator from c.
func NewCoordinator(c Config) *Coordinator {
	if c.MaxFetchConcurrency <= 0 {
		c.MaxFetchConcurrency = defaultMaxFetchConcurrency
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	return &Coordinator{
		config:   c,
		validate: v,
		logger:   c.Logger,
	}
}

// Create validates in, fetches its source links, stores the record, then
// tries to index it. Only validation and store failures are returned.
func (c *Coordinator) Create(ctx context.Context, ownerID string, in CreateInput) (*record.Record, error) {
	in = normalize(in)
	if err := c.validateInput(ownerID, in); err != nil {
		return nil, err
	}

	var derived string
	if len(in.SourceLinks) > 0 && c.config.Fetcher != nil {
		derived = ingest.FetchAll(ctx, c.config.Fetcher, in.SourceLinks, c.config.MaxFetchConcurrency, c.logger)
	}

	rec, err := c.config.Store.Insert(ctx, &record.Record{
		OwnerID:     ownerID,
		Title:       in.Title,
		Body:        in.Body,
		Tags:        in.Tags,
		SourceLinks: in.SourceLinks,
		DerivedText: derived,
	})
	if err != nil {
		return nil, fmt.Errorf("storing record: %w", err)
	}

	c.logger.Info("record created",
		"record_id", rec.ID,
		"owner_id", ownerID,
		"source_links", len(in.SourceLinks),
		"derived_chars", len(derived),
	)

	// The record is durable. index logs its own failure; the error is dropped here.
	indexed := c.index(ctx, rec) == nil

	event := eventstream.NewRecordEvent(eventstream.EventTypeRecordCreated, rec.ID, ownerID)
	event.Indexed = indexed
	event.Title = rec.Title
	event.Tags = rec.Tags
	c.publish(ctx, event)

	return rec, nil
}

// Delete removes a record owned by ownerID. A record that is missing or owned
// by someone else yields a record.NotFoundError.
func (c *Coordinator) Delete(ctx context.Context, id, ownerID string) error {
	rec, err := c.config.Store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if rec.OwnerID != ownerID {
		return record.NotFoundError{ID: id}
	}

	if err := c.config.Store.DeleteByID(ctx, id); err != nil {
		return err
	}

	c.logger.Info("record deleted",
		"record_id", id,
		"owner_id", ownerID,
	)

	// The store delete is authoritative. unindex logs its own failure.
	unindexed := c.unindex(ctx, id) == nil

	event := eventstream.NewRecordEvent(eventstream.EventTypeRecordDeleted, id, ownerID)
	event.Indexed = unindexed
	c.publish(ctx, event)

	return nil
}

// List returns ownerID's records, newest first.
func (c *Coordinator) List(ctx context.Context, ownerID string) ([]*record.Record, error) {
	return c.config.Store.FindByOwner(ctx, ownerID, record.Filter{})
}

func (c *Coordinator) validateInput(ownerID string, in CreateInput) error {
	var problems []string
	if ownerID == "" {
		problems = append(problems, "owner_id is required")
	}

	if err := c.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	if len(problems) > 0 {
		return record.ValidationError{Problems: problems}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "http_url":
		return fmt.Sprintf("%s must be an http or https URL, got %q", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// index embeds rec and upserts it. Failures are logged and returned.
func (c *Coordinator) index(ctx context.Context, rec *record.Record) error {
	if c.config.Vector == nil || c.config.Embedder == nil {
		return errors.New("indexing not configured")
	}

	ctx, cancel := withTimeout(ctx, c.config.IndexTimeout)
	defer cancel()

	err := c.upsert(ctx, rec)
	if err != nil {
		c.logger.Warn("failed to index record, it is stored but not searchable by vector yet",
			"record_id", rec.ID,
			"error", err,
		)
		return err
	}

	c.logger.Debug("record indexed", "record_id", rec.ID)
	return nil
}

func (c *Coordinator) upsert(ctx context.Context, rec *record.Record) error {
	vec, err := c.config.Embedder.Embed(ctx, embeddingText(rec))
	if err != nil {
		return err
	}

	return c.config.Vector.Upsert(ctx, vector.Point{
		ID:     rec.ID,
		Vector: vec,
		Payload: vector.Payload{
			OwnerID: rec.OwnerID,
			Title:   rec.Title,
			Body:    rec.Body,
			Tags:    rec.Tags,
		},
	})
}

// unindex removes a point from the index. Failures are logged and returned.
func (c *Coordinator) unindex(ctx context.Context, id string) error {
	if c.config.Vector == nil {
		return errors.New("indexing not configured")
	}

	ctx, cancel := withTimeout(ctx, c.config.IndexTimeout)
	defer cancel()

	if err := c.config.Vector.Delete(ctx, id); err != nil {
		c.logger.Warn("failed to remove record from index, search will drop it as stale",
			"record_id", id,
			"error", err,
		)
		return err
	}

	return nil
}

func (c *Coordinator) publish(ctx context.Context, event *eventstream.RecordEvent) {
	if c.config.Publisher == nil {
		return
	}

	if err := c.config.Publisher.PublishRecord(ctx, event); err != nil {
		c.logger.Warn("failed to publish record event",
			"event_type", event.EventType,
			"record_id", event.RecordID,
			"error", err,
		)
	}
}

func normalize(in CreateInput) CreateInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)

	// Tags are a set: first occurrence wins, order is kept.
	tags := make([]string, 0, len(in.Tags))
	for _, t := range in.Tags {
		if t = strings.TrimSpace(t); !slices.Contains(tags, t) {
			tags = append(tags, t)
		}
	}
	in.Tags = tags

	links := make([]string, 0, len(in.SourceLinks))
	for _, l := range in.SourceLinks {
		links = append(links, strings.TrimSpace(l))
	}
	in.SourceLinks = links

	return in
}

// embeddingText is the text a record is embedded from.
func embeddingText(rec *record.Record) string {
	parts := []string{rec.Title, rec.Body}
	if rec.DerivedText != "" {
		parts = append(parts, rec.DerivedText)
	}
	return strings.Join(parts, "\n\n")
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
