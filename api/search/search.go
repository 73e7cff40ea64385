// Package search answers questions over a user's records. It is shared by the
// REST API and the MCP server.
//
// The vector index is the primary retrieval path. When it is unavailable, or a
// call to it fails, retrieval falls back to a keyword search against the
// record store. Every hit is re-read from the record store before it is used,
// so answers are only ever built over records that currently exist.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/chronicle/pkg/answer"
	"github.com/papercomputeco/chronicle/pkg/embeddings"
	"github.com/papercomputeco/chronicle/pkg/keyword"
	"github.com/papercomputeco/chronicle/pkg/record"
	"github.com/papercomputeco/chronicle/pkg/vector"
)

// Canned answers returned instead of errors on degraded paths.
const (
	MessageNoResults             = "I couldn't find any relevant information in your chronicles."
	MessageSearchUnavailable     = "I'm sorry, but I couldn't search your chronicles due to a technical issue."
	MessageGenerationUnavailable = "I found some potentially relevant information but couldn't generate a detailed answer."
)

// DefaultTopK is the number of hits retrieved for a question.
const DefaultTopK = 5

var (
	// ErrInvalidQuery is returned for an empty or whitespace-only question.
	ErrInvalidQuery = errors.New("invalid query: question must be a non-empty string")

	// ErrSearchUnavailable is returned by Search when neither retrieval path works.
	ErrSearchUnavailable = errors.New("search unavailable")
)

// Repairer accepts the IDs of index points whose records no longer exist.
type Repairer interface {
	Enqueue(id string) bool
}

// Timeouts bounds each stage of a query. Zero leaves a stage bounded only by
// the caller's context.
type Timeouts struct {
	Embed    time.Duration
	Vector   time.Duration
	Keyword  time.Duration
	Hydrate  time.Duration
	Generate time.Duration
}

// DefaultTimeouts returns the stage timeouts used when none are configured.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Embed:    10 * time.Second,
		Vector:   5 * time.Second,
		Keyword:  5 * time.Second,
		Hydrate:  5 * time.Second,
		Generate: 60 * time.Second,
	}
}

// Config wires an Orchestrator.
type Config struct {
	Embedder    embeddings.Embedder
	Vector      *vector.Tracker
	Keyword     *keyword.Searcher
	Store       record.Store
	Synthesizer *answer.Synthesizer

	// Repair is optional. When set, stale vector hits are enqueued for deletion.
	Repair Repairer

	TopK     int
	Timeouts Timeouts
	Logger   *slog.Logger
}

// Orchestrator runs retrieval with fallback, hydration and answer synthesis.
type Orchestrator struct {
	embedder    embeddings.Embedder
	vector      *vector.Tracker
	keyword     *keyword.Searcher
	store       record.Store
	synthesizer *answer.Synthesizer
	repair      Repairer
	topK        int
	timeouts    Timeouts
	logger      *slog.Logger
}

// NewOrchestrator creates an Orchestrator from c.
func NewOrchestrator(c Config) *Orchestrator {
	topK := c.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	return &Orchestrator{
		embedder:    c.Embedder,
		vector:      c.Vector,
		keyword:     c.Keyword,
		store:       c.Store,
		synthesizer: c.Synthesizer,
		repair:      c.Repair,
		topK:        topK,
		timeouts:    c.Timeouts,
		logger:      c.Logger,
	}
}

// Output is the result of answering one question.
type Output struct {
	Answer          answer.Result    `json:"answer"`
	RelevantRecords []*record.Record `json:"relevantRecords"`
}

// Result is a single hydrated hit.
type Result struct {
	Record *record.Record `json:"record"`
	Score  float32        `json:"score"`
	Source vector.Source  `json:"source"`
}

// SearchOutput is the result of a search without answer synthesis.
type SearchOutput struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
	Count   int      `json:"count"`
}

// Query answers question from ownerID's records.
//
// Retrieval and generation failures never surface as errors: they produce one
// of the canned degraded answers instead. Only invalid input and a failing
// record store are returned as errors.
func (o *Orchestrator) Query(ctx context.Context, question, ownerID string) (*Output, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrInvalidQuery
	}

	o.logger.Debug("query request",
		"owner_id", ownerID,
		"question", question,
	)

	hits, err := o.retrieve(ctx, question, ownerID, o.topK)
	if err != nil {
		o.logger.Error("all search paths failed",
			"owner_id", ownerID,
			"error", err,
		)
		return degraded(question, MessageSearchUnavailable, nil), nil
	}

	results, err := o.hydrate(ctx, hits, ownerID)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return degraded(question, MessageNoResults, nil), nil
	}

	records := make([]*record.Record, 0, len(results))
	items := make([]answer.ContextItem, 0, len(results))
	for _, r := range results {
		records = append(records, r.Record)
		items = append(items, answer.ContextItem{
			Title: r.Record.Title,
			Body:  r.Record.Body,
			Tags:  r.Record.Tags,
		})
	}

	genCtx, cancel := withTimeout(ctx, o.timeouts.Generate)
	defer cancel()

	res, err := o.synthesizer.Generate(genCtx, question, items)
	if err != nil {
		o.logger.Error("answer generation failed",
			"owner_id", ownerID,
			"records", len(records),
			"error", err,
		)
		return degraded(question, MessageGenerationUnavailable, records), nil
	}

	return &Output{
		Answer:          *res,
		RelevantRecords: records,
	}, nil
}

// Search returns hydrated hits for query without synthesizing an answer. It
// uses the same fallback order as Query.
func (o *Orchestrator) Search(ctx context.Context, query, ownerID string, limit int) (*SearchOutput, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidQuery
	}
	if limit <= 0 {
		limit = o.topK
	}

	hits, err := o.retrieve(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}

	results, err := o.hydrate(ctx, hits, ownerID)
	if err != nil {
		return nil, err
	}

	return &SearchOutput{
		Query:   query,
		Results: results,
		Count:   len(results),
	}, nil
}

// Direct runs only the keyword search.
func (o *Orchestrator) Direct(ctx context.Context, query, ownerID string) ([]vector.Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidQuery
	}

	kwCtx, cancel := withTimeout(ctx, o.timeouts.Keyword)
	defer cancel()

	return o.keyword.Search(kwCtx, query, ownerID, keyword.DefaultLimit)
}

// IsAvailable reports the vector index's last known availability.
func (o *Orchestrator) IsAvailable() bool {
	return o.vector.IsAvailable()
}

// CheckAvailability re-probes the vector index.
func (o *Orchestrator) CheckAvailability(ctx context.Context) bool {
	probeCtx, cancel := withTimeout(ctx, o.timeouts.Vector)
	defer cancel()

	return o.vector.CheckAvailability(probeCtx)
}

// retrieve tries the vector path, then the keyword path. It only fails when
// both do.
func (o *Orchestrator) retrieve(ctx context.Context, text, ownerID string, limit int) ([]vector.Hit, error) {
	hits, vecErr := o.vectorSearch(ctx, text, ownerID, limit)
	if vecErr == nil {
		return hits, nil
	}

	o.logger.Warn("vector search unavailable, falling back to keyword search",
		"owner_id", ownerID,
		"error", vecErr,
	)

	kwCtx, cancel := withTimeout(ctx, o.timeouts.Keyword)
	defer cancel()

	hits, kwErr := o.keyword.Search(kwCtx, text, ownerID, limit)
	if kwErr != nil {
		return nil, errors.Join(vecErr, kwErr)
	}

	return hits, nil
}

var errIndexUnavailable = vector.Wrap(vector.ErrUnreachable, "query", errors.New("index marked unavailable"))

func (o *Orchestrator) vectorSearch(ctx context.Context, text, ownerID string, limit int) ([]vector.Hit, error) {
	if !o.vector.IsAvailable() {
		return nil, errIndexUnavailable
	}

	embedCtx, cancel := withTimeout(ctx, o.timeouts.Embed)
	defer cancel()

	vec, err := o.embedder.Embed(embedCtx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	queryCtx, cancel := withTimeout(ctx, o.timeouts.Vector)
	defer cancel()

	return o.vector.Query(queryCtx, vec, ownerID, limit)
}

// hydrate resolves each hit against the record store. Hits whose record is
// gone, or belongs to someone else, are dropped. Any other store failure is
// returned.
func (o *Orchestrator) hydrate(ctx context.Context, hits []vector.Hit, ownerID string) ([]Result, error) {
	results := make([]Result, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))

	for _, hit := range hits {
		if _, ok := seen[hit.ID]; ok {
			continue
		}
		seen[hit.ID] = struct{}{}

		rec, err := o.findRecord(ctx, hit.ID)
		switch {
		case errors.Is(err, record.ErrNotFoundOrUnauthorized):
			o.logger.Warn("dropping search hit with no matching record",
				"record_id", hit.ID,
				"source", hit.Source,
			)
			if hit.Source == vector.SourceVector && o.repair != nil {
				o.repair.Enqueue(hit.ID)
			}
			continue
		case err != nil:
			return nil, fmt.Errorf("hydrating hit %s: %w", hit.ID, err)
		}

		if rec.OwnerID != ownerID {
			o.logger.Warn("dropping search hit owned by another user",
				"record_id", hit.ID,
			)
			continue
		}

		results = append(results, Result{
			Record: rec,
			Score:  hit.Score,
			Source: hit.Source,
		})
	}

	return results, nil
}

func (o *Orchestrator) findRecord(ctx context.Context, id string) (*record.Record, error) {
	storeCtx, cancel := withTimeout(ctx, o.timeouts.Hydrate)
	defer cancel()

	return o.store.FindByID(storeCtx, id)
}

func degraded(question, message string, records []*record.Record) *Output {
	if records == nil {
		records = []*record.Record{}
	}

	return &Output{
		Answer: answer.Result{
			Answer:   message,
			Question: question,
		},
		RelevantRecords: records,
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
