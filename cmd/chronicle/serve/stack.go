package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/papercomputeco/chronicle/api/mcp"
	"github.com/papercomputeco/chronicle/api/records"
	"github.com/papercomputeco/chronicle/api/search"
	"github.com/papercomputeco/chronicle/pkg/answer"
	"github.com/papercomputeco/chronicle/pkg/config"
	"github.com/papercomputeco/chronicle/pkg/dotdir"
	"github.com/papercomputeco/chronicle/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/chronicle/pkg/embeddings/utils"
	"github.com/papercomputeco/chronicle/pkg/eventstream"
	"github.com/papercomputeco/chronicle/pkg/eventstream/kafka"
	"github.com/papercomputeco/chronicle/pkg/eventstream/nop"
	"github.com/papercomputeco/chronicle/pkg/ingest"
	"github.com/papercomputeco/chronicle/pkg/keyword"
	"github.com/papercomputeco/chronicle/pkg/llm"
	"github.com/papercomputeco/chronicle/pkg/record"
	"github.com/papercomputeco/chronicle/pkg/record/inmemory"
	"github.com/papercomputeco/chronicle/pkg/record/postgres"
	"github.com/papercomputeco/chronicle/pkg/record/sqlite"
	"github.com/papercomputeco/chronicle/pkg/repair"
	"github.com/papercomputeco/chronicle/pkg/vector"
	vectorutils "github.com/papercomputeco/chronicle/pkg/vector/utils"
)

// stack holds every long-lived dependency of the server.
type stack struct {
	store     record.Store
	tracker   *vector.Tracker
	embedder  embeddings.Embedder
	publisher eventstream.Publisher
	pool      *repair.Pool

	coordinator  *records.Coordinator
	orchestrator *search.Orchestrator
}

// keyResolver supplies provider API keys.
type keyResolver interface {
	ResolveKey(provider string) (string, error)
}

type timeouts struct {
	vector, store, generation, fetch time.Duration
}

// buildStack constructs the server's dependencies from v. On error every
// dependency built so far is closed.
func buildStack(ctx context.Context, v *viper.Viper, keys keyResolver, logger *slog.Logger) (_ *stack, err error) {
	st := &stack{}
	defer func() {
		if err != nil {
			st.Close()
		}
	}()

	t, err := loadTimeouts(v)
	if err != nil {
		return nil, err
	}

	st.store, err = newStore(ctx, v, logger)
	if err != nil {
		return nil, err
	}

	st.embedder, err = embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: v.GetString("embedding.provider"),
		TargetURL:    v.GetString("embedding.target"),
		Model:        v.GetString("embedding.model"),
		Dimensions:   v.GetUint("embedding.dimensions"),
		Timeout:      t.generation,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	qdrantKey, err := keys.ResolveKey("qdrant")
	if err != nil {
		return nil, fmt.Errorf("resolving vector store credentials: %w", err)
	}

	driver, err := vectorutils.NewVectorDriver(&vectorutils.NewVectorDriverOpts{
		ProviderType: v.GetString("vector_store.provider"),
		Target:       v.GetString("vector_store.target"),
		Collection:   v.GetString("vector_store.collection"),
		Dimensions:   v.GetUint("embedding.dimensions"),
		APIKey:       qdrantKey,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating vector driver: %w", err)
	}

	probeCtx, cancel := withTimeout(ctx, t.vector)
	st.tracker = vector.NewTracker(probeCtx, driver, logger)
	cancel()

	st.pool, err = repair.NewPool(&repair.Config{
		Driver: st.tracker,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating repair pool: %w", err)
	}

	st.publisher, err = newPublisher(v, logger)
	if err != nil {
		return nil, err
	}

	generationKey, err := keys.ResolveKey(v.GetString("generation.provider"))
	if err != nil {
		return nil, fmt.Errorf("resolving generation credentials: %w", err)
	}

	call, err := llm.NewCaller(llm.CallerConfig{
		Provider: v.GetString("generation.provider"),
		APIKey:   generationKey,
		Model:    v.GetString("generation.model"),
		BaseURL:  v.GetString("generation.target"),
		Timeout:  t.generation,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating generation caller: %w", err)
	}

	fetcher := ingest.NewHTTPFetcher(ingest.HTTPFetcherConfig{
		MaxChars:          v.GetInt("ingest.max_chars"),
		Timeout:           t.fetch,
		RequestsPerSecond: v.GetFloat64("ingest.requests_per_second"),
	})

	st.coordinator = records.NewCoordinator(records.Config{
		Store:               st.store,
		Vector:              st.tracker,
		Embedder:            st.embedder,
		Fetcher:             fetcher,
		MaxFetchConcurrency: v.GetInt("ingest.max_concurrency"),
		Publisher:           st.publisher,
		IndexTimeout:        t.vector,
		Logger:              logger,
	})

	st.orchestrator = search.NewOrchestrator(search.Config{
		Embedder:    st.embedder,
		Vector:      st.tracker,
		Keyword:     keyword.NewSearcher(st.store, logger),
		Store:       st.store,
		Synthesizer: answer.NewSynthesizer(call, logger),
		Repair:      st.pool,
		Timeouts: search.Timeouts{
			Embed:    t.vector,
			Vector:   t.vector,
			Keyword:  t.store,
			Hydrate:  t.store,
			Generate: t.generation,
		},
		Logger: logger,
	})

	return st, nil
}

func (st *stack) mcpHandler(logger *slog.Logger) (http.Handler, error) {
	server, err := mcp.NewServer(mcp.Config{
		Orchestrator: st.orchestrator,
		Records:      st.store,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	return server.Handler(), nil
}

// Close releases dependencies in reverse construction order. The repair pool
// drains before the vector driver it deletes from is closed.
func (st *stack) Close() {
	if st.publisher != nil {
		_ = st.publisher.Close()
	}
	if st.pool != nil {
		st.pool.Close()
	}
	if st.tracker != nil {
		_ = st.tracker.Close()
	}
	if st.embedder != nil {
		_ = st.embedder.Close()
	}
	if st.store != nil {
		_ = st.store.Close()
	}
}

func newStore(ctx context.Context, v *viper.Viper, logger *slog.Logger) (record.Store, error) {
	switch provider := v.GetString("storage.provider"); provider {
	case "sqlite":
		path := v.GetString("storage.sqlite_path")
		store, err := sqlite.NewDriver(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite record store: %w", err)
		}
		logger.Info("using SQLite storage", "path", path)
		return store, nil

	case "postgres":
		dsn := v.GetString("storage.postgres_dsn")
		if dsn == "" {
			return nil, errors.New("storage.postgres_dsn is required for the postgres provider")
		}
		store, err := postgres.NewDriver(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL record store: %w", err)
		}
		logger.Info("using PostgreSQL storage")
		return store, nil

	case "inmemory":
		logger.Warn("using in-memory storage, records are lost on shutdown")
		return inmemory.NewDriver(), nil

	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", provider)
	}
}

func newPublisher(v *viper.Viper, logger *slog.Logger) (eventstream.Publisher, error) {
	switch provider := v.GetString("eventstream.provider"); provider {
	case "", "nop":
		return nop.NewPublisher(logger), nil

	case "kafka":
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: brokers(v),
			Topic:   v.GetString("eventstream.topic"),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		return p, nil

	default:
		return nil, fmt.Errorf("unsupported eventstream provider: %s", provider)
	}
}

// brokers accepts both a TOML array and a comma-separated env value.
func brokers(v *viper.Viper) []string {
	var out []string
	for _, b := range v.GetStringSlice("eventstream.brokers") {
		for part := range strings.SplitSeq(b, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

func loadTimeouts(v *viper.Viper) (timeouts, error) {
	var (
		t   timeouts
		err error
	)
	for key, dst := range map[string]*time.Duration{
		"timeouts.vector":     &t.vector,
		"timeouts.store":      &t.store,
		"timeouts.generation": &t.generation,
		"timeouts.fetch":      &t.fetch,
	} {
		if *dst, err = config.Duration(v, key); err != nil {
			return timeouts{}, err
		}
	}
	return t, nil
}

func dotdirFile(configDir, name string) (string, error) {
	return dotdir.NewManager().File(configDir, name)
}
