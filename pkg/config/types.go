package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/chronicle/pkg/logger"
)

// Config represents the persistent chronicle configuration stored as
// config.toml in the .chronicle/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Generation  GenerationConfig  `toml:"generation"`
	Ingest      IngestConfig      `toml:"ingest"`
	Timeouts    TimeoutsConfig    `toml:"timeouts"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Log         LogConfig         `toml:"log"`
}

// StorageConfig selects the record store.
type StorageConfig struct {
	Provider    string `toml:"provider,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running API
// server (chronicle ask, chronicle search).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
	OwnerID   string `toml:"owner_id,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// GenerationConfig selects the model that writes answers.
type GenerationConfig struct {
	Provider string `toml:"provider,omitempty"`
	Model    string `toml:"model,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// IngestConfig controls source link fetching.
type IngestConfig struct {
	MaxConcurrency    uint    `toml:"max_concurrency,omitempty"`
	MaxChars          uint    `toml:"max_chars,omitempty"`
	RequestsPerSecond float64 `toml:"requests_per_second,omitempty"`
}

// TimeoutsConfig holds per-dependency timeouts as Go duration strings.
type TimeoutsConfig struct {
	Vector     string `toml:"vector,omitempty"`
	Store      string `toml:"store,omitempty"`
	Generation string `toml:"generation,omitempty"`
	Fetch      string `toml:"fetch,omitempty"`
}

// EventStreamConfig selects where record events are published.
type EventStreamConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func floatKey(name string, field func(c *Config) *float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatFloat(*field(c), 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				return fmt.Errorf("invalid value for %s: must be a non-negative number", name)
			}
			*field(c) = f
			return nil
		},
	}
}

// checkedKey is a string key whose value must pass check before it is stored.
func checkedKey(check func(string) error, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if err := check(v); err != nil {
				return err
			}
			*field(c) = v
			return nil
		},
	}
}

func durationKey(name string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = v
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.provider":     stringKey(func(c *Config) *string { return &c.Storage.Provider }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

	"api.listen": stringKey(func(c *Config) *string { return &c.API.Listen }),

	"client.api_target": stringKey(func(c *Config) *string { return &c.Client.APITarget }),
	"client.owner_id":   stringKey(func(c *Config) *string { return &c.Client.OwnerID }),

	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),

	"embedding.provider":   stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":     stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":      stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": uintKey("embedding.dimensions", func(c *Config) *uint { return &c.Embedding.Dimensions }),

	"generation.provider": stringKey(func(c *Config) *string { return &c.Generation.Provider }),
	"generation.model":    stringKey(func(c *Config) *string { return &c.Generation.Model }),
	"generation.target":   stringKey(func(c *Config) *string { return &c.Generation.Target }),

	"ingest.max_concurrency":     uintKey("ingest.max_concurrency", func(c *Config) *uint { return &c.Ingest.MaxConcurrency }),
	"ingest.max_chars":           uintKey("ingest.max_chars", func(c *Config) *uint { return &c.Ingest.MaxChars }),
	"ingest.requests_per_second": floatKey("ingest.requests_per_second", func(c *Config) *float64 { return &c.Ingest.RequestsPerSecond }),

	"timeouts.vector":     durationKey("timeouts.vector", func(c *Config) *string { return &c.Timeouts.Vector }),
	"timeouts.store":      durationKey("timeouts.store", func(c *Config) *string { return &c.Timeouts.Store }),
	"timeouts.generation": durationKey("timeouts.generation", func(c *Config) *string { return &c.Timeouts.Generation }),
	"timeouts.fetch":      durationKey("timeouts.fetch", func(c *Config) *string { return &c.Timeouts.Fetch }),

	"eventstream.provider": stringKey(func(c *Config) *string { return &c.EventStream.Provider }),
	"eventstream.brokers": {
		get: func(c *Config) string { return strings.Join(c.EventStream.Brokers, ",") },
		set: func(c *Config, v string) error {
			var brokers []string
			for b := range strings.SplitSeq(v, ",") {
				if b = strings.TrimSpace(b); b != "" {
					brokers = append(brokers, b)
				}
			}
			c.EventStream.Brokers = brokers
			return nil
		},
	},
	"eventstream.topic": stringKey(func(c *Config) *string { return &c.EventStream.Topic }),

	"log.level": checkedKey(func(v string) error { _, err := logger.ParseLevel(v); return err },
		func(c *Config) *string { return &c.Log.Level }),
	"log.format": checkedKey(func(v string) error { _, err := logger.ParseFormat(v); return err },
		func(c *Config) *string { return &c.Log.Format }),
}

// LogConfig controls the serve command's terminal logger. --debug still
// lowers the level.
type LogConfig struct {
	Level  string `toml:"level,omitempty"`
	Format string `toml:"format,omitempty"`
}
