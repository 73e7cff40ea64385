package config

const (
	defaultStorageProvider = "sqlite"
	defaultSQLiteFile      = "chronicle.db"
	defaultAPIListen       = ":8081"

	defaultClientAPITarget = "http://localhost:8081"

	defaultVectorProvider   = "qdrant"
	defaultVectorTarget     = "localhost:6334"
	defaultVectorCollection = "chronicles"

	defaultEmbeddingProvider   = "placeholder"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "embeddinggemma"
	defaultEmbeddingDimensions = 1536

	defaultGenerationProvider = "gemini"
	defaultGenerationModel    = "gemini-2.0-flash"

	defaultIngestMaxConcurrency    = 4
	defaultIngestMaxChars          = 5000
	defaultIngestRequestsPerSecond = 5

	defaultVectorTimeout     = "5s"
	defaultStoreTimeout      = "5s"
	defaultGenerationTimeout = "60s"
	defaultFetchTimeout      = "30s"

	defaultEventStreamProvider = "nop"
	defaultEventStreamTopic    = "chronicle.records"

	defaultLogLevel  = "info"
	defaultLogFormat = "pretty"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values. An empty
// storage.sqlite_path resolves to chronicle.db inside the .chronicle/ directory.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Target:     defaultVectorTarget,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Generation: GenerationConfig{
			Provider: defaultGenerationProvider,
			Model:    defaultGenerationModel,
		},
		Ingest: IngestConfig{
			MaxConcurrency:    defaultIngestMaxConcurrency,
			MaxChars:          defaultIngestMaxChars,
			RequestsPerSecond: defaultIngestRequestsPerSecond,
		},
		Timeouts: TimeoutsConfig{
			Vector:     defaultVectorTimeout,
			Store:      defaultStoreTimeout,
			Generation: defaultGenerationTimeout,
			Fetch:      defaultFetchTimeout,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
		Log: LogConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}

// DefaultSQLiteFile is the record database file name used when
// storage.sqlite_path is empty.
func DefaultSQLiteFile() string {
	return defaultSQLiteFile
}
