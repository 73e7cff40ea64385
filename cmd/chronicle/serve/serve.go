// Package servecmder provides the serve command that runs the chronicle API
// and MCP server.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/chronicle/api"
	"github.com/papercomputeco/chronicle/pkg/config"
	"github.com/papercomputeco/chronicle/pkg/credentials"
	"github.com/papercomputeco/chronicle/pkg/logger"
)

type ServeCommander struct {
	v         *viper.Viper
	configDir string

	noMCP   bool
	logFile string
	debug   bool
	logger  *slog.Logger
}

const serveLongDesc string = `Run the chronicle API server.

The server stores records, indexes them in the configured vector store and
answers questions over them. When the vector store is unreachable search falls
back to keyword matching, and when the generation model fails answers degrade
to a short explanation instead of an error.

The MCP endpoint is mounted at /mcp unless --no-mcp is passed.

Settings come from flags, CHRONICLE_* environment variables and config.toml,
in that order of precedence.

Examples:
  chronicle serve
  chronicle serve --vector-store-provider chroma --vector-store-target http://localhost:8000
  chronicle serve --storage-provider postgres --postgres-dsn postgres://localhost/chronicle
  chronicle serve --log-file chronicle.log`

const serveShortDesc string = "Run the chronicle API server"

// serveFlags registers every flag the serve command binds into viper.
var serveFlags = config.FlagSet{
	config.FlagAPIListen:       {Name: "listen", Shorthand: "l", ViperKey: "api.listen", Description: "Address for API server to listen on"},
	config.FlagStorageProvider: {Name: "storage-provider", ViperKey: "storage.provider", Description: "Record store (sqlite, postgres, memory)"},
	config.FlagSQLite:          {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite database (default: chronicle.db in the .chronicle/ dir)"},
	config.FlagPostgresDSN:     {Name: "postgres-dsn", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string"},
	config.FlagVectorStoreProv: {Name: "vector-store-provider", ViperKey: "vector_store.provider", Description: "Vector store (qdrant, chroma, sqlite)"},
	config.FlagVectorStoreTgt:  {Name: "vector-store-target", ViperKey: "vector_store.target", Description: "Vector store address, URL or file path"},
	config.FlagEmbeddingProv:   {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (placeholder, ollama)"},
	config.FlagEmbeddingTgt:    {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	config.FlagEmbeddingModel:  {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	config.FlagEmbeddingDims:   {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensionality", Kind: config.UintFlag},
	config.FlagGenerationProv:  {Name: "generation-provider", ViperKey: "generation.provider", Description: "Generation provider (gemini, openai, anthropic, ollama)"},
	config.FlagGenerationModel: {Name: "generation-model", ViperKey: "generation.model", Description: "Generation model name"},
	config.FlagEventStreamProv: {Name: "eventstream-provider", ViperKey: "eventstream.provider", Description: "Record event publisher (nop, kafka)"},
}

func NewServeCmd() *cobra.Command {
	return newServeCmd(&ServeCommander{})
}

func newServeCmd(cmder *ServeCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if err := serveFlags.Bind(v, cmd, serveFlags.Keys()...); err != nil {
				return err
			}
			cmder.v = v
			cmder.configDir = configDir

			if v.GetString("storage.provider") == "sqlite" && v.GetString("storage.sqlite_path") == "" {
				path, err := defaultSQLitePath(configDir)
				if err != nil {
					return err
				}
				v.Set("storage.sqlite_path", path)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	serveFlags.Register(cmd, serveFlags.Keys()...)

	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Do not mount the MCP endpoint")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *ServeCommander) run(ctx context.Context) error {
	log, closeLog, err := c.newLogger()
	if err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}
	defer func() { _ = closeLog() }()
	c.logger = log

	keys, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	st, err := buildStack(ctx, c.v, keys, c.logger)
	if err != nil {
		return err
	}
	defer st.Close()

	apiConfig := api.Config{
		ListenAddr:   c.v.GetString("api.listen"),
		Coordinator:  st.coordinator,
		Orchestrator: st.orchestrator,
	}

	if !c.noMCP {
		handler, err := st.mcpHandler(c.logger)
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}
		apiConfig.MCPHandler = handler
	}

	watchConfig(c.v, c.logger)

	server, err := api.NewServer(apiConfig, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}

// newLogger builds the terminal logger from log.level and log.format, fanned
// out to a JSON file logger when --log-file is set.
func (c *ServeCommander) newLogger() (*slog.Logger, func() error, error) {
	noop := func() error { return nil }

	level, err := logger.ParseLevel(c.v.GetString("log.level"))
	if err != nil {
		return nil, noop, err
	}
	format, err := logger.ParseFormat(c.v.GetString("log.format"))
	if err != nil {
		return nil, noop, err
	}

	term := logger.New(logger.WithFormat(format), logger.WithLevel(level), logger.WithDebug(c.debug))
	if c.logFile == "" {
		return term, noop, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		term.Warn("could not open log file, logging to stdout only", "path", c.logFile, "error", err)
		return term, noop, nil
	}

	file := logger.New(logger.WithFormat(logger.FormatJSON), logger.WithLevel(level), logger.WithDebug(c.debug), logger.WithWriter(f))
	return logger.Multi(term, file), f.Close, nil
}

// watchConfig warns when config.toml changes under a running server. The
// stack is built once at startup, so changes only apply after a restart.
func watchConfig(v *viper.Viper, logger *slog.Logger) {
	if v.ConfigFileUsed() == "" {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		logger.Warn("config file changed, restart chronicle serve to apply it", "path", e.Name)
	})
	v.WatchConfig()
}

func defaultSQLitePath(configDir string) (string, error) {
	path, err := dotdirFile(configDir, config.DefaultSQLiteFile())
	if err != nil {
		return "", fmt.Errorf("resolving sqlite path: %w", err)
	}
	return path, nil
}
