package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
)

// OwnerHeader carries the caller's owner ID on every /v1 request.
const OwnerHeader = "X-Owner-ID"

// Server is the API server for the chronicle system
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
func NewServer(config Config, logger *slog.Logger) (*Server, error) {
	if config.Coordinator == nil {
		return nil, errors.New("record coordinator is required")
	}

	// Request strings end up in stores and background jobs, so they must not
	// alias fasthttp's reused buffers.
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		Immutable:             true,
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/health", s.handleHealth)

	v1 := app.Group("/v1", s.requireOwner)
	v1.Post("/records", s.handleCreateRecord)
	v1.Get("/records", s.handleListRecords)
	v1.Get("/records/search", s.handleSearchRecords)
	v1.Delete("/records/:id", s.handleDeleteRecord)
	v1.Post("/search/query", s.handleQuery)
	v1.Post("/search/direct", s.handleDirectSearch)
	v1.Post("/search/availability", s.handleAvailability)

	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
		"mcp", s.config.MCPHandler != nil,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
