// Package mcp exposes chronicle over the Model Context Protocol so agents can
// ask questions over, search, and read a user's records.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/chronicle/api/search"
	"github.com/papercomputeco/chronicle/pkg/record"
	"github.com/papercomputeco/chronicle/pkg/utils"
)

type Config struct {
	// Orchestrator backs the ask and search tools. Required unless Noop.
	Orchestrator *search.Orchestrator

	// Records enables the get_record tool when set.
	Records record.Store

	// Noop serves an MCP endpoint with no tools.
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config  Config
	handler http.Handler
}

func (c Config) validate() error {
	if c.Noop {
		return nil
	}
	if c.Orchestrator == nil {
		return errors.New("search orchestrator is required")
	}
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// NewServer registers the tools c enables and wraps them in a stateless
// streamable HTTP handler.
func NewServer(c Config) (*Server, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	s := &Server{config: c}
	impl := &mcp.Implementation{Name: "chronicle", Version: utils.Build().Version}
	srv := mcp.NewServer(impl, &mcp.ServerOptions{})

	if !c.Noop {
		s.registerTools(srv)
	}

	s.handler = mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return srv },
		&mcp.StreamableHTTPOptions{Stateless: true},
	)

	return s, nil
}

func (s *Server) registerTools(srv *mcp.Server) {
	mcp.AddTool(srv, &mcp.Tool{Name: askToolName, Description: askDescription}, s.handleAsk)
	mcp.AddTool(srv, &mcp.Tool{Name: searchToolName, Description: searchDescription}, s.handleSearch)

	if s.config.Records != nil {
		mcp.AddTool(srv, &mcp.Tool{Name: getRecordToolName, Description: getRecordDescription}, s.handleGetRecord)
	}
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}
