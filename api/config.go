// Package api provides the HTTP API server for creating, searching and asking
// questions over chronicle records.
package api

import (
	"net/http"

	"github.com/papercomputeco/chronicle/api/records"
	"github.com/papercomputeco/chronicle/api/search"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// Coordinator handles record writes. Required.
	Coordinator *records.Coordinator

	// Orchestrator handles search and answers. Search routes respond 503
	// without it.
	Orchestrator *search.Orchestrator

	// MCPHandler is mounted at /mcp when set.
	MCPHandler http.Handler
}
