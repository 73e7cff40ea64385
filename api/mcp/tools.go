package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/chronicle/api/search"
	"github.com/papercomputeco/chronicle/pkg/record"
)

var (
	askToolName    = "ask"
	askDescription = "Answer a question using only the caller's stored chronicle records. Returns the answer and the records it was grounded on."

	searchToolName    = "search"
	searchDescription = "Search the caller's stored chronicle records. Uses semantic search when the vector index is available and keyword search otherwise."

	getRecordToolName    = "get_record"
	getRecordDescription = "Fetch one of the caller's records by ID, including its source links and the text fetched from them."
)

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	OwnerID  string `json:"owner_id" jsonschema:"the user whose records are searched"`
	Question string `json:"question" jsonschema:"the question to answer"`
}

// AskOutput represents the output of the ask tool.
type AskOutput struct {
	Answer   string          `json:"answer"`
	Question string          `json:"question"`
	Records  []RecordSummary `json:"records"`
}

// SearchInput represents the input arguments for the search tool.
type SearchInput struct {
	OwnerID string `json:"owner_id" jsonschema:"the user whose records are searched"`
	Query   string `json:"query" jsonschema:"the search query text"`
	TopK    int    `json:"top_k,omitempty" jsonschema:"number of results to return (default: 5)"`
}

// SearchResult represents a single search result.
type SearchResult struct {
	Record RecordSummary `json:"record"`
	Score  float32       `json:"score"`
	Source string        `json:"source"`
}

// SearchOutput represents the output of the search tool.
type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// GetRecordInput represents the input arguments for the get_record tool.
type GetRecordInput struct {
	OwnerID string `json:"owner_id" jsonschema:"the user who owns the record"`
	ID      string `json:"id" jsonschema:"the record ID"`
}

// GetRecordOutput represents the output of the get_record tool.
type GetRecordOutput struct {
	Record      RecordSummary `json:"record"`
	SourceLinks []string      `json:"source_links"`
	DerivedText string        `json:"derived_text,omitempty"`
}

// RecordSummary is the tool-facing view of a record.
type RecordSummary struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Tags      []string `json:"tags"`
	CreatedAt string   `json:"created_at"`
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	logger := s.config.Logger

	if strings.TrimSpace(input.OwnerID) == "" {
		return errorResult("owner_id is required"), AskOutput{}, nil
	}

	logger.Debug("MCP ask request",
		"owner_id", input.OwnerID,
		"question", input.Question,
	)

	out, err := s.config.Orchestrator.Query(ctx, input.Question, input.OwnerID)
	if err != nil {
		logger.Error("MCP ask failed", "error", err)
		return errorResult(fmt.Sprintf("Failed to answer question: %v", err)), AskOutput{}, nil
	}

	output := AskOutput{
		Answer:   out.Answer.Answer,
		Question: out.Answer.Question,
		Records:  make([]RecordSummary, 0, len(out.RelevantRecords)),
	}
	for _, rec := range out.RelevantRecords {
		output.Records = append(output.Records, summarize(rec))
	}

	return jsonResult(output), output, nil
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	logger := s.config.Logger

	if strings.TrimSpace(input.OwnerID) == "" {
		return errorResult("owner_id is required"), SearchOutput{}, nil
	}

	logger.Debug("MCP search request",
		"owner_id", input.OwnerID,
		"query", input.Query,
		"top_k", input.TopK,
	)

	out, err := s.config.Orchestrator.Search(ctx, input.Query, input.OwnerID, input.TopK)
	if err != nil {
		logger.Error("MCP search failed", "error", err)
		return errorResult(fmt.Sprintf("Failed to search records: %v", err)), SearchOutput{}, nil
	}

	output := buildSearchOutput(out)
	return jsonResult(output), output, nil
}

func (s *Server) handleGetRecord(ctx context.Context, _ *mcp.CallToolRequest, input GetRecordInput) (*mcp.CallToolResult, GetRecordOutput, error) {
	if strings.TrimSpace(input.OwnerID) == "" || strings.TrimSpace(input.ID) == "" {
		return errorResult("owner_id and id are required"), GetRecordOutput{}, nil
	}

	rec, err := s.config.Records.FindByID(ctx, input.ID)
	if err == nil && rec.OwnerID != input.OwnerID {
		err = record.NotFoundError{ID: input.ID}
	}
	if errors.Is(err, record.ErrNotFoundOrUnauthorized) {
		return errorResult(err.Error()), GetRecordOutput{}, nil
	}
	if err != nil {
		s.config.Logger.Error("MCP get_record failed", "id", input.ID, "error", err)
		return errorResult(fmt.Sprintf("Failed to load record: %v", err)), GetRecordOutput{}, nil
	}

	links := rec.SourceLinks
	if links == nil {
		links = []string{}
	}
	output := GetRecordOutput{
		Record:      summarize(rec),
		SourceLinks: links,
		DerivedText: rec.DerivedText,
	}
	return jsonResult(output), output, nil
}

func buildSearchOutput(out *search.SearchOutput) SearchOutput {
	results := make([]SearchResult, 0, len(out.Results))
	for _, r := range out.Results {
		results = append(results, SearchResult{
			Record: summarize(r.Record),
			Score:  r.Score,
			Source: string(r.Source),
		})
	}

	return SearchOutput{
		Query:   out.Query,
		Results: results,
		Count:   len(results),
	}
}

func summarize(rec *record.Record) RecordSummary {
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}

	return RecordSummary{
		ID:        rec.ID,
		Title:     rec.Title,
		Body:      rec.Body,
		Tags:      tags,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	}
}

// jsonResult serializes structured output into a TextContent block as well,
// for clients that ignore structured content.
func jsonResult(v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
