// Package client is a small HTTP client for the chronicle API used by the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/papercomputeco/chronicle/api/records"
	"github.com/papercomputeco/chronicle/api/search"
	"github.com/papercomputeco/chronicle/pkg/record"
)

// ownerHeader mirrors api.OwnerHeader. The api package is not imported so
// the CLI does not pull fiber into its dependency graph.
const ownerHeader = "X-Owner-ID"

// ErrNoOwner is returned when a client is built without an owner ID.
var ErrNoOwner = errors.New("owner ID is required: pass --owner or set client.owner_id")

// Client calls a running chronicle API server on behalf of one owner.
type Client struct {
	target  *url.URL
	ownerID string
	http    *http.Client
}

// New returns a Client for the API at target.
func New(target, ownerID string) (*Client, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	if ownerID == "" {
		return nil, ErrNoOwner
	}

	return &Client{
		target:  u,
		ownerID: ownerID,
		http:    &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// Query asks a question and returns the synthesized answer.
func (c *Client) Query(ctx context.Context, question string) (*search.Output, error) {
	var out search.Output
	err := c.do(ctx, http.MethodPost, "/v1/search/query", nil, map[string]string{"question": question}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Search returns ranked records for query without answer synthesis.
func (c *Client) Search(ctx context.Context, query string, limit int) (*search.SearchOutput, error) {
	q := url.Values{}
	q.Set("query", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var out search.SearchOutput
	if err := c.do(ctx, http.MethodGet, "/v1/records/search", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRecord stores a new record.
func (c *Client) CreateRecord(ctx context.Context, in records.CreateInput) (*record.Record, error) {
	var rec record.Record
	if err := c.do(ctx, http.MethodPost, "/v1/records", nil, in, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRecords returns the owner's records, newest first.
func (c *Client) ListRecords(ctx context.Context) ([]*record.Record, error) {
	var list []*record.Record
	if err := c.do(ctx, http.MethodGet, "/v1/records", nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// DeleteRecord removes a record by ID.
func (c *Client) DeleteRecord(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/records/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := *c.target
	u.Path = path
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set(ownerHeader, c.ownerID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to chronicle API at %s: %w", c.target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Message: errorMessage(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// StatusError is a non-2xx response from the API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed (HTTP %d): %s", e.Code, e.Message)
}

func errorMessage(body []byte) string {
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != "" {
		return resp.Error
	}
	return string(body)
}
