// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/chronicle/pkg/vector"
)

const collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"

// Metadata keys written with every record. Chroma metadata values must be
// scalars, so tags are stored as a JSON-encoded string.
const (
	keyOwnerID = "owner_id"
	keyTitle   = "title"
	keyTags    = "tags_json"
)

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to vector.DefaultCollectionName if empty.
	CollectionName string

	// Timeout bounds each HTTP request. Defaults to 30s.
	Timeout time.Duration
}

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	httpClient     *http.Client
	logger         *slog.Logger

	// mu guards collectionID, which is resolved lazily by EnsureCollection
	mu           sync.RWMutex
	collectionID string
}

// NewDriver creates a new Chroma vector driver. The collection is resolved on
// the first EnsureCollection call.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, vector.Wrap(vector.ErrConfig, "creating chroma driver", errors.New("chroma URL is required"))
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = vector.DefaultCollectionName
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Driver{
		baseURL:        strings.TrimSuffix(c.URL, "/"),
		collectionName: collectionName,
		httpClient:     &http.Client{Timeout: timeout},
		logger:         logger,
	}, nil
}

// EnsureCollection gets or creates the collection with cosine distance.
func (d *Driver) EnsureCollection(ctx context.Context) error {
	body := chromaCreateCollectionRequest{
		Name:        d.collectionName,
		Metadata:    map[string]any{"hnsw:space": "cosine"},
		GetOrCreate: true,
	}

	var collection chromaCollection
	if err := d.do(ctx, http.MethodPost, collectionsPath, body, &collection, vector.ErrConfig); err != nil {
		return err
	}
	if collection.ID == "" {
		return vector.Wrap(vector.ErrConfig, "creating collection", errors.New("chroma returned no collection id"))
	}

	d.mu.Lock()
	changed := d.collectionID != collection.ID
	d.collectionID = collection.ID
	d.mu.Unlock()

	if changed {
		d.logger.Info("connected to Chroma",
			"url", d.baseURL,
			"collection", d.collectionName,
			"collection_id", collection.ID,
		)
	}

	return nil
}

// Upsert inserts or overwrites the record's embedding and metadata.
func (d *Driver) Upsert(ctx context.Context, p vector.Point) error {
	path, err := d.collectionPath(ctx, "upsert")
	if err != nil {
		return err
	}

	tags, err := json.Marshal(p.Payload.Tags)
	if err != nil {
		return vector.Wrap(vector.ErrRejected, "encoding tags", err)
	}

	body := chromaUpsertRequest{
		IDs:        []string{p.ID},
		Embeddings: [][]float32{p.Vector},
		Metadatas: []map[string]any{{
			keyOwnerID: p.Payload.OwnerID,
			keyTitle:   p.Payload.Title,
			keyTags:    string(tags),
		}},
		Documents: []string{p.Payload.Body},
	}

	if err := d.do(ctx, http.MethodPost, path, body, nil, vector.ErrRejected); err != nil {
		return err
	}

	d.logger.Debug("upserted record to chroma", "id", p.ID)
	return nil
}

// Query finds the nearest records owned by ownerID.
func (d *Driver) Query(ctx context.Context, vec []float32, ownerID string, limit int) ([]vector.Hit, error) {
	if limit <= 0 {
		limit = 10
	}

	path, err := d.collectionPath(ctx, "query")
	if err != nil {
		return nil, err
	}

	body := chromaQueryRequest{
		QueryEmbeddings: [][]float32{vec},
		NResults:        limit,
		Where:           map[string]any{keyOwnerID: ownerID},
		Include:         []string{"metadatas", "documents", "distances"},
	}

	var queryResp chromaQueryResponse
	if err := d.do(ctx, http.MethodPost, path, body, &queryResp, vector.ErrQuery); err != nil {
		return nil, err
	}

	hits := make([]vector.Hit, 0)

	// Process first group (we only query with one embedding)
	if len(queryResp.IDs) == 0 {
		return hits, nil
	}

	ids := queryResp.IDs[0]
	var (
		distances []float32
		metadatas []map[string]any
		documents []string
	)
	if len(queryResp.Distances) > 0 {
		distances = queryResp.Distances[0]
	}
	if len(queryResp.Metadatas) > 0 {
		metadatas = queryResp.Metadatas[0]
	}
	if len(queryResp.Documents) > 0 {
		documents = queryResp.Documents[0]
	}

	for i, id := range ids {
		hit := vector.Hit{
			ID:     id,
			Source: vector.SourceVector,
		}

		if i < len(metadatas) && metadatas[i] != nil {
			hit.Payload.OwnerID, _ = metadatas[i][keyOwnerID].(string)
			hit.Payload.Title, _ = metadatas[i][keyTitle].(string)
			if raw, ok := metadatas[i][keyTags].(string); ok {
				_ = json.Unmarshal([]byte(raw), &hit.Payload.Tags)
			}
		}
		if i < len(documents) {
			hit.Payload.Body = documents[i]
		}

		// Convert distance to similarity score
		// Lower distance = higher similarity
		if i < len(distances) {
			hit.Score = 1.0 / (1.0 + distances[i])
		}

		hits = append(hits, hit)
	}

	d.logger.Debug("queried chroma", "results", len(hits))
	return hits, nil
}

// Delete removes the record's embedding.
func (d *Driver) Delete(ctx context.Context, id string) error {
	path, err := d.collectionPath(ctx, "delete")
	if err != nil {
		return err
	}

	if err := d.do(ctx, http.MethodPost, path, chromaDeleteRequest{IDs: []string{id}}, nil, vector.ErrRejected); err != nil {
		return err
	}

	d.logger.Debug("deleted record from chroma", "id", id)
	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	d.httpClient.CloseIdleConnections()
	return nil
}

func (d *Driver) collectionPath(ctx context.Context, op string) (string, error) {
	d.mu.RLock()
	id := d.collectionID
	d.mu.RUnlock()

	if id == "" {
		if err := d.EnsureCollection(ctx); err != nil {
			return "", err
		}
		d.mu.RLock()
		id = d.collectionID
		d.mu.RUnlock()
	}

	return collectionsPath + "/" + id + "/" + op, nil
}

// do sends a JSON request and decodes the response into out when non-nil.
// Transport errors and 5xx responses are ErrUnreachable; 4xx responses are
// reported with the semantic sentinel.
func (d *Driver) do(ctx context.Context, method, path string, in, out any, semantic error) error {
	jsonBody, err := json.Marshal(in)
	if err != nil {
		return vector.Wrap(semantic, "marshaling request", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return vector.Wrap(vector.ErrConfig, "creating request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return vector.Wrap(vector.ErrUnreachable, "sending request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		body, _ := io.ReadAll(resp.Body)
		return vector.Wrap(vector.ErrUnreachable, path, fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return vector.Wrap(semantic, path, fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return vector.Wrap(semantic, "decoding response", err)
	}

	return nil
}

var _ vector.Driver = (*Driver)(nil)
