// Package qdrant provides a Qdrant vector database driver over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/papercomputeco/chronicle/pkg/vector"
)

const (
	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334

	// DefaultDimensions matches the embedding size the collection is created with.
	DefaultDimensions = 1536
)

// Payload keys written with every point.
const (
	keyRecordID = "record_id"
	keyOwnerID  = "owner_id"
	keyTitle    = "title"
	keyBody     = "body"
	keyTags     = "tags"
)

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Target is the gRPC address, "host" or "host:port". Port defaults to DefaultPort.
	Target string

	// Collection defaults to vector.DefaultCollectionName.
	Collection string

	// Dimensions defaults to DefaultDimensions.
	Dimensions uint

	APIKey string
	UseTLS bool
}

// Driver implements vector.Driver using the Qdrant gRPC client.
type Driver struct {
	client     *qdrant.Client
	collection string
	dimensions uint64
	logger     *slog.Logger
}

// NewDriver creates a Qdrant driver. It does not contact the server; call
// EnsureCollection (or wrap it in a vector.Tracker) to probe it.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	host, port, err := splitTarget(c.Target)
	if err != nil {
		return nil, vector.Wrap(vector.ErrConfig, "parsing qdrant target", err)
	}

	collection := c.Collection
	if collection == "" {
		collection = vector.DefaultCollectionName
	}

	dimensions := c.Dimensions
	if dimensions == 0 {
		dimensions = DefaultDimensions
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, vector.Wrap(vector.ErrConfig, "creating qdrant client", err)
	}

	logger.Debug("created qdrant client",
		"host", host,
		"port", port,
		"collection", collection,
		"dimensions", dimensions,
	)

	return &Driver{
		client:     client,
		collection: collection,
		dimensions: uint64(dimensions),
		logger:     logger,
	}, nil
}

// EnsureCollection creates the collection with cosine distance if it is absent.
func (d *Driver) EnsureCollection(ctx context.Context) error {
	exists, err := d.client.CollectionExists(ctx, d.collection)
	if err != nil {
		return classify(err, vector.ErrConfig, "checking collection")
	}
	if exists {
		return nil
	}

	err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: d.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     d.dimensions,
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return classify(err, vector.ErrConfig, "creating collection")
	}

	d.logger.Info("created qdrant collection",
		"collection", d.collection,
		"dimensions", d.dimensions,
	)

	return nil
}

// Upsert inserts or overwrites the point.
func (d *Driver) Upsert(ctx context.Context, p vector.Point) error {
	if uint64(len(p.Vector)) != d.dimensions {
		return vector.Wrap(vector.ErrRejected, "upserting point "+p.ID,
			fmt.Errorf("vector has %d dimensions, collection expects %d", len(p.Vector), d.dimensions))
	}

	wait := true
	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Wait:           &wait,
		Points: []*qdrant.PointStruct{
			{
				Id:      pointID(p.ID),
				Vectors: qdrant.NewVectors(p.Vector...),
				Payload: qdrant.NewValueMap(toPayload(p)),
			},
		},
	})
	if err != nil {
		return classify(err, vector.ErrRejected, "upserting point "+p.ID)
	}

	d.logger.Debug("upserted point to qdrant", "id", p.ID)
	return nil
}

// Query returns the nearest neighbours whose owner_id payload equals ownerID.
func (d *Driver) Query(ctx context.Context, vec []float32, ownerID string, limit int) ([]vector.Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	l := uint64(limit)

	resp, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQuery(vec...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(keyOwnerID, ownerID),
			},
		},
		Limit:       &l,
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, classify(err, vector.ErrQuery, "querying points")
	}

	hits := make([]vector.Hit, 0, len(resp))
	for _, r := range resp {
		hits = append(hits, toHit(r.GetId(), r.GetScore(), r.GetPayload()))
	}

	d.logger.Debug("queried qdrant", "results", len(hits))
	return hits, nil
}

// Delete removes the point by record ID. Every failure is reported as
// ErrUnreachable, the only error class delete has.
func (d *Driver) Delete(ctx context.Context, id string) error {
	wait := true
	_, err := d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collection,
		Wait:           &wait,
		Points:         qdrant.NewPointsSelector(pointID(id)),
	})
	if err != nil {
		return vector.Wrap(vector.ErrUnreachable, "deleting point "+id, err)
	}

	d.logger.Debug("deleted point from qdrant", "id", id)
	return nil
}

// Close closes the underlying gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

// pointID maps a record ID onto a Qdrant point ID. Qdrant only accepts UUIDs
// and unsigned integers, so other IDs are hashed into a stable UUIDv5 and the
// original is kept in the payload.
func pointID(recordID string) *qdrant.PointId {
	if u, err := uuid.Parse(recordID); err == nil {
		return qdrant.NewIDUUID(u.String())
	}
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(recordID)).String())
}

func toPayload(p vector.Point) map[string]any {
	tags := make([]any, len(p.Payload.Tags))
	for i, t := range p.Payload.Tags {
		tags[i] = t
	}

	return map[string]any{
		keyRecordID: p.ID,
		keyOwnerID:  p.Payload.OwnerID,
		keyTitle:    p.Payload.Title,
		keyBody:     p.Payload.Body,
		keyTags:     tags,
	}
}

func toHit(id *qdrant.PointId, score float32, payload map[string]*qdrant.Value) vector.Hit {
	md := make(map[string]any, len(payload))
	for k, v := range payload {
		md[k] = convertValue(v)
	}

	hit := vector.Hit{
		Score:  score,
		Source: vector.SourceVector,
	}

	hit.ID, _ = md[keyRecordID].(string)
	if hit.ID == "" && id != nil {
		switch x := id.GetPointIdOptions().(type) {
		case *qdrant.PointId_Uuid:
			hit.ID = x.Uuid
		case *qdrant.PointId_Num:
			hit.ID = strconv.FormatUint(x.Num, 10)
		}
	}

	hit.Payload.OwnerID, _ = md[keyOwnerID].(string)
	hit.Payload.Title, _ = md[keyTitle].(string)
	hit.Payload.Body, _ = md[keyBody].(string)
	if tags, ok := md[keyTags].([]any); ok {
		for _, t := range tags {
			if s, ok := t.(string); ok {
				hit.Payload.Tags = append(hit.Payload.Tags, s)
			}
		}
	}

	return hit
}

func convertValue(v *qdrant.Value) any {
	if v == nil {
		return nil
	}

	switch val := v.GetKind().(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_NullValue:
		return nil
	case *qdrant.Value_ListValue:
		out := make([]any, len(val.ListValue.GetValues()))
		for i, lv := range val.ListValue.GetValues() {
			out[i] = convertValue(lv)
		}
		return out
	case *qdrant.Value_StructValue:
		out := make(map[string]any)
		for k, nv := range val.StructValue.GetFields() {
			out[k] = convertValue(nv)
		}
		return out
	}

	return nil
}

// classify maps a client error onto the vector error taxonomy. Transport
// failures are ErrUnreachable; anything the server answered is semantic.
func classify(err error, semantic error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return vector.Wrap(vector.ErrUnreachable, op, err)
	}

	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled, codes.Aborted, codes.ResourceExhausted:
		return vector.Wrap(vector.ErrUnreachable, op, err)
	case codes.Unauthenticated, codes.PermissionDenied:
		return vector.Wrap(vector.ErrConfig, op, err)
	default:
		return vector.Wrap(semantic, op, err)
	}
}

func splitTarget(target string) (string, int, error) {
	if target == "" {
		return "", 0, errors.New("qdrant target is required")
	}
	if i := strings.Index(target, "://"); i >= 0 {
		target = strings.TrimSuffix(target[i+3:], "/")
	}

	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		// No port given
		return target, DefaultPort, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}

	return host, port, nil
}

var _ vector.Driver = (*Driver)(nil)
