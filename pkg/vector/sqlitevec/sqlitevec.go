// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/chronicle/pkg/vector"
)

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// Driver implements vector.Driver using SQLite with sqlite-vec.
type Driver struct {
	db         *sql.DB
	dimensions uint
	logger     *slog.Logger
}

// NewDriver opens the database and verifies the sqlite-vec extension is
// loaded. Tables are created by EnsureCollection.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, vector.Wrap(vector.ErrConfig, "creating sqlite-vec driver", errors.New("database path is required"))
	}
	if c.Dimensions == 0 {
		return nil, vector.Wrap(vector.ErrConfig, "creating sqlite-vec driver", errors.New("embedding dimensions cannot be 0, must be configured"))
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, vector.Wrap(vector.ErrConfig, "opening database", err)
	}
	db.SetMaxOpenConns(1)

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, vector.Wrap(vector.ErrConfig, "sqlite-vec not available", err)
	}

	logger.Info("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"dimensions", c.Dimensions,
		"vec_version", vecVersion,
	)

	return &Driver{
		db:         db,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// EnsureCollection creates the point metadata table and the vec0 table.
//
// vec0 virtual tables use integer rowids, so vec_points maps string record IDs
// to rowids and carries the payload. owner_id is a vec0 partition key so KNN
// queries are filtered by owner inside the index.
func (d *Driver) EnsureCollection(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vec_points (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			point_id TEXT NOT NULL UNIQUE,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]'
		)`,
		fmt.Sprintf(
			`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(
				owner_id text partition key,
				embedding float[%d] distance_metric=cosine
			)`,
			d.dimensions,
		),
	}

	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return classify(err, vector.ErrConfig, "creating tables")
		}
	}

	return nil
}

// Upsert stores the point, replacing any previous embedding with the same ID.
func (d *Driver) Upsert(ctx context.Context, p vector.Point) error {
	if uint(len(p.Vector)) != d.dimensions {
		return vector.Wrap(vector.ErrRejected, "upserting point "+p.ID,
			fmt.Errorf("vector has %d dimensions, collection expects %d", len(p.Vector), d.dimensions))
	}

	tags, err := json.Marshal(p.Payload.Tags)
	if err != nil {
		return vector.Wrap(vector.ErrRejected, "encoding tags", err)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err, vector.ErrRejected, "beginning transaction")
	}
	defer tx.Rollback()

	var rowID int64
	err = tx.QueryRowContext(ctx, `SELECT rowid FROM vec_points WHERE point_id = ?`, p.ID).Scan(&rowID)
	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx,
			`UPDATE vec_points SET owner_id = ?, title = ?, body = ?, tags = ? WHERE rowid = ?`,
			p.Payload.OwnerID, p.Payload.Title, p.Payload.Body, string(tags), rowID,
		); err != nil {
			return classify(err, vector.ErrRejected, "updating point "+p.ID)
		}

		// vec0 does not support UPDATE
		if _, err := tx.ExecContext(ctx, `DELETE FROM vec_embeddings WHERE rowid = ?`, rowID); err != nil {
			return classify(err, vector.ErrRejected, "deleting old embedding for "+p.ID)
		}
	case errors.Is(err, sql.ErrNoRows):
		result, err := tx.ExecContext(ctx,
			`INSERT INTO vec_points(point_id, owner_id, title, body, tags) VALUES (?, ?, ?, ?, ?)`,
			p.ID, p.Payload.OwnerID, p.Payload.Title, p.Payload.Body, string(tags),
		)
		if err != nil {
			return classify(err, vector.ErrRejected, "inserting point "+p.ID)
		}
		if rowID, err = result.LastInsertId(); err != nil {
			return classify(err, vector.ErrRejected, "getting rowid for "+p.ID)
		}
	default:
		return classify(err, vector.ErrRejected, "checking for existing point "+p.ID)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vec_embeddings(rowid, owner_id, embedding) VALUES (?, ?, ?)`,
		rowID, p.Payload.OwnerID, serializeFloat32(p.Vector),
	); err != nil {
		return classify(err, vector.ErrRejected, "inserting embedding for "+p.ID)
	}

	if err := tx.Commit(); err != nil {
		return classify(err, vector.ErrRejected, "committing transaction")
	}

	d.logger.Debug("upserted point to sqlite-vec", "id", p.ID)
	return nil
}

// Query runs a KNN search restricted to the owner's partition.
func (d *Driver) Query(ctx context.Context, vec []float32, ownerID string, limit int) ([]vector.Hit, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT
			p.point_id,
			p.owner_id,
			p.title,
			p.body,
			p.tags,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_points p ON p.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
			AND ve.owner_id = ?
		ORDER BY ve.distance
	`, serializeFloat32(vec), limit, ownerID)
	if err != nil {
		return nil, classify(err, vector.ErrQuery, "querying vectors")
	}
	defer rows.Close()

	hits := make([]vector.Hit, 0)
	for rows.Next() {
		var (
			hit      = vector.Hit{Source: vector.SourceVector}
			tags     string
			distance sql.NullFloat64
		)
		if err := rows.Scan(&hit.ID, &hit.Payload.OwnerID, &hit.Payload.Title, &hit.Payload.Body, &tags, &distance); err != nil {
			return nil, vector.Wrap(vector.ErrQuery, "scanning query result", err)
		}
		_ = json.Unmarshal([]byte(tags), &hit.Payload.Tags)

		// Cosine distance is in [0, 2]; NULL comes back for zero vectors.
		if distance.Valid {
			hit.Score = float32(1 - distance.Float64)
		}

		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(err, vector.ErrQuery, "iterating query results")
	}

	d.logger.Debug("queried sqlite-vec", "results", len(hits))
	return hits, nil
}

// Delete removes the point and its embedding.
func (d *Driver) Delete(ctx context.Context, id string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err, vector.ErrRejected, "beginning transaction")
	}
	defer tx.Rollback()

	var rowID int64
	err = tx.QueryRowContext(ctx, `SELECT rowid FROM vec_points WHERE point_id = ?`, id).Scan(&rowID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return classify(err, vector.ErrRejected, "looking up point "+id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_embeddings WHERE rowid = ?`, rowID); err != nil {
		return classify(err, vector.ErrRejected, "deleting embedding for "+id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_points WHERE rowid = ?`, rowID); err != nil {
		return classify(err, vector.ErrRejected, "deleting point "+id)
	}

	if err := tx.Commit(); err != nil {
		return classify(err, vector.ErrRejected, "committing transaction")
	}

	d.logger.Debug("deleted point from sqlite-vec", "id", id)
	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// classify treats a closed database or cancelled context as unreachable;
// everything else is reported with the semantic sentinel.
func classify(err error, semantic error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		strings.Contains(err.Error(), "database is closed") {
		return vector.Wrap(vector.ErrUnreachable, op, err)
	}
	return vector.Wrap(semantic, op, err)
}

var _ vector.Driver = (*Driver)(nil)
