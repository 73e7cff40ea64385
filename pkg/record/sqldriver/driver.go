// Package sqldriver implements record.Store over database/sql. The sqlite and
// postgres packages embed Driver and only differ in how they open the
// connection and which Dialect they pass.
package sqldriver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/chronicle/pkg/record"
)

// Dialect selects placeholder style, DDL types and string functions.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// SQLiteLowerFunc names the Unicode lowercase function SQLite connections
// must register. SQLite's built-in LOWER only folds ASCII.
const SQLiteLowerFunc = "unicode_lower"

// Driver provides the shared SQL implementation of record.Store.
type Driver struct {
	DB      *sql.DB
	Dialect Dialect
}

// Migrate creates the records table and its owner/recency index if absent.
func (d *Driver) Migrate(ctx context.Context) error {
	tsType := "TIMESTAMP"
	if d.Dialect == Postgres {
		tsType = "TIMESTAMPTZ"
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			tags TEXT NOT NULL DEFAULT '[]',
			source_links TEXT NOT NULL DEFAULT '[]',
			derived_text TEXT NOT NULL DEFAULT '',
			created_at %s NOT NULL
		)`, tsType),
		`CREATE INDEX IF NOT EXISTS records_owner_created_idx ON records (owner_id, created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := d.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating records schema: %w", err)
		}
	}

	return nil
}

// Insert persists rec, assigning ID and CreatedAt when they are empty.
func (d *Driver) Insert(ctx context.Context, rec *record.Record) (*record.Record, error) {
	if rec == nil {
		return nil, errors.New("cannot store nil record")
	}

	stored := *rec
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	if stored.Tags == nil {
		stored.Tags = []string{}
	}
	if stored.SourceLinks == nil {
		stored.SourceLinks = []string{}
	}

	tags, err := json.Marshal(stored.Tags)
	if err != nil {
		return nil, fmt.Errorf("encoding tags: %w", err)
	}
	links, err := json.Marshal(stored.SourceLinks)
	if err != nil {
		return nil, fmt.Errorf("encoding source links: %w", err)
	}

	_, err = d.DB.ExecContext(ctx, d.rebind(`
		INSERT INTO records (id, owner_id, title, body, tags, source_links, derived_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`),
		stored.ID, stored.OwnerID, stored.Title, stored.Body,
		string(tags), string(links), stored.DerivedText, stored.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: inserting record: %v", record.ErrStoreUnreachable, err)
	}

	return &stored, nil
}

// FindByID retrieves a record by its ID.
func (d *Driver) FindByID(ctx context.Context, id string) (*record.Record, error) {
	row := d.DB.QueryRowContext(ctx, d.rebind(`
		SELECT id, owner_id, title, body, tags, source_links, derived_text, created_at
		FROM records WHERE id = ?
	`), id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, record.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: finding record %s: %v", record.ErrStoreUnreachable, id, err)
	}

	return rec, nil
}

// FindByOwner returns the owner's records matching f, newest first.
func (d *Driver) FindByOwner(ctx context.Context, ownerID string, f record.Filter) ([]*record.Record, error) {
	var (
		b    strings.Builder
		args = []any{ownerID}
	)

	b.WriteString(`
		SELECT id, owner_id, title, body, tags, source_links, derived_text, created_at
		FROM records WHERE owner_id = ?`)

	if f.Query != "" {
		find, lower := d.findFunc(), d.lowerFunc()
		q := strings.ToLower(f.Query)
		fmt.Fprintf(&b, ` AND (%[1]s(%[2]s(title), ?) > 0 OR %[1]s(%[2]s(body), ?) > 0`, find, lower)
		args = append(args, q, q)

		if f.MatchTags {
			// Tags are stored as a JSON array, so an exact member appears quoted.
			quoted, err := json.Marshal(f.Query)
			if err != nil {
				return nil, fmt.Errorf("encoding tag predicate: %w", err)
			}
			fmt.Fprintf(&b, ` OR %s(tags, ?) > 0`, find)
			args = append(args, string(quoted))
		}
		b.WriteString(`)`)
	}

	b.WriteString(` ORDER BY created_at DESC, id DESC`)
	if f.Limit > 0 {
		b.WriteString(` LIMIT ?`)
		args = append(args, f.Limit)
	}

	rows, err := d.DB.QueryContext(ctx, d.rebind(b.String()), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying records: %v", record.ErrStoreUnreachable, err)
	}
	defer rows.Close()

	result := make([]*record.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		result = append(result, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating records: %v", record.ErrStoreUnreachable, err)
	}

	return result, nil
}

// DeleteByID removes a record.
func (d *Driver) DeleteByID(ctx context.Context, id string) error {
	res, err := d.DB.ExecContext(ctx, d.rebind(`DELETE FROM records WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("%w: deleting record %s: %v", record.ErrStoreUnreachable, id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: deleting record %s: %v", record.ErrStoreUnreachable, id, err)
	}
	if n == 0 {
		return record.NotFoundError{ID: id}
	}

	return nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.DB.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*record.Record, error) {
	var (
		rec         record.Record
		tags, links string
	)

	if err := s.Scan(
		&rec.ID, &rec.OwnerID, &rec.Title, &rec.Body,
		&tags, &links, &rec.DerivedText, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	if err := json.Unmarshal([]byte(links), &rec.SourceLinks); err != nil {
		return nil, fmt.Errorf("decoding source links: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()

	return &rec, nil
}

// findFunc returns the dialect's 1-based substring position function.
func (d *Driver) findFunc() string {
	if d.Dialect == Postgres {
		return "strpos"
	}
	return "instr"
}

// lowerFunc returns the dialect's case folding function. It must fold the
// same way as strings.ToLower, which lowercases the query.
func (d *Driver) lowerFunc() string {
	if d.Dialect == Postgres {
		return "lower"
	}
	return SQLiteLowerFunc
}

// rebind rewrites ? placeholders to $n for Postgres.
func (d *Driver) rebind(query string) string {
	if d.Dialect != Postgres {
		return query
	}

	var (
		b strings.Builder
		n int
	)
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

var _ record.Store = (*Driver)(nil)
