// Package sqlite provides a SQLite-backed record store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/chronicle/pkg/record/sqldriver"
)

// DriverName is the database/sql driver registered by this package: mattn's
// sqlite3 with sqldriver.SQLiteLowerFunc available on every connection.
const DriverName = "chronicle_sqlite3"

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(sqldriver.SQLiteLowerFunc, strings.ToLower, true)
		},
	})
}

// Driver implements record.Store using SQLite.
type Driver struct {
	*sqldriver.Driver
}

// NewDriver creates a new SQLite-backed record store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(ctx context.Context, dbPath string) (*Driver, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every pooled connection to ":memory:" would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	drv := &sqldriver.Driver{DB: db, Dialect: sqldriver.SQLite}
	if err := drv.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &Driver{Driver: drv}, nil
}
