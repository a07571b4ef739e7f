// Package sqlite stores object metadata in SQLite (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/mdedge"

	_ "modernc.org/sqlite" // SQLite driver
)

// DB is an open SQLite metadata database.
type DB struct {
	db     *sql.DB
	tables mdedge.Tables
}

// Connect opens the database at dsn. The pool is limited to one connection:
// SQLite serializes writers anyway, and ":memory:" databases exist per
// connection.
func Connect(ctx context.Context, dsn string, tables mdedge.Tables) (*DB, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	return &DB{db: db, tables: tables}, nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate creates the metadata table and its indexes if they are missing.
func (d *DB) Migrate(ctx context.Context) error {
	if err := createMetaTable(ctx, d.db, d.tables.MetaData); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the metadata table has the expected columns.
func (d *DB) Validate(ctx context.Context) error {
	if err := validateMetaTable(ctx, d.db, d.tables.MetaData); err != nil {
		return fmt.Errorf("validate schema %s: %w", d.tables.MetaData, err)
	}
	return nil
}

func (d *DB) GetRepo() mdedge.MetaDataRepo {
	return &repo{db: d.db, tableName: d.tables.MetaData}
}

func (d *DB) Close() error {
	return d.db.Close()
}
