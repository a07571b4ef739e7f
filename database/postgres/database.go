// Package postgres stores object metadata in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/mdedge"
)

// DB is a PostgreSQL metadata database.
type DB struct {
	pool   *pgxpool.Pool
	tables mdedge.Tables
}

// Connect creates a connection pool for dsn. The pool connects lazily, so
// call Ping to check the server is reachable.
func Connect(ctx context.Context, dsn string, tables mdedge.Tables) (*DB, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &DB{pool: pool, tables: tables}, nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Migrate creates the metadata table and its indexes if they are missing.
func (d *DB) Migrate(ctx context.Context) error {
	if err := createMetaTable(ctx, d.pool, d.tables.MetaData); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Validate checks that the metadata table has the expected columns.
func (d *DB) Validate(ctx context.Context) error {
	if err := validateMetaTable(ctx, d.pool, d.tables.MetaData); err != nil {
		return fmt.Errorf("validate schema %s: %w", d.tables.MetaData, err)
	}
	return nil
}

func (d *DB) GetRepo() mdedge.MetaDataRepo {
	return &repo{pool: d.pool, tableName: d.tables.MetaData}
}

func (d *DB) Close() error {
	d.pool.Close()
	return nil
}
