package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/mdedge/database/internal"
)

var metaDataColumns = map[string]internal.Column{
	"id":              {Type: "uuid"},
	"path":            {Type: "text"},
	"content_type":    {Type: "text"},
	"etag":            {Type: "text"},
	"file_size_bytes": {Type: "bigint"},
	"created_at":      {Type: "timestamp with time zone"},
	"updated_at":      {Type: "timestamp with time zone"},
}

func createMetaTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	table := pgx.Identifier{tableName}.Sanitize()
	listIndex := pgx.Identifier{fmt.Sprintf("idx_%s_list", tableName)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			path TEXT NOT NULL UNIQUE,
			content_type TEXT NOT NULL,
			etag TEXT NOT NULL,
			file_size_bytes BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS %s ON %s (created_at, path);
	`, table, listIndex, table)

	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create meta table: %w", err)
	}
	return nil
}

// DropTables removes the metadata table.
func DropTables(ctx context.Context, db *DB) error {
	_, err := db.pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, pgx.Identifier{db.tables.MetaData}.Sanitize()))
	return err
}

func validateMetaTable(ctx context.Context, pool *pgxpool.Pool, tableName string) error {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)`, tableName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check table exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("table %s does not exist", tableName)
	}

	rows, err := pool.Query(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1`, tableName)
	if err != nil {
		return fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	actual := map[string]internal.Column{}
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return fmt.Errorf("scan column: %w", err)
		}
		actual[name] = internal.Column{Type: dataType, Nullable: nullable == "YES"}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("query columns: %w", err)
	}

	return internal.CompareColumns(tableName, metaDataColumns, actual)
}
