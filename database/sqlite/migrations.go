package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sagarc03/mdedge/database/internal"
)

// timeFormat is fixed width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

var metaDataColumns = map[string]internal.Column{
	"id":              {Type: "text"},
	"path":            {Type: "text"},
	"content_type":    {Type: "text"},
	"etag":            {Type: "text"},
	"file_size_bytes": {Type: "integer"},
	"created_at":      {Type: "text"},
	"updated_at":      {Type: "text"},
}

func createMetaTable(ctx context.Context, db *sql.DB, tableName string) error {
	table := quoteIdentifier(tableName)
	listIndex := quoteIdentifier(fmt.Sprintf("idx_%s_list", tableName))

	stmts := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT NOT NULL PRIMARY KEY,
				path TEXT NOT NULL UNIQUE,
				content_type TEXT NOT NULL,
				etag TEXT NOT NULL,
				file_size_bytes INTEGER NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (created_at, path)`, listIndex, table),
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create meta table: %w", err)
		}
	}
	return nil
}

// DropTables removes the metadata table.
func DropTables(ctx context.Context, db *DB) error {
	_, err := db.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdentifier(db.tables.MetaData)))
	return err
}

func validateMetaTable(ctx context.Context, db *sql.DB, tableName string) error {
	var name string
	err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, tableName).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("table %s does not exist", tableName)
	}
	if err != nil {
		return fmt.Errorf("check table exists: %w", err)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdentifier(tableName)))
	if err != nil {
		return fmt.Errorf("query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	actual := map[string]internal.Column{}
	for rows.Next() {
		var (
			cid, notNull, pk int
			colName, colType string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("scan column: %w", err)
		}
		actual[colName] = internal.Column{Type: colType, Nullable: notNull == 0}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("query columns: %w", err)
	}

	return internal.CompareColumns(tableName, metaDataColumns, actual)
}
