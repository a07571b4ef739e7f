package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sagarc03/mdedge"
)

type repo struct {
	db        *sql.DB
	tableName string
}

const selectColumns = `id, path, content_type, etag, file_size_bytes, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanMetaData(s scanner) (mdedge.MetaData, error) {
	var (
		m                     mdedge.MetaData
		id, created, updated string
	)
	if err := s.Scan(&id, &m.Path, &m.ContentType, &m.Etag, &m.FileSizeBytes, &created, &updated); err != nil {
		return mdedge.MetaData{}, err
	}

	var err error
	if m.ID, err = uuid.Parse(id); err != nil {
		return mdedge.MetaData{}, fmt.Errorf("parse id: %w", err)
	}
	if m.CreatedAt, err = time.Parse(timeFormat, created); err != nil {
		return mdedge.MetaData{}, fmt.Errorf("parse created_at: %w", err)
	}
	if m.UpdatedAt, err = time.Parse(timeFormat, updated); err != nil {
		return mdedge.MetaData{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return m, nil
}

func (r *repo) Get(ctx context.Context, path string) (mdedge.MetaData, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT %s FROM %s WHERE path = ?`, selectColumns, quoteIdentifier(r.tableName))

	m, err := scanMetaData(r.db.QueryRowContext(ctx, query, path))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mdedge.MetaData{}, fmt.Errorf("get %s: %w", path, mdedge.ErrNotFound)
		}
		return mdedge.MetaData{}, fmt.Errorf("get %s: %w", path, err)
	}
	return m, nil
}

// Upsert inserts or replaces the row for entry.Path in one statement. The id
// and created_at of an existing row survive, which is how an insert is told
// apart from an update.
func (r *repo) Upsert(ctx context.Context, entry mdedge.ObjectEntry) (mdedge.MetaData, bool, error) {
	newID := uuid.New()
	now := time.Now().UTC().Format(timeFormat)

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, path, content_type, etag, file_size_bytes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content_type = excluded.content_type,
			etag = excluded.etag,
			file_size_bytes = excluded.file_size_bytes,
			updated_at = excluded.updated_at
		RETURNING %s`, quoteIdentifier(r.tableName), selectColumns)

	m, err := scanMetaData(r.db.QueryRowContext(ctx, query,
		newID.String(), entry.Path, entry.ContentType, entry.ETag, entry.Size, now, now,
	))
	if err != nil {
		return mdedge.MetaData{}, false, fmt.Errorf("upsert %s: %w", entry.Path, err)
	}

	return m, m.ID == newID, nil
}

func (r *repo) Delete(ctx context.Context, path string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE path = ?`, quoteIdentifier(r.tableName)) //nolint:gosec // G201: table name is validated

	result, err := r.db.ExecContext(ctx, query, path)
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: rows affected: %w", path, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", path, mdedge.ErrNotFound)
	}
	return nil
}

// List pages through rows ordered by (created_at, path). One extra row is
// fetched to know whether a next cursor is needed.
func (r *repo) List(ctx context.Context, q mdedge.ListQuery) (mdedge.ListResult, error) {
	cursor, err := mdedge.DecodeCursor(q.Cursor)
	if err != nil {
		return mdedge.ListResult{}, fmt.Errorf("list: %w", err)
	}
	if q.Limit <= 0 {
		return mdedge.ListResult{}, fmt.Errorf("list: %w: limit must be positive", mdedge.ErrInvalidInput)
	}

	table := quoteIdentifier(r.tableName)
	prefix := mdedge.EscapeLikePattern(q.PathPrefix)

	var (
		query string
		args  []any
	)
	if q.Cursor == "" {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE path LIKE ? || '%%' ESCAPE '\'
			ORDER BY created_at, path
			LIMIT ?`, selectColumns, table)
		args = []any{prefix, q.Limit + 1}
	} else {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE path LIKE ? || '%%' ESCAPE '\' AND (created_at, path) > (?, ?)
			ORDER BY created_at, path
			LIMIT ?`, selectColumns, table)
		args = []any{prefix, cursor.CreatedAt.UTC().Format(timeFormat), cursor.Path, q.Limit + 1}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return mdedge.ListResult{}, fmt.Errorf("list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]mdedge.MetaData, 0, q.Limit)
	for rows.Next() {
		m, err := scanMetaData(rows)
		if err != nil {
			return mdedge.ListResult{}, fmt.Errorf("list: scan: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return mdedge.ListResult{}, fmt.Errorf("list: rows: %w", err)
	}

	var next string
	if len(items) > q.Limit {
		last := items[q.Limit-1]
		next = mdedge.EncodeCursor(last.CreatedAt, last.Path)
		items = items[:q.Limit]
	}

	return mdedge.ListResult{Items: items, NextCursor: next}, nil
}
