package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/mdedge"
)

type repo struct {
	pool      *pgxpool.Pool
	tableName string
}

const selectColumns = `id, path, content_type, etag, file_size_bytes, created_at, updated_at`

func (r *repo) table() string {
	return pgx.Identifier{r.tableName}.Sanitize()
}

func scanMetaData(row pgx.Row, extra ...any) (mdedge.MetaData, error) {
	var m mdedge.MetaData
	dest := append([]any{&m.ID, &m.Path, &m.ContentType, &m.Etag, &m.FileSizeBytes, &m.CreatedAt, &m.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return mdedge.MetaData{}, err
	}
	return m, nil
}

func (r *repo) Get(ctx context.Context, path string) (mdedge.MetaData, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE path = $1`, selectColumns, r.table())

	m, err := scanMetaData(r.pool.QueryRow(ctx, query, path))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mdedge.MetaData{}, fmt.Errorf("get %s: %w", path, mdedge.ErrNotFound)
		}
		return mdedge.MetaData{}, fmt.Errorf("get %s: %w", path, err)
	}
	return m, nil
}

// Upsert reports an insert through xmax, which is zero only for a row this
// statement created.
func (r *repo) Upsert(ctx context.Context, entry mdedge.ObjectEntry) (mdedge.MetaData, bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (path, content_type, etag, file_size_bytes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (path) DO UPDATE
		SET content_type = EXCLUDED.content_type,
			etag = EXCLUDED.etag,
			file_size_bytes = EXCLUDED.file_size_bytes,
			updated_at = NOW()
		RETURNING %s, (xmax = 0) AS inserted
	`, r.table(), selectColumns)

	var inserted bool
	m, err := scanMetaData(r.pool.QueryRow(ctx, query, entry.Path, entry.ContentType, entry.ETag, entry.Size), &inserted)
	if err != nil {
		return mdedge.MetaData{}, false, fmt.Errorf("upsert %s: %w", entry.Path, err)
	}
	return m, inserted, nil
}

func (r *repo) Delete(ctx context.Context, path string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE path = $1`, r.table())

	result, err := r.pool.Exec(ctx, query, path)
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete %s: %w", path, mdedge.ErrNotFound)
	}
	return nil
}

func (r *repo) List(ctx context.Context, q mdedge.ListQuery) (mdedge.ListResult, error) {
	cursor, err := mdedge.DecodeCursor(q.Cursor)
	if err != nil {
		return mdedge.ListResult{}, fmt.Errorf("list: %w", err)
	}
	if q.Limit <= 0 {
		return mdedge.ListResult{}, fmt.Errorf("list: %w: limit must be positive", mdedge.ErrInvalidInput)
	}

	prefix := mdedge.EscapeLikePattern(q.PathPrefix)

	var (
		query string
		args  []any
	)
	if q.Cursor == "" {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE path LIKE $1 || '%%'
			ORDER BY created_at, path
			LIMIT $2`, selectColumns, r.table())
		args = []any{prefix, q.Limit + 1}
	} else {
		query = fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE path LIKE $1 || '%%' AND (created_at, path) > ($2, $3)
			ORDER BY created_at, path
			LIMIT $4`, selectColumns, r.table())
		args = []any{prefix, cursor.CreatedAt, cursor.Path, q.Limit + 1}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return mdedge.ListResult{}, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

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
