package mdedge

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Tables holds configurable table names for metadata storage.
type Tables struct {
	MetaData string `mapstructure:"meta_data" yaml:"meta_data"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.MetaData == "" {
		return errors.New("validate tables: metadata table name cannot be empty")
	}

	if !IsValidTableName(t.MetaData) {
		return fmt.Errorf("validate tables: invalid metadata table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.MetaData)
	}

	return nil
}

// Cursor is the position after which a paginated listing continues.
type Cursor struct {
	CreatedAt time.Time
	Path      string
}

// EncodeCursor encodes cursor data to a base64 string for pagination.
func EncodeCursor(createdAt time.Time, path string) string {
	data := createdAt.Format(time.RFC3339Nano) + "|" + path
	return base64.URLEncoding.EncodeToString([]byte(data))
}

// DecodeCursor decodes a pagination cursor string back to cursor data.
func DecodeCursor(cursor string) (Cursor, error) {
	if cursor == "" {
		return Cursor{}, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode cursor: %w: invalid encoding: %w", ErrInvalidInput, err)
	}

	ts, path, ok := strings.Cut(string(decoded), "|")
	if !ok {
		return Cursor{}, fmt.Errorf("decode cursor: %w: invalid format", ErrInvalidInput)
	}

	if path == "" {
		return Cursor{}, fmt.Errorf("decode cursor: %w: empty path", ErrInvalidInput)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode cursor: %w: invalid timestamp: %w", ErrInvalidInput, err)
	}

	return Cursor{CreatedAt: createdAt, Path: path}, nil
}

// EscapeLikePattern escapes special LIKE characters (%, _, \).
func EscapeLikePattern(pattern string) string {
	pattern = strings.ReplaceAll(pattern, `\`, `\\`)
	pattern = strings.ReplaceAll(pattern, `%`, `\%`)
	pattern = strings.ReplaceAll(pattern, `_`, `\_`)
	return pattern
}
