// Package filesystem stores content objects as files under a root directory.
// Writes are atomic (temp file then rename) and produce SHA256 etags.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/sagarc03/mdedge"
)

const tmpPrefix = ".t"

// Store keeps objects in a sandboxed directory tree. Object keys map to
// relative file paths with "/" separators.
type Store struct {
	root *os.Root
}

// NewFileStorage creates a Store over root. The root prevents any key from
// escaping the directory.
func NewFileStorage(root *os.Root) *Store {
	return &Store{root: root}
}

// Get opens a file for reading. Returns mdedge.ErrNotFound if the file does not exist.
func (s *Store) Get(ctx context.Context, key string) (io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", key, mdedge.ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", key, err)
	}

	info, err := f.Stat()
	if err == nil && info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: is a directory: %w", key, mdedge.ErrNotFound)
	}

	return f, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Write stores content at key through a temp file in the root, so readers
// see either the old or the new object. The temp file is removed on any
// failure, including cancellation mid-copy.
func (s *Store) Write(ctx context.Context, key string, content io.Reader) (mdedge.SaveResult, error) {
	if err := ctx.Err(); err != nil {
		return mdedge.SaveResult{}, err
	}

	tmp := tmpPrefix + uuid.NewString()
	f, err := s.root.Create(tmp)
	if err != nil {
		return mdedge.SaveResult{}, fmt.Errorf("write %s: create temp file: %w", key, err)
	}

	renamed := false
	defer func() {
		if err := f.Close(); err != nil && !renamed {
			slog.Warn("close temp file", "key", key, "error", err)
		}
		if !renamed {
			if err := s.root.Remove(tmp); err != nil {
				slog.Warn("remove temp file", "key", key, "error", err)
			}
		}
	}()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(h, f), &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return mdedge.SaveResult{}, fmt.Errorf("write %s: copy: %w", key, err)
	}

	if err := f.Sync(); err != nil {
		return mdedge.SaveResult{}, fmt.Errorf("write %s: sync: %w", key, err)
	}

	if dir := path.Dir(key); dir != "." {
		if err := s.root.MkdirAll(dir, 0o755); err != nil {
			return mdedge.SaveResult{}, fmt.Errorf("write %s: create directories: %w", key, err)
		}
	}

	if err := s.root.Rename(tmp, key); err != nil {
		return mdedge.SaveResult{}, fmt.Errorf("write %s: rename: %w", key, err)
	}
	renamed = true

	return mdedge.SaveResult{BytesWritten: n, Etag: hex.EncodeToString(h.Sum(nil))}, nil
}

// Delete removes a file. Returns mdedge.ErrNotFound if the file does not exist.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.root.Remove(key); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", key, mdedge.ErrNotFound)
		}
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// List walks the whole tree and returns every regular file with its size,
// etag and content type. Leftover temp files are skipped.
func (s *Store) List(ctx context.Context) ([]mdedge.ObjectEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries := []mdedge.ObjectEntry{}

	err := fs.WalkDir(s.root.FS(), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if p == d.Name() && strings.HasPrefix(p, tmpPrefix) {
			return nil
		}

		entry, err := s.entry(p)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	return entries, nil
}

func (s *Store) entry(p string) (mdedge.ObjectEntry, error) {
	f, err := s.root.Open(p)
	if err != nil {
		return mdedge.ObjectEntry{}, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("close file", "key", p, "error", err)
		}
	}()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return mdedge.ObjectEntry{}, fmt.Errorf("hash %s: %w", p, err)
	}

	return mdedge.ObjectEntry{
		Path:        p,
		Size:        n,
		ETag:        hex.EncodeToString(h.Sum(nil)),
		ContentType: mdedge.DetectContentType(p),
	}, nil
}
