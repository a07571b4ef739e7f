package mdedge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// MetaDataRepo defines the interface for managing object metadata persistence.
// Implementations must handle concurrent access safely.
//
// All methods accept a context for cancellation and timeout control.
type MetaDataRepo interface {
	// Get retrieves metadata for a specific object by its path.
	//
	// Returns ErrNotFound if the path doesn't exist.
	Get(ctx context.Context, path string) (MetaData, error)

	// Upsert creates or updates metadata for an object.
	//
	// Returns:
	//   - MetaData: The created or updated entry with ID and timestamps
	//   - bool: true if a new entry was created, false if an existing one was updated
	//   - error: Any database or validation error
	Upsert(ctx context.Context, entry ObjectEntry) (MetaData, bool, error)

	// Delete removes metadata for a specific object by its path.
	//
	// Returns ErrNotFound if the path doesn't exist.
	Delete(ctx context.Context, path string) error

	// List retrieves a paginated list of metadata entries ordered by
	// creation time and path, optionally filtered by path prefix.
	List(ctx context.Context, q ListQuery) (ListResult, error)
}

// FileStorage defines the interface for physical file storage operations.
//
// All methods accept a context for cancellation and timeout control.
type FileStorage interface {
	// Get opens a stored file for reading. The caller closes it.
	//
	// Returns ErrNotFound if the file doesn't exist.
	Get(ctx context.Context, path string) (io.ReadSeekCloser, error)

	// Write stores content at path, replacing any existing file.
	//
	// Implementations should:
	//   - Write atomically when possible (e.g., write to temp file then rename)
	//   - Compute an ETag during the write
	//   - Clean up partial writes when the context is cancelled
	//   - Create parent directories as needed
	Write(ctx context.Context, path string, content io.Reader) (SaveResult, error)

	// Delete removes a file. Returns ErrNotFound if it doesn't exist.
	//
	// Only the physical file is removed; metadata is the caller's concern.
	Delete(ctx context.Context, path string) error

	// List walks the whole storage and returns every object with size,
	// ETag and a content type guessed from the extension. It returns an
	// empty slice when storage is empty.
	List(ctx context.Context) ([]ObjectEntry, error)
}

// ContentService serves and stores the content collection. It pairs a
// metadata repository (content type, etag, size) with the physical file
// storage, and exposes the same objects as a single named bucket to the
// conversion pipeline.
type ContentService struct {
	repo             MetaDataRepo
	storage          FileStorage
	mode             ServerMode
	bucket           string
	defaultDocument  string
	derivedExtension string
	cleanupTimeout   time.Duration
}

// ServiceConfig holds configuration options for ContentService.
type ServiceConfig struct {
	Mode ServerMode
	// Bucket is the name GetObject and PutObject answer to. Empty accepts any name.
	Bucket string
	// DefaultDocument is served for directory paths in static and spa modes (default: index.html).
	DefaultDocument string
	// DerivedExtension marks derived objects, e.g. ".md". Missing derived
	// objects are reported as not found instead of falling back.
	DerivedExtension string
	CleanupTimeout   time.Duration // Timeout for cleanup operations (default: 30s)
}

func NewContentService(repo MetaDataRepo, storage FileStorage, cfg ServiceConfig) (*ContentService, error) {
	if !cfg.Mode.IsValid() {
		return nil, fmt.Errorf("new content service: invalid mode: %s", cfg.Mode)
	}

	defaultDocument := cfg.DefaultDocument
	if defaultDocument == "" {
		defaultDocument = "index.html"
	}
	if !IsValidPath(defaultDocument) || strings.Contains(defaultDocument, "/") {
		return nil, fmt.Errorf("new content service: %w: invalid default document %q", ErrInvalidInput, defaultDocument)
	}

	cleanupTimeout := cfg.CleanupTimeout
	if cleanupTimeout <= 0 {
		cleanupTimeout = 30 * time.Second
	}

	return &ContentService{
		repo:             repo,
		storage:          storage,
		mode:             cfg.Mode,
		bucket:           cfg.Bucket,
		defaultDocument:  defaultDocument,
		derivedExtension: cfg.DerivedExtension,
		cleanupTimeout:   cleanupTimeout,
	}, nil
}

// Bucket returns the bucket name this service answers to.
func (s *ContentService) Bucket() string {
	return s.bucket
}

// Populate synchronizes metadata from physical storage files.
// It lists all files in storage and creates or updates their metadata entries.
//
// It stops at the first error; entries processed before the failure stay
// written.
func (s *ContentService) Populate(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("populate: %w", err)
	}

	files, listErr := s.storage.List(ctx)
	if listErr != nil {
		return 0, fmt.Errorf("populate: %w", listErr)
	}

	for i, file := range files {
		_, _, upsertErr := s.repo.Upsert(ctx, file)
		if upsertErr != nil {
			return i, fmt.Errorf("populate '%s': %w", file.Path, upsertErr)
		}
	}

	return len(files), nil
}

// Create stores an object and upserts its metadata entry, overwriting any
// previous object at the same path.
//
// Error types returned:
//   - ErrInvalidInput: empty or invalid path, empty content type
//   - context.Canceled or context.DeadlineExceeded
//   - wrapped storage or metadata errors
//
// If the metadata upsert fails, the stored file is deleted using a background
// context bounded by the cleanup timeout, so cleanup runs even when ctx is
// already cancelled.
func (s *ContentService) Create(ctx context.Context, obj CreateObject, content io.Reader) (MetaData, error) {
	if err := ctx.Err(); err != nil {
		return MetaData{}, fmt.Errorf("create object: %w", err)
	}

	if obj.Path == "" {
		return MetaData{}, fmt.Errorf("create object: %w: path cannot be empty", ErrInvalidInput)
	}

	if obj.ContentType == "" {
		return MetaData{}, fmt.Errorf("create object: %w: content type cannot be empty", ErrInvalidInput)
	}

	if !IsValidPath(obj.Path) {
		return MetaData{}, fmt.Errorf("create object %s: %w", obj.Path, ErrInvalidInput)
	}

	saveResult, writeErr := s.storage.Write(ctx, obj.Path, content)
	if writeErr != nil {
		return MetaData{}, fmt.Errorf("create object %s: write failed: %w", obj.Path, writeErr)
	}

	oe := ObjectEntry{
		Path:        obj.Path,
		Size:        saveResult.BytesWritten,
		ETag:        saveResult.Etag,
		ContentType: obj.ContentType,
	}

	metaData, _, upsertErr := s.repo.Upsert(ctx, oe)
	if upsertErr != nil {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
		defer cancel()

		if delErr := s.storage.Delete(cleanupCtx, obj.Path); delErr != nil {
			return MetaData{}, fmt.Errorf("create object %s: metadata upsert failed (%w) and cleanup failed: %w", obj.Path, upsertErr, delErr)
		}
		return MetaData{}, fmt.Errorf("create object %s: metadata upsert failed: %w", obj.Path, upsertErr)
	}

	return metaData, nil
}

// Get resolves path to a stored object and opens it. In static and spa modes
// the empty path and missing directory paths fall back to the default
// document; derived paths never fall back.
func (s *ContentService) Get(ctx context.Context, path string) (MetaData, io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return MetaData{}, nil, fmt.Errorf("get object: %w", err)
	}

	if path == "" {
		switch s.mode {
		case ModeStore:
			return MetaData{}, nil, fmt.Errorf("get object: %w", ErrNotFound)
		case ModeStatic, ModeSPA:
			path = s.defaultDocument
		}
	}

	m, err := s.repo.Get(ctx, path)

	if errors.Is(err, ErrNotFound) && !s.isDerived(path) {
		switch s.mode {
		case ModeStore:
			// No fallback in store mode
		case ModeStatic:
			m, err = s.repo.Get(ctx, DirPath(path, s.defaultDocument))
		case ModeSPA:
			m, err = s.repo.Get(ctx, s.defaultDocument)
		}
	}

	if err != nil {
		return MetaData{}, nil, fmt.Errorf("get object: %w", err)
	}

	f, err := s.storage.Get(ctx, m.Path)
	if err != nil {
		return MetaData{}, nil, fmt.Errorf("get object: %w", err)
	}

	return m, f, nil
}

// Delete removes the metadata entry and then the file. A file that is
// already gone is not an error.
func (s *ContentService) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}

	if path == "" {
		return fmt.Errorf("delete object: %w: path cannot be empty", ErrInvalidInput)
	}

	if err := s.repo.Delete(ctx, path); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}

	if err := s.storage.Delete(ctx, path); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete object %s: %w", path, err)
	}

	return nil
}

func (s *ContentService) List(ctx context.Context, q ListQuery) (ListResult, error) {
	if err := ctx.Err(); err != nil {
		return ListResult{}, fmt.Errorf("list object: %w", err)
	}

	result, err := s.repo.List(ctx, q)
	if err != nil {
		return ListResult{}, fmt.Errorf("list object: %w", err)
	}

	return result, nil
}

// GetObject reads the whole object at key. It returns ErrNotFound for a
// missing key or a bucket other than the configured one.
func (s *ContentService) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := s.checkBucket(bucket); err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}

	m, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}

	f, err := s.storage.Get(ctx, m.Path)
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer func() { _ = f.Close() }()

	body, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("get object %s: read: %w", key, err)
	}

	return body, nil
}

// PutObject stores body at key with the given content type, replacing any
// existing object.
func (s *ContentService) PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	if err := s.checkBucket(bucket); err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}

	_, err := s.Create(ctx, CreateObject{Path: key, ContentType: contentType}, bytes.NewReader(body))
	return err
}

// ListKeys returns every stored path under prefix, following list cursors
// until the last page.
func (s *ContentService) ListKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	if err := s.checkBucket(bucket); err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}

	var keys []string
	q := ListQuery{PathPrefix: prefix, Limit: listKeysPageSize}
	for {
		page, err := s.repo.List(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("list keys: %w", err)
		}
		for _, m := range page.Items {
			keys = append(keys, m.Path)
		}
		if page.NextCursor == "" {
			return keys, nil
		}
		q.Cursor = page.NextCursor
	}
}

const listKeysPageSize = 1000

func (s *ContentService) checkBucket(bucket string) error {
	if s.bucket != "" && bucket != s.bucket {
		return fmt.Errorf("bucket %q: %w", bucket, ErrNotFound)
	}
	return nil
}

func (s *ContentService) isDerived(path string) bool {
	return s.derivedExtension != "" && strings.HasSuffix(path, s.derivedExtension)
}
