package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/mdedge"
	mdhttp "github.com/sagarc03/mdedge/http"
	"github.com/sagarc03/mdedge/rewrite"
)

// readSeekNopCloser wraps an io.ReadSeeker to add a no-op Close method
type readSeekNopCloser struct {
	io.ReadSeeker
}

func (r readSeekNopCloser) Close() error { return nil }

// MockService is a mock implementation of http.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Get(ctx context.Context, path string) (mdedge.MetaData, io.ReadSeekCloser, error) {
	args := m.Called(ctx, path)
	if args.Get(1) == nil {
		return args.Get(0).(mdedge.MetaData), nil, args.Error(2)
	}
	return args.Get(0).(mdedge.MetaData), args.Get(1).(io.ReadSeekCloser), args.Error(2)
}

func (m *MockService) Create(ctx context.Context, obj mdedge.CreateObject, content io.Reader) (mdedge.MetaData, error) {
	args := m.Called(ctx, obj, content)
	return args.Get(0).(mdedge.MetaData), args.Error(1)
}

func (m *MockService) Delete(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *MockService) List(ctx context.Context, query mdedge.ListQuery) (mdedge.ListResult, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(mdedge.ListResult), args.Error(1)
}

// MockNotifier records ObjectCreated calls.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) ObjectCreated(bucket, key string) bool {
	args := m.Called(bucket, key)
	return args.Bool(0)
}

func newHandler(t *testing.T, cfg mdhttp.HandlerConfig, service mdhttp.Service) http.Handler {
	t.Helper()
	if cfg.Rewrite.TargetExtension == "" {
		cfg.Rewrite = rewrite.Default()
	}
	h, err := mdhttp.NewHandler(&cfg, service)
	require.NoError(t, err)
	return h.Router()
}

func meta(path, contentType, body string) mdedge.MetaData {
	return mdedge.MetaData{
		ID:            uuid.New(),
		Path:          path,
		ContentType:   contentType,
		Etag:          "etag-" + path,
		FileSizeBytes: int64(len(body)),
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewHandler_InvalidRewrite(t *testing.T) {
	_, err := mdhttp.NewHandler(&mdhttp.HandlerConfig{Mode: mdedge.ModeStore}, new(MockService))
	assert.ErrorIs(t, err, rewrite.ErrInvalidConfig)
}

func TestHandler_HandleList_StoreMode(t *testing.T) {
	service := new(MockService)
	h := newHandler(t, mdhttp.HandlerConfig{Mode: mdedge.ModeStore}, service)

	expected := mdedge.ListResult{
		Items:      []mdedge.MetaData{meta("docs/a.html", "text/html; charset=utf-8", "x")},
		NextCursor: "cursor123",
	}
	service.On("List", mock.Anything, mdedge.ListQuery{PathPrefix: "docs/", Limit: 50}).Return(expected, nil)

	rec := serve(h, httptest.NewRequest("GET", "/?prefix=docs/&limit=50", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var result mdedge.ListResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, "docs/a.html", result.Items[0].Path)
	assert.Equal(t, "cursor123", result.NextCursor)

	service.AssertExpectations(t)
}

func TestHandler_HandleList_Limits(t *testing.T) {
	tests := []struct {
		query string
		limit int
	}{
		{"/", 100},
		{"/?limit=9999", 1000},
		{"/?limit=0", 1},
		{"/?limit=-5", 1},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			service := new(MockService)
			h := newHandler(t, mdhttp.HandlerConfig{Mode: mdedge.ModeStore}, service)

			service.On("List", mock.Anything, mock.MatchedBy(func(q mdedge.ListQuery) bool {
				return q.Limit == tt.limit
			})).Return(mdedge.ListResult{Items: []mdedge.MetaData{}}, nil)

			rec := serve(h, httptest.NewRequest("GET", tt.query, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			service.AssertExpectations(t)
		})
	}
}

func TestHandler_HandleList_Errors(t *testing.T) {
	t.Run("invalid limit", func(t *testing.T) {
		service := new(MockService)
		h := newHandler(t, mdhttp.HandlerConfig{Mode: mdedge.ModeStore}, service)

		rec := serve(h, httptest.NewRequest("GET", "/?limit=abc", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		service.AssertNotCalled(t, "List")
	})

	t.Run("invalid cursor", func(t *testing.T) {
		service := new(MockService)
		h := newHandler(t, mdhttp.HandlerConfig{Mode: mdedge.ModeStore}, service)
		service.On("List", mock.Anything, mock.Anything).Return(mdedge.ListResult{}, fmt.Errorf("list: %w", mdedge.ErrInvalidInput))

		rec := serve(h, httptest.NewRequest("GET", "/?cursor=bad", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("internal", func(t *testing.T) {
		service := new(MockService)
		h := newHandler(t, mdhttp.HandlerConfig{Mode: mdedge.ModeStore}, service)
		service.On("List", mock.Anything, mock.Anything).Return(mdedge.ListResult{}, errors.New("db down"))

		rec := serve(h, httptest.NewRequest("GET", "/", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandler_HandleGet_Success(t *testing.T) {
	service := new(MockService)
	h := newHandler(t, mdhttp.HandlerConfig{Mode: mdedge.ModeStore}, service)

	content := "<h1>Hello</h1>"
	service.On("Get", mock.Anything, "docs/a.html").Return(
		meta("docs/a.html", "text/html; charset=utf-8", content),
		readSeekNopCloser{strings.NewReader(content)},
		nil,
	)

	rec := serve(h, httptest.NewRequest("GET", "/docs/a.html", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `"etag-docs/a.html"`, rec.Header().Get("ETag"))
	assert.Equal(t, "Accept", rec.Header().Get("Vary"))
	assert.Equal(t, content, rec.Body.String())

	service.AssertExpectations(t)
}

func TestHandler_HandleGet_Markdown(t *testing.T) {
	tests := []struct {
		name string
		mode mdedge.ServerMode
		path string
		want string
	}{
		{"file", mdedge.ModeStore, "/docs/a.html", "docs/a.md"},
		{"htm file", mdedge.ModeStore, "/docs/b.htm", "docs/b.md"},
		{"directory", mdedge.ModeStatic, "/docs/", "docs/index.md"},
		{"extensionless", mdedge.ModeStatic, "/docs", "docs/index.md"},
		{"root in store mode skips the listing", mdedge.ModeStore, "/", "index.md"},
		{"already markdown", mdedge.ModeStore, "/docs/a.md", "docs/a.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockService)
			h := newHandler(t, mdhttp.HandlerConfig{Mode: tt.mode}, service)

			service.On("Get", mock.Anything, tt.want).Return(
				meta(tt.want, "text/markdown; charset=utf-8", "# Hi"),
				readSeekNopCloser{strings.NewReader("# Hi")},
				nil,
			)

			req := httptest.NewRequest("GET", tt.path, nil)
			req.Header.Set("Accept", "text/markdown, text/html;q=0.9")
			rec := serve(h, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Equal(t, "# Hi", rec.Body.String())
			service.AssertExpectations(t)
			service.AssertNotCalled(t, "List")
		})
	}
}

func TestHandler_HandleGet_NotFound(t *testing.T) {
	t.Run("store mode is json", func(t *testing.T) {
		service := new(MockService)
		h := newHandler(t, mdhttp.HandlerConfig{Mode: mdedge.ModeStore}, service)
		service.On("Get", mock.Anything, "missing.html").Return(mdedge.MetaData{}, nil, mdedge.ErrNotFound)

		rec := serve(h, httptest.NewRequest("GET", "/missing.html", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "not_found")
	})

	t.Run("static mode is html", func(t *testing.T) {
		service := new(MockService)
		h := newHandler(t, mdhttp.HandlerConfig{Mode: mdedge.ModeStatic}, service)
		service.On("Get", mock.Anything, "missing.html").Return(mdedge.MetaData{}, nil, mdedge.ErrNotFound)

		rec := serve(h, httptest.NewRequest("GET", "/missing.html", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), "404 Not Found")
	})
}

func TestHandler_HandleGet_InvalidPath(t *testing.T) {
	service := new(MockService)
	h := newHandler(t, mdhttp.HandlerConfig{Mode: mdedge.ModeStore}, service)

	rec := serve(h, httptest.NewRequest("GET", "/../etc/passwd", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_path")
	service.AssertNotCalled(t, "Get")
}

func TestHandler_HandleGet_IfNoneMatch(t *testing.T) {
	service := new(MockService)
	h := newHandler(t, mdhttp.HandlerConfig{Mode: mdedge.ModeStore}, service)

	service.On("Get", mock.Anything, "a.html").Return(
		meta("a.html", "text/html; charset=utf-8", "x"),
		readSeekNopCloser{strings.NewReader("x")},
		nil,
	)

	req := httptest.NewRequest("GET", "/a.html", nil)
	req.Header.Set("If-None-Match", `"etag-a.html"`)
	rec := serve(h, req)

	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHandler_HandleGet_StaticRoot(t *testing.T) {
	for _, mode := range []mdedge.ServerMode{mdedge.ModeStatic, mdedge.ModeSPA} {
		t.Run(string(mode), func(t *testing.T) {
			service := new(MockService)
			h := newHandler(t, mdhttp.HandlerConfig{Mode: mode}, service)

			service.On("Get", mock.Anything, "").Return(
				meta("index.html", "text/html; charset=utf-8", "<html></html>"),
				readSeekNopCloser{strings.NewReader("<html></html>")},
				nil,
			)

			rec := serve(h, httptest.NewRequest("GET", "/", nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			service.AssertExpectations(t)
			service.AssertNotCalled(t, "List")
		})
	}
}

func TestHandler_HandlePut_Success(t *testing.T) {
	service := new(MockService)
	notifier := new(MockNotifier)
	h := newHandler(t, mdhttp.HandlerConfig{Mode: mdedge.ModeStore, Bucket: "site", Notifier: notifier}, service)

	content := "<p>new</p>"
	service.On("Create", mock.Anything, mdedge.CreateObject{Path: "docs/new.html", ContentType: "text/html"}, mock.Anything).
		Return(meta("docs/new.html", "text/html", content), nil)
	notifier.On("ObjectCreated", "site", "docs/new.html").Return(true)

	req := httptest.NewRequest("PUT", "/docs/new.html", strings.NewReader(content))
	req.Header.Set("Content-Type", "text/html")
	req.Header.Set("Accept", "text/markdown")
	rec := serve(h, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var result mdedge.MetaData
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, "docs/new.html", result.Path)

	service.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestHandler_HandlePut_DetectsContentType(t *testing.T) {
	service := new(MockService)
	h := newHandler(t, mdhttp.HandlerConfig{Mode: mdedge.ModeStore}, service)

	service.On("Create", mock.Anything, mdedge.CreateObject{Path: "a.md", ContentType: "text/markdown; charset=utf-8"}, mock.Anything).
		Return(meta("a.md", "text/markdown; charset=utf-8", "# a"), nil)

	rec := serve(h, httptest.NewRequest("PUT", "/a.md", strings.NewReader("# a")))

	assert.Equal(t, http.StatusOK, rec.Code)
	service.AssertExpectations(t)
}

func TestHandler_HandlePut_Errors(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		service := new(MockService)
		h := newHandler(t, mdhttp.HandlerConfig{Mode: mdedge.ModeStore}, service)

		rec := serve(h, httptest.NewRequest("PUT", "/", strings.NewReader("x")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid path", func(t *testing.T) {
		service := new(MockService)
		h := newHandler(t, mdhttp.HandlerConfig{Mode: mdedge.ModeStore}, service)

		rec := serve(h, httptest.NewRequest("PUT", "/../etc/passwd", strings.NewReader("x")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		service.AssertNotCalled(t, "Create")
	})

	t.Run("too large", func(t *testing.T) {
		service := new(MockService)
		notifier := new(MockNotifier)
		h := newHandler(t, mdhttp.HandlerConfig{Mode: mdedge.ModeStore, MaxUploadSize: 4, Notifier: notifier}, service)

		service.On("Create", mock.Anything, mock.Anything, mock.Anything).
			Return(mdedge.MetaData{}, fmt.Errorf("create object: %w", &http.MaxBytesError{Limit: 4}))

		rec := serve(h, httptest.NewRequest("PUT", "/a.html", strings.NewReader("too long")))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		notifier.AssertNotCalled(t, "ObjectCreated", mock.Anything, mock.Anything)
	})

	t.Run("internal", func(t *testing.T) {
		service := new(MockService)
		h := newHandler(t, mdhttp.HandlerConfig{Mode: mdedge.ModeStore}, service)
		service.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(mdedge.MetaData{}, errors.New("disk full"))

		rec := serve(h, httptest.NewRequest("PUT", "/a.html", strings.NewReader("x")))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandler_HandlePut_IfMatch(t *testing.T) {
	existing := meta("a.html", "text/html", "old")

	t.Run("match", func(t *testing.T) {
		service := new(MockService)
		h := newHandler(t, mdhttp.HandlerConfig{Mode: mdedge.ModeStore}, service)
		service.On("Get", mock.Anything, "a.html").Return(existing, readSeekNopCloser{strings.NewReader("old")}, nil)
		service.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(existing, nil)

		req := httptest.NewRequest("PUT", "/a.html", strings.NewReader("new"))
		req.Header.Set("If-Match", `"`+existing.Etag+`"`)
		rec := serve(h, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		service.AssertExpectations(t)
	})

	t.Run("mismatch", func(t *testing.T) {
		service := new(MockService)
		h := newHandler(t, mdhttp.HandlerConfig{Mode: mdedge.ModeStore}, service)
		service.On("Get", mock.Anything, "a.html").Return(existing, readSeekNopCloser{strings.NewReader("old")}, nil)

		req := httptest.NewRequest("PUT", "/a.html", strings.NewReader("new"))
		req.Header.Set("If-Match", `"other"`)
		rec := serve(h, req)

		assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
		service.AssertNotCalled(t, "Create")
	})
}

func TestHandler_HandleDelete(t *testing.T) {
	tests := []struct {
		name string
		path string
		err  error
		code int
	}{
		{"success", "/a.html", nil, http.StatusNoContent},
		{"not found", "/a.html", mdedge.ErrNotFound, http.StatusNotFound},
		{"internal", "/a.html", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockService)
			h := newHandler(t, mdhttp.HandlerConfig{Mode: mdedge.ModeStore}, service)
			service.On("Delete", mock.Anything, "a.html").Return(tt.err)

			rec := serve(h, httptest.NewRequest("DELETE", tt.path, nil))

			assert.Equal(t, tt.code, rec.Code)
			service.AssertExpectations(t)
		})
	}

	t.Run("invalid path", func(t *testing.T) {
		service := new(MockService)
		h := newHandler(t, mdhttp.HandlerConfig{Mode: mdedge.ModeStore}, service)

		rec := serve(h, httptest.NewRequest("DELETE", "/../etc/passwd", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_CORS(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		service := new(MockService)
		h := newHandler(t, mdhttp.HandlerConfig{Mode: mdedge.ModeStore}, service)
		service.On("List", mock.Anything, mock.Anything).Return(mdedge.ListResult{Items: []mdedge.MetaData{}}, nil)

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := serve(h, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		h := newHandler(t, mdhttp.HandlerConfig{
			Mode: mdedge.ModeStore,
			CORS: mdhttp.CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "Accept"},
				MaxAge:         300,
			},
		}, new(MockService))

		req := httptest.NewRequest("OPTIONS", "/a.html", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", "PUT")
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		rec := serve(h, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")
		assert.Equal(t, "300", rec.Header().Get("Access-Control-Max-Age"))
	})
}
