package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sagarc03/mdedge"
	"github.com/sagarc03/mdedge/rewrite"
)

type Service interface {
	Get(ctx context.Context, path string) (mdedge.MetaData, io.ReadSeekCloser, error)
	Create(ctx context.Context, obj mdedge.CreateObject, content io.Reader) (mdedge.MetaData, error)
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, query mdedge.ListQuery) (mdedge.ListResult, error)
}

// Notifier is told about every stored object. convert.Dispatcher implements it.
type Notifier interface {
	ObjectCreated(bucket, key string) bool
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled" yaml:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins,omitempty"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods,omitempty"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers,omitempty"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers,omitempty"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials,omitempty"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age,omitempty"`
}

type HandlerConfig struct {
	Mode    mdedge.ServerMode
	Rewrite rewrite.Config
	// Bucket is the logical bucket name reported to the Notifier.
	Bucket string
	// MaxUploadSize limits PUT bodies in bytes. Zero means no limit.
	MaxUploadSize int64
	// Notifier is optional.
	Notifier Notifier
	CORS     CORSConfig
}

// Handler serves stored objects. Reads go through the Markdown rewrite, so
// a client sending "Accept: text/markdown" receives the derived object.
type Handler struct {
	config  HandlerConfig
	service Service
}

// NewHandler creates a Handler. It returns an error if the rewrite
// configuration is invalid.
func NewHandler(config *HandlerConfig, service Service) (*Handler, error) {
	if err := config.Rewrite.Validate(); err != nil {
		return nil, err
	}
	return &Handler{
		config:  *config,
		service: service,
	}, nil
}

// Router returns the routes for the configured mode. Store mode lists
// objects on GET /; static and spa serve the default document there.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	// Rewriting happens before routing so "/" with a Markdown Accept header
	// resolves to the derived document instead of the listing.
	r.Use(ReadsOnly(rewrite.Middleware(h.config.Rewrite)))
	r.Use(PathValidationMiddleware)

	if h.config.Mode == mdedge.ModeStore {
		r.Get("/", h.handleList)
	}
	r.Get("/*", h.handleGet)
	r.Put("/*", h.handlePut)
	r.Delete("/*", h.handleDelete)

	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 100
	if s := q.Get("limit"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_limit", "Invalid limit")
			return
		}
		limit = max(1, min(1000, parsed))
	}

	result, err := h.service.List(r.Context(), mdedge.ListQuery{
		PathPrefix: q.Get("prefix"),
		Limit:      limit,
		Cursor:     q.Get("cursor"),
	})
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), "/")

	obj, content, err := h.service.Get(r.Context(), path)
	if err != nil {
		if errors.Is(err, mdedge.ErrNotFound) && h.config.Mode != mdedge.ModeStore {
			writeDefaultNotFound(w)
			return
		}
		HandleError(w, err)
		return
	}
	defer func() { _ = content.Close() }()

	w.Header().Set("ETag", `"`+obj.Etag+`"`)
	w.Header().Set("Content-Type", obj.ContentType)

	http.ServeContent(w, r, obj.Path, obj.UpdatedAt, content)
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "" {
		WriteError(w, http.StatusBadRequest, "invalid_path", "Invalid path")
		return
	}

	if ifMatch := r.Header.Get("If-Match"); ifMatch != "" {
		existing, content, err := h.service.Get(r.Context(), path)
		if err != nil && !errors.Is(err, mdedge.ErrNotFound) {
			HandleError(w, err)
			return
		}
		if err == nil {
			_ = content.Close()
			if ifMatch != existing.Etag && ifMatch != `"`+existing.Etag+`"` {
				WriteError(w, http.StatusPreconditionFailed, "precondition_failed", "ETag mismatch")
				return
			}
		}
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mdedge.DetectContentType(path)
	}

	body := io.Reader(r.Body)
	if h.config.MaxUploadSize > 0 {
		body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadSize)
	}

	metaData, err := h.service.Create(r.Context(), mdedge.CreateObject{Path: path, ContentType: contentType}, body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "too_large", "Object too large")
			return
		}
		HandleError(w, err)
		return
	}

	if h.config.Notifier != nil {
		h.config.Notifier.ObjectCreated(h.config.Bucket, metaData.Path)
	}

	_ = WriteJSON(w, http.StatusOK, metaData)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "" {
		WriteError(w, http.StatusBadRequest, "invalid_path", "Invalid path")
		return
	}

	if err := h.service.Delete(r.Context(), path); err != nil {
		HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
