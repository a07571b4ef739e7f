package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sagarc03/mdedge"
	"github.com/sagarc03/mdedge/config"
	"github.com/sagarc03/mdedge/convert"
	"github.com/sagarc03/mdedge/database"
	"github.com/sagarc03/mdedge/filesystem"
	"github.com/sagarc03/mdedge/markdown"
	"github.com/sagarc03/mdedge/s3store"
)

// origin is the local content service with the resources it holds open.
type origin struct {
	service *mdedge.ContentService
	db      database.Database
	root    *os.Root
}

func (o *origin) Close() {
	_ = o.db.Close()
	_ = o.root.Close()
}

// openOrigin connects the metadata database and the storage directory. The
// directory is created when create is set.
func openOrigin(ctx context.Context, cfg *config.Config, create bool) (*origin, error) {
	mode, err := mdedge.ParseServerMode(cfg.Server.Mode)
	if err != nil {
		return nil, err
	}

	if create {
		if err := os.MkdirAll(cfg.Storage.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	} else if _, err := os.Stat(cfg.Storage.Path); err != nil {
		return nil, fmt.Errorf("storage directory: %w", err)
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	slog.Info("connected to database", "type", cfg.Database.Type)

	root, err := os.OpenRoot(cfg.Storage.Path)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open storage root: %w", err)
	}

	service, err := mdedge.NewContentService(db.GetRepo(), filesystem.NewFileStorage(root), mdedge.ServiceConfig{
		Mode:             mode,
		Bucket:           cfg.Storage.Bucket,
		DefaultDocument:  cfg.Rewrite.DefaultDocument,
		DerivedExtension: cfg.Rewrite.TargetExtension,
		CleanupTimeout:   cfg.Service.Timeout(),
	})
	if err != nil {
		_ = db.Close()
		_ = root.Close()
		return nil, fmt.Errorf("create service: %w", err)
	}

	return &origin{service: service, db: db, root: root}, nil
}

func newS3Store(ctx context.Context, cfg *config.Config) (*s3store.Store, error) {
	store, err := s3store.New(ctx, cfg.Storage.S3)
	if err != nil {
		return nil, fmt.Errorf("create s3 store: %w", err)
	}
	slog.Info("using s3 storage", "bucket", cfg.Storage.Bucket, "endpoint", cfg.Storage.S3.Endpoint)
	return store, nil
}

func newPipeline(cfg *config.Config, store convert.ObjectStore) (*convert.Pipeline, error) {
	return convert.New(store, markdown.NewConverter(cfg.Pipeline.Markdown), convert.Config{
		Rewrite:     cfg.Rewrite,
		Timeout:     cfg.Pipeline.Timeout,
		Concurrency: cfg.Pipeline.Concurrency,
	})
}

// listenAndServe runs server until ctx is cancelled or SIGINT/SIGTERM
// arrives, then shuts it down gracefully.
func listenAndServe(ctx context.Context, server *http.Server) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func newServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}
}
