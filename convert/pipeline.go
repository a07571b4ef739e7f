package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sagarc03/mdedge"
	"github.com/sagarc03/mdedge/rewrite"
)

// DefaultContentType is written on every derived object unless configured otherwise.
const DefaultContentType = "text/markdown; charset=utf-8"

// DefaultTimeout bounds each stage of a conversion.
const DefaultTimeout = 30 * time.Second

// ObjectStore reads and writes whole objects.
//
// GetObject returns an error wrapping mdedge.ErrNotFound for a missing key.
// PutObject overwrites unconditionally and must not return before the write
// is visible to readers.
type ObjectStore interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error
}

// Renderer turns source text into target text. It must be safe for
// concurrent use.
type Renderer interface {
	Render(source string) (string, error)
}

// KeyLister lists the keys under a prefix. Used for backfills.
type KeyLister interface {
	ListKeys(ctx context.Context, bucket, prefix string) ([]string, error)
}

// Config tunes a Pipeline. Only Rewrite is required.
type Config struct {
	// Rewrite supplies the source and target extensions.
	Rewrite rewrite.Config
	// ContentType of derived objects (default: DefaultContentType).
	ContentType string
	// Timeout bounds each of fetch, render and write (default: DefaultTimeout).
	Timeout time.Duration
	// Concurrency is the number of events of a batch processed at once (default: 1).
	Concurrency int
	Logger      *slog.Logger
}

// Pipeline converts source objects into derived objects. It holds no
// mutable state and is safe for concurrent use.
type Pipeline struct {
	store    ObjectStore
	renderer Renderer
	cfg      Config
	log      *slog.Logger
}

// New validates cfg, fills in defaults and returns a ready Pipeline.
func New(store ObjectStore, renderer Renderer, cfg Config) (*Pipeline, error) {
	if store == nil {
		return nil, errors.New("new pipeline: store is required")
	}
	if renderer == nil {
		return nil, errors.New("new pipeline: renderer is required")
	}
	if err := cfg.Rewrite.Validate(); err != nil {
		return nil, fmt.Errorf("new pipeline: %w", err)
	}

	if cfg.ContentType == "" {
		cfg.ContentType = DefaultContentType
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{
		store:    store,
		renderer: renderer,
		cfg:      cfg,
		log:      log.With("component", "convert"),
	}, nil
}

// Handle processes every event of the batch and returns one Result per
// event in input order. A failed event never stops the others.
func (p *Pipeline) Handle(ctx context.Context, events []Event) Results {
	results := make(Results, len(events))

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	for i, e := range events {
		g.Go(func() error {
			results[i] = p.process(ctx, e)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Backfill converts every source object under prefix. Derived objects are
// overwritten, so running it again is safe.
func (p *Pipeline) Backfill(ctx context.Context, lister KeyLister, bucket, prefix string) (Results, error) {
	keys, err := lister.ListKeys(ctx, bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("backfill %s/%s: %w", bucket, prefix, err)
	}

	var events []Event
	for _, key := range keys {
		if p.cfg.Rewrite.HasSourceExtension(key) {
			events = append(events, Created(bucket, key))
		}
	}

	p.log.InfoContext(ctx, "backfill started", "bucket", bucket, "prefix", prefix, "listed", len(keys), "events", len(events))

	return p.Handle(ctx, events), nil
}

func (p *Pipeline) process(ctx context.Context, e Event) Result {
	res := Result{Event: e}
	start := time.Now()

	key, err := DecodeKey(e.Key)
	if err == nil && key == "" {
		err = fmt.Errorf("%w: empty key", ErrInvalidEvent)
	}
	if err == nil && e.Bucket == "" {
		err = fmt.Errorf("%w: empty bucket", ErrInvalidEvent)
	}
	if err != nil {
		return p.fail(ctx, res, StageDecode, e.Key, err)
	}
	res.Key = key

	log := p.log.With("bucket", e.Bucket, "key", key)
	log.InfoContext(ctx, "conversion started", "operation", e.Operation)

	switch {
	case !e.IsCreate():
		res.Reason = ReasonNotCreate
	case strings.HasSuffix(key, p.cfg.Rewrite.TargetExtension):
		res.Reason = ReasonAlreadyTarget
	case !p.cfg.Rewrite.HasSourceExtension(key):
		res.Reason = ReasonNotSource
	}
	if res.Reason != "" {
		res.Outcome = Skipped
		log.InfoContext(ctx, "conversion skipped", "reason", res.Reason)
		return res
	}

	source, err := p.fetch(ctx, e.Bucket, key)
	if err != nil {
		return p.fail(ctx, res, StageFetch, key, err)
	}

	target, err := p.render(ctx, string(source))
	if err != nil {
		return p.fail(ctx, res, StageRender, key, err)
	}

	derived := DerivedKey(key, p.cfg.Rewrite.TargetExtension)
	res.DerivedKey = derived

	if err := p.write(ctx, e.Bucket, derived, []byte(target)); err != nil {
		return p.fail(ctx, res, StageWrite, derived, err)
	}

	res.Outcome = Converted
	log.InfoContext(ctx, "conversion completed",
		"derived_key", derived,
		"source_bytes", len(source),
		"derived_bytes", len(target),
		"duration", time.Since(start),
	)
	return res
}

func (p *Pipeline) fail(ctx context.Context, res Result, stage, key string, err error) Result {
	res.Outcome = Failed
	res.Err = &StageError{Stage: stage, Key: key, Err: err}
	p.log.ErrorContext(ctx, "conversion failed",
		"bucket", res.Event.Bucket,
		"key", key,
		"stage", stage,
		"error", err,
	)
	return res
}

func (p *Pipeline) fetch(ctx context.Context, bucket, key string) (body []byte, err error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	defer recoverPanic("store", &err)
	return p.store.GetObject(ctx, bucket, key)
}

func (p *Pipeline) write(ctx context.Context, bucket, key string, body []byte) (err error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	defer recoverPanic("store", &err)
	return p.store.PutObject(ctx, bucket, key, body, p.cfg.ContentType)
}

// recoverPanic turns a panic in a collaborator into an error for the
// current event. It must be deferred directly.
func recoverPanic(who string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %s panic: %v", mdedge.ErrInternal, who, r)
	}
}

// render runs the renderer under the stage timeout. A renderer that outlives
// the timeout is abandoned; its result is discarded.
func (p *Pipeline) render(ctx context.Context, source string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	type rendered struct {
		text string
		err  error
	}
	done := make(chan rendered, 1)

	go func() {
		var r rendered
		defer func() { done <- r }()
		defer recoverPanic("renderer", &r.err)
		r.text, r.err = p.renderer.Render(source)
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("render abandoned after %s: %w", p.cfg.Timeout, ctx.Err())
	}
}
