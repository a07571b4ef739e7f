// Command mdedge-lambda converts pages on S3 ObjectCreated notifications.
//
// Configuration comes from MDEDGE_* environment variables, for example
// MDEDGE_STORAGE_BUCKET and MDEDGE_PIPELINE_TIMEOUT. Credentials come from
// the function's execution role unless keys are set explicitly.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/sagarc03/mdedge/config"
	"github.com/sagarc03/mdedge/convert"
	"github.com/sagarc03/mdedge/markdown"
	"github.com/sagarc03/mdedge/s3store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load(nil, nil)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	store, err := s3store.New(context.Background(), cfg.Storage.S3)
	if err != nil {
		slog.Error("create s3 store", "error", err)
		os.Exit(1)
	}

	pipeline, err := convert.New(store, markdown.NewConverter(cfg.Pipeline.Markdown), convert.Config{
		Rewrite:     cfg.Rewrite,
		Timeout:     cfg.Pipeline.Timeout,
		Concurrency: cfg.Pipeline.Concurrency,
	})
	if err != nil {
		slog.Error("create pipeline", "error", err)
		os.Exit(1)
	}

	lambda.Start(newHandler(pipeline))
}

// newHandler returns the function entry point. Any failed record fails the
// invocation so Lambda retries the event; conversions are idempotent.
func newHandler(h convert.BatchHandler) func(context.Context, events.S3Event) error {
	return func(ctx context.Context, ev events.S3Event) error {
		res := h.Handle(ctx, convert.FromS3Event(ev))

		c := res.Counts()
		slog.InfoContext(ctx, "batch done",
			"records", len(ev.Records),
			"converted", c.Converted,
			"skipped", c.Skipped,
			"failed", c.Failed,
		)
		return res.Err()
	}
}
