package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/mdedge/config"
	"github.com/sagarc03/mdedge/convert"
)

var convertCmd = &cobra.Command{
	Use:   "convert [prefix]",
	Short: "Convert every stored page under a prefix",
	Long: `Convert every page already stored under prefix (default: everything).

Uses the configured storage backend: the local origin for "filesystem" and
the bucket for "s3". Existing Markdown copies are overwritten, so running
it again is safe. Exits non-zero when any page failed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
}

type backfillSource interface {
	convert.ObjectStore
	convert.KeyLister
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	prefix := ""
	if len(args) == 1 {
		prefix = args[0]
	}

	var source backfillSource
	switch cfg.Storage.Backend {
	case "s3":
		store, err := newS3Store(ctx, cfg)
		if err != nil {
			return err
		}
		source = store
	default:
		o, err := openOrigin(ctx, cfg, false)
		if err != nil {
			return err
		}
		defer o.Close()
		source = o.service
	}

	pipeline, err := newPipeline(cfg, source)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	res, err := pipeline.Backfill(ctx, source, cfg.Storage.Bucket, prefix)
	if err != nil {
		return err
	}

	counts := res.Counts()
	slog.Info("conversion complete", "converted", counts.Converted, "skipped", counts.Skipped, "failed", counts.Failed)
	fmt.Fprintf(cmd.OutOrStdout(), "converted %d, skipped %d, failed %d\n", counts.Converted, counts.Skipped, counts.Failed)

	if counts.Failed > 0 {
		return fmt.Errorf("%d pages failed: %w", counts.Failed, res.Err())
	}
	return nil
}
