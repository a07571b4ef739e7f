package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/mdedge/config"
	mdhttp "github.com/sagarc03/mdedge/http"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Convert pages from S3 bucket notifications",
	Long: `Start a webhook server that receives S3 event notifications on
POST /events and converts the referenced pages in the bucket.

Point a MinIO webhook target (or any sender of S3-format notifications) at
this server. A failed conversion answers 500 so the sender redelivers.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().Int("port", 0, "HTTP server port (default: server.port)")

	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	store, err := newS3Store(ctx, cfg)
	if err != nil {
		return err
	}

	pipeline, err := newPipeline(cfg, store)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	server := newServer(cfg.Server.Port, mdhttp.NewEventsHandler(pipeline).Router())

	slog.Info("starting worker", "addr", server.Addr)
	return listenAndServe(ctx, server)
}
