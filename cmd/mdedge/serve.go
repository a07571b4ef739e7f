package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/mdedge"
	"github.com/sagarc03/mdedge/config"
	"github.com/sagarc03/mdedge/convert"
	mdhttp "github.com/sagarc03/mdedge/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the origin server",
	Long: `Start the origin HTTP server backed by the local storage directory.

Every uploaded page is converted to Markdown in the background. Requests
with "Accept: text/markdown" are served the Markdown copy.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5708, "HTTP server port")
	serveCmd.Flags().String("mode", "store", "server mode (store, static, spa)")
	serveCmd.Flags().Int("workers", 1, "conversion workers")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	o, err := openOrigin(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer o.Close()

	pipeline, err := newPipeline(cfg, o.service)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	dispatcher := convert.NewDispatcher(pipeline, convert.DispatcherConfig{
		Filter:      cfg.Rewrite,
		Workers:     cfg.Pipeline.Workers,
		QueueSize:   cfg.Pipeline.QueueSize,
		MaxAttempts: cfg.Pipeline.MaxAttempts,
		RetryDelay:  cfg.Pipeline.RetryDelay,
	})
	defer dispatcher.Close()

	handler, err := mdhttp.NewHandler(&mdhttp.HandlerConfig{
		Mode:          mdedge.ServerMode(cfg.Server.Mode),
		Rewrite:       cfg.Rewrite,
		Bucket:        cfg.Storage.Bucket,
		MaxUploadSize: cfg.Server.MaxUploadSize,
		Notifier:      dispatcher,
		CORS:          cfg.CORS,
	}, o.service)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	server := newServer(cfg.Server.Port, handler.Router())

	slog.Info("starting server", "addr", server.Addr, "mode", cfg.Server.Mode, "workers", cfg.Pipeline.Workers)
	return listenAndServe(ctx, server)
}
