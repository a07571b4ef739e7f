package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/mdedge/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Index files already present in the storage directory",
	Long: `Scan the storage directory and record metadata for every file.

Use it when pointing mdedge at an existing site, or to rebuild the metadata
database. Run "mdedge convert" afterwards to create the Markdown copies.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	o, err := openOrigin(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer o.Close()

	slog.Info("scanning storage directory", "path", cfg.Storage.Path)

	n, err := o.service.Populate(ctx)
	if err != nil {
		return fmt.Errorf("populate: %w", err)
	}

	slog.Info("initialization complete", "files_indexed", n)
	return nil
}
