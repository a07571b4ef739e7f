package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/mdedge/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "mdedge",
	Short:   "Serve Markdown copies of HTML pages to clients that ask for them",
	Long: `mdedge keeps a Markdown copy next to every HTML page of a site and
serves it to clients that send "Accept: text/markdown".

The origin server stores pages locally and converts them as they are
uploaded. The worker converts pages in an S3 bucket from bucket
notifications, and convert backfills pages that are already stored.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		files, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(files, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg.Log)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringSlice("config", nil, "config file path, repeat to merge (default: ./config.yaml)")
	pf.String("db-type", "", "database type: sqlite, postgres (env: MDEDGE_DATABASE_TYPE)")
	pf.String("db-dsn", "", "database connection string (env: MDEDGE_DATABASE_DSN)")
	pf.String("storage-path", "", "storage directory path (env: MDEDGE_STORAGE_PATH)")
	pf.String("bucket", "", "bucket name (env: MDEDGE_STORAGE_BUCKET)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text, json")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
