package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sagarc03/mdedge/config"
	"github.com/sagarc03/mdedge/rewrite"
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite <uri>...",
	Short: "Show which object a request would be served",
	Long: `Print the storage URI each request URI resolves to under the
configured rewrite rules, as "<uri> -> <storage uri>".`,
	Example: `  mdedge rewrite /docs/ /docs/page.html /logo.png
  mdedge rewrite --accept text/html /docs/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRewrite,
}

func init() {
	rewriteCmd.Flags().String("accept", rewrite.MediaType, "Accept header of the request")

	rootCmd.AddCommand(rewriteCmd)
}

func runRewrite(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	accept, _ := cmd.Flags().GetString("accept")

	for _, uri := range args {
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", uri, rewrite.Rewrite(cfg.Rewrite, uri, accept))
	}
	return nil
}
