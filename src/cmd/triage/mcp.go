package main

import (
	"time"

	"github.com/spf13/cobra"

	"buildtriage/src/mcp"
)

var mcpTTL time.Duration

// mcpCmd serves the cache over the Model Context Protocol
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the cache to LLM clients over MCP (stdio)",
	Long: `Runs a Model Context Protocol server on stdin/stdout with the tools
query_builds, failure_summary and get_build. The cache is re-read at most once
per --ttl so results follow concurrent classify runs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openCache(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		log.Info("[MCP] Serving %s on stdio", cacheName())
		return mcp.NewServer(st, mcpTTL).Run()
	},
}

func init() {
	addCacheFlag(mcpCmd)
	mcpCmd.Flags().DurationVar(&mcpTTL, "ttl", mcp.DefaultCacheTTL, "How long a loaded cache is reused")
}

func cacheName() string {
	if cachePath != "" {
		return cachePath
	}
	return "the Postgres mirror"
}
