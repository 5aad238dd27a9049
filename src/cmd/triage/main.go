// Package main provides the triage command line: it classifies archived Jenkins
// builds into a failure cache and presents that cache as a summary, an
// interactive browser, queries, an MCP server and a live event feed.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"buildtriage/src/config"
	"buildtriage/src/logger"
	"buildtriage/src/store"
)

var (
	// Path of the TOML configuration file
	configPath string
	// Path of the JSON cache read by the presentation commands
	cachePath string

	appConfig *config.Config
	log       *logger.ConsoleLogger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "triage - classify Jenkins build failures",
	Long: `triage reads archived Jenkins builds (build.xml, console logs and JUnit
results), classifies why each build failed, and keeps the results in a JSON
cache that is merged on every run.

Configuration is read from --config (or $TRIAGE_CONFIG) and overridden by
environment variables such as JENKINS_URL, REDPANDA_BROKERS and POSTGRES_DSN.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		appConfig = cfg

		log = logger.NewConsoleLogger()
		return log.SetLevel(cfg.LogLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML configuration file (default $"+config.EnvConfigFile+")")
	rootCmd.AddCommand(classifyCmd, summaryCmd, viewCmd, queryCmd, mcpCmd, tailCmd)
}

// addCacheFlag registers --cache on a command that reads the cache.
func addCacheFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&cachePath, "cache", "", "JSON cache written by classify (default: the Postgres mirror when "+config.EnvPostgresDSN+" is set)")
}

// openCache returns the store named by --cache, falling back to the Postgres
// mirror of the configuration.
func openCache(ctx context.Context) (store.Store, error) {
	if cachePath != "" {
		return store.NewFileStore(cachePath), nil
	}
	if dsn := appConfig.Outputs.PostgresDSN; dsn != "" {
		return store.NewPostgresStore(ctx, dsn)
	}
	return nil, fmt.Errorf("--cache is required when no Postgres mirror is configured")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
