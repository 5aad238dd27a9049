package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"buildtriage/src/logger"
	"buildtriage/src/pipeline"
)

// classifyCmd runs a classification pass over a jobs tree
var classifyCmd = &cobra.Command{
	Use:   "classify <jobs-dir> <output>",
	Short: "Classify new builds and merge them into the cache",
	Long: `Walks <jobs-dir>/<job>/builds/<number>/, classifies every build the cache at
<output> does not hold yet, drops builds older than the retention period and
writes the merged cache back to <output>.

An interrupt stops the walk; builds classified so far are still written. The
command fails only when the cache cannot be written.

Example:
  triage classify /var/lib/jenkins/jobs build_summary.json`,
	Args: cobra.ExactArgs(2),
	// Overrides the root hook: a bad configuration falls back to the defaults
	// instead of failing the run.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log = logger.NewConsoleLogger()
		appConfig = pipeline.LoadConfig(configPath, log)
		if err := log.SetLevel(appConfig.LogLevel); err != nil {
			log.Warn("[Runner] %v", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sum, err := pipeline.ClassifyWith(ctx, appConfig, args[0], args[1], log)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Classified %d builds (%d failures), %d already cached, %d unreadable, %d jobs skipped\n",
			sum.Classified, sum.Failures, sum.Cached, sum.ParseErrors, sum.SkippedJobs)
		fmt.Fprintf(cmd.OutOrStdout(), "Cache %s holds %d builds\n", args[1], sum.Stored)
		if sum.Interrupted {
			fmt.Fprintln(cmd.OutOrStdout(), "Interrupted: run again to classify the remaining builds")
		}
		return nil
	},
}
