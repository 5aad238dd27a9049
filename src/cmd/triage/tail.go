package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"buildtriage/src/broker"
	"buildtriage/src/config"
	"buildtriage/src/contracts"
	"buildtriage/src/logger"
	"buildtriage/src/patterns"
)

var (
	tailGroup string
	tailLimit int
)

// tailCmd prints failure events as classify runs publish them
var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow newly classified failures on the event broker",
	Long: `Consumes the ` + contracts.TopicFailuresClassified + ` topic from the Redpanda brokers in
$` + config.EnvBrokers + ` (or the config file) and prints one line per failure.

Without --group every invocation joins its own consumer group and so starts
from the oldest retained event.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addrs := appConfig.Outputs.Brokers
		if len(addrs) == 0 {
			return fmt.Errorf("no brokers configured: set %s or outputs.brokers", config.EnvBrokers)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		br, err := broker.NewRedpandaBroker(addrs, log)
		if err != nil {
			return err
		}
		defer br.Close()

		group := tailGroup
		if group == "" {
			group = "triage-tail-" + uuid.NewString()
		}
		msgs, err := br.Subscribe(ctx, contracts.TopicFailuresClassified, group)
		if err != nil {
			return err
		}

		log.Info("[Tail] Following %s as %s", contracts.TopicFailuresClassified, group)
		n := printEvents(ctx, msgs, cmd.OutOrStdout(), tailLimit, log)
		log.Info("[Tail] Printed %d events", n)
		return nil
	},
}

func init() {
	tailCmd.Flags().StringVar(&tailGroup, "group", "", "Consumer group (default: a new group per invocation)")
	tailCmd.Flags().IntVar(&tailLimit, "limit", 0, "Exit after this many events (0 to follow until interrupted)")
}

// printEvents writes a line per failure event until msgs closes, ctx ends or
// limit events were printed. Undecodable messages are logged and skipped.
func printEvents(ctx context.Context, msgs <-chan broker.Message, w io.Writer, limit int, log logger.Logger) int {
	printed := 0
	for limit <= 0 || printed < limit {
		select {
		case <-ctx.Done():
			return printed
		case msg, ok := <-msgs:
			if !ok {
				return printed
			}
			ev, err := broker.DecodeFailureEvent(msg)
			if err != nil {
				log.Warn("[Tail] %v", err)
				continue
			}
			fmt.Fprintln(w, formatEvent(ev))
			printed++
		}
	}
	return printed
}

// formatEvent renders an event as "<time> <result> <job> #<num> [<category>] <type>: <detail>".
func formatEvent(ev contracts.FailureEvent) string {
	line := fmt.Sprintf("%s %s %s #%s [%s] %s",
		ev.Timestamp, ev.Result, ev.JobName, ev.BuildNum, ev.Category, ev.Type)
	if ev.Detail != "" {
		line += ": " + patterns.Normalize(ev.Detail, patterns.MaskPresentation)
	}
	return line
}
