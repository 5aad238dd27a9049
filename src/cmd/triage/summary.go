package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"buildtriage/src/patterns"
	"buildtriage/src/ranking"
	"buildtriage/src/store"
	"buildtriage/src/tui"
)

const (
	defaultSummaryLimit = 20
	summaryDetailWidth  = 60
)

var (
	summaryLimit int
	summaryDays  int
	summaryNoise bool
)

// summaryCmd prints the recurring failures and periodic trends of the cache
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print recurring failures and periodic build trends",
	Long: `Groups the cached failures by type and normalized detail, most frequent
first, with a per-day history over the retention period. Failures that also
occur on successful builds are hidden unless --noise is given.

Periodic builds are summarized per repository and branch over the last two days.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openCache(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		doc, err := st.Load(cmd.Context())
		if err != nil {
			return err
		}

		renderSummary(cmd.OutOrStdout(), doc, time.Now(), summaryOptions{
			limit: summaryLimit,
			days:  summaryDays,
			noise: summaryNoise,
		})
		return nil
	},
}

func init() {
	addCacheFlag(summaryCmd)
	summaryCmd.Flags().IntVar(&summaryLimit, "limit", defaultSummaryLimit, "Max failure groups shown (0 for all)")
	summaryCmd.Flags().IntVar(&summaryDays, "days", 0, "History length in days (default: the cache retention)")
	summaryCmd.Flags().BoolVar(&summaryNoise, "noise", false, "Include failures also seen on successful builds")
}

type summaryOptions struct {
	limit int
	days  int
	noise bool
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

// renderSummary writes the failure groups, category totals and periodic trends of doc.
func renderSummary(w io.Writer, doc *store.Document, now time.Time, opts summaryOptions) {
	groups := ranking.GroupFailures(doc, opts.days, now)

	updated := "never"
	if !doc.Timestamp.IsZero() {
		updated = humanize.RelTime(doc.Timestamp, now, "ago", "from now")
	}
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s builds, %s failure groups, updated %s",
		humanize.Comma(int64(len(doc.Builds))), humanize.Comma(int64(len(groups))), updated)))
	fmt.Fprintln(w)

	shown := groups
	if !opts.noise {
		shown, _ = ranking.Split(groups)
	}
	if len(shown) == 0 {
		fmt.Fprintln(w, "No recurring failures.")
	} else {
		t := newTable("#", "Count", "Type", "Category", "Last seen", "History", "Detail")
		for i, g := range shown {
			if opts.limit > 0 && i == opts.limit {
				break
			}
			t.Row(
				strconv.Itoa(i+1),
				strconv.Itoa(g.Count),
				g.Type,
				string(g.Category),
				humanize.RelTime(g.Newest.Timestamp, now, "ago", "from now"),
				tui.Sparkline(g.Histogram),
				tui.Truncate(patterns.Normalize(g.Detail, patterns.MaskPresentation), summaryDetailWidth, true),
			)
		}
		fmt.Fprintln(w, t.Render())
		if opts.limit > 0 && len(shown) > opts.limit {
			fmt.Fprintf(w, "... %d more\n", len(shown)-opts.limit)
		}
	}

	if counts := ranking.CategoryCounts(groups); len(counts) > 0 {
		fmt.Fprintln(w)
		t := newTable("Category", "Failures")
		for _, cc := range counts {
			t.Row(string(cc.Category), humanize.Comma(int64(cc.Count)))
		}
		fmt.Fprintln(w, t.Render())
	}

	days := opts.days
	if days <= 0 {
		days = doc.RetentionDays
	}
	if days <= 0 {
		days = store.DefaultRetentionDays
	}
	if trends := ranking.PeriodicTrends(doc.SortedBuilds(), days, now); len(trends) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Render("Periodic builds, last 48h"))
		t := newTable("Repo/branch", "Builds", "Success", "Failed per day")
		for _, tr := range trends {
			t.Row(
				tr.Key,
				strconv.Itoa(tr.Total),
				fmt.Sprintf("%.0f%%", tr.SuccessPercent()),
				tui.Sparkline(tr.Failed),
			)
		}
		fmt.Fprintln(w, t.Render())
	}
}
