package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"buildtriage/src/ranking"
	"buildtriage/src/store"
)

var queryJSON bool

// queryCmd lists cached builds matching a field=value expression
var queryCmd = &cobra.Command{
	Use:   "query <field=value>",
	Short: "List cached builds whose attribute contains a value",
	Long: fmt.Sprintf(`Prints the cached builds whose field contains value, newest first,
with the types of their failures.

Fields: %s

Example:
  triage query --cache build_summary.json job_name=newton`, strings.Join(ranking.QueryFields(), ", ")),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		field, value, err := ranking.ParseQuery(args[0])
		if err != nil {
			return err
		}

		st, err := openCache(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		doc, err := st.Load(cmd.Context())
		if err != nil {
			return err
		}
		return runQuery(cmd.OutOrStdout(), doc, field, value, queryJSON)
	},
}

func init() {
	addCacheFlag(queryCmd)
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Print the matching build records as JSON")
}

// runQuery prints the builds of doc matching field and value.
func runQuery(w io.Writer, doc *store.Document, field, value string, asJSON bool) error {
	builds, err := ranking.Query(doc, field, value)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(builds)
	}

	for _, b := range builds {
		var types []string
		for _, f := range doc.FailuresOf(b) {
			types = append(types, f.Type)
		}
		fmt.Fprintln(w, b.String())
		if len(types) > 0 {
			fmt.Fprintf(w, "    %s\n", strings.Join(types, ", "))
		}
	}
	fmt.Fprintf(w, "%d builds match %s=%s\n", len(builds), field, value)
	return nil
}
