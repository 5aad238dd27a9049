package main

import (
	"github.com/spf13/cobra"

	"buildtriage/src/tui"
)

// viewCmd opens the interactive failure browser
var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Browse recurring failures interactively",
	Long: `Opens a terminal browser over the cache: failure groups ranked by how
many builds they hit on the left, the selected group's detail, daily history
and builds on the right. Press r to reload after a classify run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openCache(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		return tui.Start(st)
	},
}

func init() {
	addCacheFlag(viewCmd)
}
