package cmd

import (
	"fmt"
	"os"
	"time"

	"evtrack-backend/lib/runlog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var runsLimit int

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to show.")
	rootCmd.AddCommand(runsCmd)
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Shows the most recent automation runs from the history database.",
	Run: func(cmd *cobra.Command, args []string) {
		store, err := runlog.Open(cmd.Context(), config.Runlog)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		defer store.Close()

		entries, err := store.Recent(cmd.Context(), runsLimit)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Started", "Workflow", "Search", "Outcome", "Duration", "Detail"})
		for _, entry := range entries {
			t.AppendRow(table.Row{
				entry.StartedAt.Format(time.DateTime),
				entry.Workflow,
				entry.SearchTerm,
				entry.Outcome,
				entry.Duration.Round(time.Millisecond),
				entry.Detail,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
