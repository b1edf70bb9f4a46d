package cmd

import (
	"fmt"
	"os"
	"strings"

	"evtrack-backend/lib/scrapers/evtrack"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "Searches the visitor list, relaxing the term until something matches.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		term := strings.Join(args, " ")

		client, err := evtrack.NewClient(evtrack.ClientOptions{
			BaseUrl: config.Evtrack.BaseUrl,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		defer client.Close()

		err = client.Login(cmd.Context(), config.Evtrack.Username, config.Evtrack.Password)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}

		result, err := client.SearchVisitorsRelaxed(cmd.Context(), term)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		if !result.Found {
			fmt.Println("no matching visitor")
			return
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Uuid", "Status", "First", "Last", "Mobile"})
		t.AppendRow(table.Row{
			result.Visitor.Uuid,
			result.Visitor.Status,
			result.Visitor.FirstName,
			result.Visitor.LastName,
			result.Visitor.Mobile,
		})
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
