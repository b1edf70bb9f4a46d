package cmd

import (
	"fmt"
	"os"

	"evtrack-backend/lib/scrapers/evtrack"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verifies the configured credentials against the live site.",
	Run: func(cmd *cobra.Command, args []string) {
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
		fmt.Println("login ok")
	},
}
